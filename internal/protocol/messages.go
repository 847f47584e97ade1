// Package protocol defines the wire types of the HTTP admin surface and
// the websocket telemetry feed.
package protocol

const Version = "1.0"

type EvaluateRequest struct {
	UserID   uint64 `json:"user_id"`
	Category string `json:"category"`
}

type EvaluateResponse struct {
	Allowed bool `json:"allowed"`
	Limit   int  `json:"limit"`
	Count   int  `json:"count"`
	// Message is the user-facing denial text, present only when denied.
	Message string `json:"message,omitempty"`
}

type CreateTierRequest struct {
	Name     string `json:"name"`
	CopyFrom string `json:"copy_from,omitempty"`
}

type SetLimitRequest struct {
	Category string `json:"category"`
	Limit    int    `json:"limit"`
}

type SetEnabledRequest struct {
	Category string `json:"category"`
	Enabled  bool   `json:"enabled"`
}

type GrantRequest struct {
	UserID     uint64 `json:"user_id"`
	Permission string `json:"permission"`
	Revoke     bool   `json:"revoke,omitempty"`
}

type TierView struct {
	Name       string `json:"name"`
	Priority   int    `json:"priority"`
	Categories int    `json:"categories"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// Feed messages.

type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// UserID filters the feed to one user's decisions; 0 subscribes to all.
	UserID uint64 `json:"user_id,omitempty"`
}

type FeedDecisionMsg struct {
	Type     string `json:"type"` // "DECISION"
	ID       string `json:"id"`
	UserID   uint64 `json:"user_id"`
	Category string `json:"category"`
	Tier     string `json:"tier,omitempty"`
	Allowed  bool   `json:"allowed"`
	Limit    int    `json:"limit"`
	Count    int    `json:"count"`
	Message  string `json:"message,omitempty"`
}
