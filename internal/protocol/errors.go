package protocol

const (
	// Transport/payload validation.
	ErrBadRequest = "E_BAD_REQUEST"

	// Tier table.
	ErrTierExists       = "E_TIER_EXISTS"
	ErrTierNotFound     = "E_TIER_NOT_FOUND"
	ErrCategoryNotFound = "E_CATEGORY_NOT_FOUND"
	ErrBadName          = "E_BAD_NAME"

	// Authorization.
	ErrNoPermission = "E_NO_PERMISSION"

	// Persistence.
	ErrNotDurable = "E_NOT_DURABLE"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:       {},
	ErrTierExists:       {},
	ErrTierNotFound:     {},
	ErrCategoryNotFound: {},
	ErrBadName:          {},
	ErrNoPermission:     {},
	ErrNotDurable:       {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
