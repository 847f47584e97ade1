package groups

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Clan directory flavors. The two differ only in wire shape; both speak
// HTTP+JSON.
const (
	ClanProviderHub    = "hub"
	ClanProviderLegacy = "legacy"
)

// NewClanProvider builds the configured clan directory client, or nil when
// kind is empty. Unknown kinds are treated as absent, matching the degrade-
// silently contract.
func NewClanProvider(kind, baseURL string, logger *log.Logger) ClanProvider {
	if logger == nil {
		logger = log.Default()
	}
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil
	}
	cl := &http.Client{Timeout: 3 * time.Second}
	switch kind {
	case ClanProviderHub:
		return &hubProvider{clanHTTP: clanHTTP{base: base, cl: cl, log: logger}}
	case ClanProviderLegacy:
		return &legacyProvider{clanHTTP: clanHTTP{base: base, cl: cl, log: logger}}
	default:
		logger.Printf("unknown clan provider %q, clan pooling disabled", kind)
		return nil
	}
}

// clanHTTP is the shared transport. Availability is probed once and cached
// for the provider's lifetime; the directory is treated as static at
// runtime.
type clanHTTP struct {
	base string
	cl   *http.Client
	log  *log.Logger

	probe     sync.Once
	available bool
}

func (c *clanHTTP) ok() bool {
	c.probe.Do(func() {
		resp, err := c.cl.Get(c.base + "/healthz")
		if err != nil {
			c.log.Printf("clan directory unavailable: %v", err)
			return
		}
		defer resp.Body.Close()
		c.available = resp.StatusCode/100 == 2
		if !c.available {
			c.log.Printf("clan directory unavailable: status %d", resp.StatusCode)
		}
	})
	return c.available
}

func (c *clanHTTP) getJSON(path string, out any) bool {
	resp, err := c.cl.Get(c.base + path)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	return json.NewDecoder(resp.Body).Decode(out) == nil
}

// hubProvider speaks the newer directory API: a clan-of lookup and a
// separate member-list endpoint.
type hubProvider struct {
	clanHTTP
}

func (p *hubProvider) IsMember(user uint64) bool {
	if !p.ok() {
		return false
	}
	var body struct {
		Clan string `json:"clan"`
	}
	if !p.getJSON(fmt.Sprintf("/v1/clans/of/%d", user), &body) {
		return false
	}
	return body.Clan != ""
}

func (p *hubProvider) Members(user uint64) []string {
	if !p.ok() {
		return nil
	}
	var body struct {
		Members []string `json:"members"`
	}
	if !p.getJSON(fmt.Sprintf("/v1/clans/of/%d/members", user), &body) {
		return nil
	}
	return body.Members
}

// legacyProvider speaks the older flat API: a single clan record per user
// that both calls read from.
type legacyProvider struct {
	clanHTTP
}

type legacyClanRecord struct {
	Tag     string   `json:"tag"`
	Members []string `json:"members"`
}

func (p *legacyProvider) IsMember(user uint64) bool {
	if !p.ok() {
		return false
	}
	var rec legacyClanRecord
	if !p.getJSON(fmt.Sprintf("/api/clan/%d", user), &rec) {
		return false
	}
	return rec.Tag != ""
}

func (p *legacyProvider) Members(user uint64) []string {
	if !p.ok() {
		return nil
	}
	var rec legacyClanRecord
	if !p.getJSON(fmt.Sprintf("/api/clan/%d", user), &rec) {
		return nil
	}
	return rec.Members
}
