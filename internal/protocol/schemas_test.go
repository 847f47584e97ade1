package protocol

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "..", "schemas", name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	sch, err := jsonschema.CompileString(name, string(raw))
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return sch
}

func asDoc(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return doc
}

func TestEvaluateRequestSchema(t *testing.T) {
	sch := compileSchema(t, "evaluate.schema.json")

	good := EvaluateRequest{UserID: 7, Category: "assets/prefabs/deployable/furnace/furnace.prefab"}
	if err := sch.Validate(asDoc(t, good)); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	var missing any
	if err := json.Unmarshal([]byte(`{"user_id": 7}`), &missing); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := sch.Validate(missing); err == nil {
		t.Fatalf("request without category accepted")
	}
}

func TestCreateTierSchema(t *testing.T) {
	sch := compileSchema(t, "create_tier.schema.json")

	if err := sch.Validate(asDoc(t, CreateTierRequest{Name: "advancedentitylimit.vip"})); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
	if err := sch.Validate(asDoc(t, CreateTierRequest{Name: "vip"})); err == nil {
		t.Fatalf("unprefixed tier name accepted")
	}
}

func TestFeedDecisionSchema(t *testing.T) {
	sch := compileSchema(t, "feed_decision.schema.json")

	msg := FeedDecisionMsg{
		Type:     "DECISION",
		ID:       "d1",
		UserID:   7,
		Category: "assets/prefabs/deployable/furnace/furnace.prefab",
		Tier:     "advancedentitylimit.default",
		Allowed:  false,
		Limit:    2,
		Count:    2,
		Message:  "limit is 2",
	}
	if err := sch.Validate(asDoc(t, msg)); err != nil {
		t.Fatalf("valid frame rejected: %v", err)
	}

	var wrongType any
	if err := json.Unmarshal([]byte(`{"type":"HELLO","id":"d1","user_id":7,"category":"x","allowed":true,"limit":1,"count":0}`), &wrongType); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := sch.Validate(wrongType); err == nil {
		t.Fatalf("frame with wrong type accepted")
	}
}

func TestIsKnownCode(t *testing.T) {
	for _, code := range []string{
		ErrBadRequest, ErrTierExists, ErrTierNotFound,
		ErrCategoryNotFound, ErrBadName, ErrNoPermission,
		ErrNotDurable, ErrInternal, "",
	} {
		if !IsKnownCode(code) {
			t.Fatalf("known code %q rejected", code)
		}
	}
	if IsKnownCode("E_MADE_UP") {
		t.Fatalf("unknown code accepted")
	}
}
