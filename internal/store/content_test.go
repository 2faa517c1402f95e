package store

import (
	"encoding/json"
	"testing"
)

func TestValidateContentByType(t *testing.T) {
	cases := []struct {
		name      string
		assetType string
		content   string
		wantErr   bool
	}{
		{"valid plan", TypePlan, `{"title":"PQP","sections":[{"heading":"Scope","body":"All works"}]}`, false},
		{"plan without title", TypePlan, `{"description":"no title"}`, true},
		{"plan with unknown field", TypePlan, `{"title":"PQP","owner":"x"}`, true},
		{"valid ncr", TypeNCR, `{"title":"Crack in slab","description":"Hairline crack at grid B2","severity":"major"}`, false},
		{"ncr without description", TypeNCR, `{"title":"Crack in slab"}`, true},
		{"valid itp", TypeITP, `{"title":"Footings ITP","checkpoints":[{"activity":"Rebar inspection","hold_point":true}]}`, false},
		{"workflow without target", TypeWorkflow, `{"requested_by":"usr_1"}`, true},
		{"unknown type", "rfi", `{"title":"x"}`, true},
		{"empty content", TypePlan, ``, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateContent(tc.assetType, json.RawMessage(tc.content))
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestContentTitle(t *testing.T) {
	if got := ContentTitle(json.RawMessage(`{"title":"Site HSE Plan"}`)); got != "Site HSE Plan" {
		t.Fatalf("got %q", got)
	}
	if got := ContentTitle(json.RawMessage(`not json`)); got != "" {
		t.Fatalf("expected empty title, got %q", got)
	}
}
