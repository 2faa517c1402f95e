package store

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PlanContent is the payload of a project plan asset (pqp, hse, quality).
type PlanContent struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Sections    []PlanSection `json:"sections,omitempty"`
}

type PlanSection struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// NCRContent is the payload of a non-conformance report asset.
type NCRContent struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity,omitempty"`
	Location    string `json:"location,omitempty"`
}

// ITPContent is the payload of an inspection and test plan asset.
type ITPContent struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Checkpoints []ITPPoint `json:"checkpoints,omitempty"`
}

type ITPPoint struct {
	Activity  string `json:"activity"`
	Criterion string `json:"criterion,omitempty"`
	HoldPoint bool   `json:"hold_point,omitempty"`
}

// ValidateContent decodes a content payload against its asset type and checks
// the fields every variant requires. The decoded form is discarded; the raw
// JSON stays the stored representation.
func ValidateContent(assetType string, raw json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("content is required")
	}
	switch assetType {
	case TypePlan:
		var content PlanContent
		if err := strictDecode(raw, &content); err != nil {
			return fmt.Errorf("plan content: %w", err)
		}
		if strings.TrimSpace(content.Title) == "" {
			return fmt.Errorf("plan content: title is required")
		}
	case TypeNCR:
		var content NCRContent
		if err := strictDecode(raw, &content); err != nil {
			return fmt.Errorf("ncr content: %w", err)
		}
		if strings.TrimSpace(content.Title) == "" {
			return fmt.Errorf("ncr content: title is required")
		}
		if strings.TrimSpace(content.Description) == "" {
			return fmt.Errorf("ncr content: description is required")
		}
	case TypeITP:
		var content ITPContent
		if err := strictDecode(raw, &content); err != nil {
			return fmt.Errorf("itp content: %w", err)
		}
		if strings.TrimSpace(content.Title) == "" {
			return fmt.Errorf("itp content: title is required")
		}
	case TypeWorkflow:
		var content WorkflowContent
		if err := strictDecode(raw, &content); err != nil {
			return fmt.Errorf("workflow content: %w", err)
		}
		if content.TargetAssetID == "" {
			return fmt.Errorf("workflow content: target_asset_id is required")
		}
	default:
		return fmt.Errorf("unknown asset type %q", assetType)
	}
	return nil
}

// ContentTitle pulls the display title out of a content payload without
// committing to a variant. Used by listings and search indexing.
func ContentTitle(raw json.RawMessage) string {
	var probe struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.Title
}

func strictDecode(raw json.RawMessage, out any) error {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}
