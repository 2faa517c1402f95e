package store

import (
	"encoding/json"
	"time"
)

// Asset kind discriminators. Approval workflows are assets too: they version,
// soft-delete and audit the same way as the documents they track.
const (
	TypePlan     = "plan"
	TypeNCR      = "ncr"
	TypeITP      = "itp"
	TypeWorkflow = "approval_workflow"
)

// Approval states an asset version moves through.
const (
	ApprovalDraft    = "draft"
	ApprovalPending  = "pending_review"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// Asset is one immutable version of a logical document. All versions of a
// document share asset_uid; exactly one non-deleted row per asset_uid carries
// is_current=true.
type Asset struct {
	ID                string
	AssetUID          string
	ProjectID         string
	Type              string
	Subtype           string
	Version           int
	IsCurrent         bool
	SupersedesAssetID *string
	Status            string
	ApprovalState     string
	RevisionCode      string
	Content           json.RawMessage
	IdempotencyKey    string
	ChangeLog         string
	IsDeleted         bool
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedBy         string
	UpdatedAt         time.Time
}

// VersionChanges are the fields a new version overrides; everything left at
// its zero value is copied forward from the parent.
type VersionChanges struct {
	Status         string
	ApprovalState  string
	RevisionCode   string
	Content        json.RawMessage
	IdempotencyKey string
	ChangeLog      string
	Actor          string
}

// WorkflowStep is one entry of a workflow definition. Observed usage is a
// single step with any-of semantics.
type WorkflowStep struct {
	ApprovalType string   `json:"approval_type"`
	Approvers    []string `json:"approvers,omitempty"`
}

// WorkflowDecision records the resolution of a workflow.
type WorkflowDecision struct {
	Decision  string    `json:"decision"`
	DecidedBy string    `json:"decided_by"`
	DecidedAt time.Time `json:"decided_at"`
	Comment   string    `json:"comment,omitempty"`
}

// WorkflowContent is the JSONB payload of an approval_workflow asset. It is
// bound to one immutable asset version, never to the asset_uid, so deciding it
// cannot touch an edit made after submission.
type WorkflowContent struct {
	TargetAssetID string            `json:"target_asset_id"`
	CurrentStep   int               `json:"current_step"`
	Definition    []WorkflowStep    `json:"workflow_definition"`
	RequestedBy   string            `json:"requested_by"`
	Priority      string            `json:"priority,omitempty"`
	DueDate       time.Time         `json:"due_date"`
	Decision      *WorkflowDecision `json:"decision,omitempty"`
}

// WorkflowDecisionUpdate carries everything DecideWorkflow writes in one
// transaction: the workflow resolution plus the target asset's new approval
// metadata.
type WorkflowDecisionUpdate struct {
	WorkflowID    string
	Status        string
	Decision      WorkflowDecision
	TargetAssetID string
	TargetStatus  string
	ApprovalState string
	RevisionCode  string
	Actor         string
}

type Project struct {
	ID        string
	OrgID     string
	Name      string
	Code      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID          string
	DisplayName string
	Email       string
	CreatedAt   time.Time
}
