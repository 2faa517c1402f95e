package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"siteworks/api/internal/access"
	"siteworks/api/internal/auth"
	"siteworks/api/internal/config"
	"siteworks/api/internal/export"
	"siteworks/api/internal/revision"
	"siteworks/api/internal/search"
	"siteworks/api/internal/store"
	"siteworks/api/internal/util"
	"siteworks/api/internal/workflow"
)

type Session struct {
	UserID   string
	UserName string
}

type SubmitPlanInput struct {
	Content   json.RawMessage `json:"content"`
	ChangeLog string          `json:"changeLog"`
	Approvers []string        `json:"approvers"`
	Priority  string          `json:"priority"`
	DueDate   *time.Time      `json:"dueDate"`
}

type CommitRevisionInput struct {
	Content   json.RawMessage `json:"content"`
	ChangeLog string          `json:"changeLog"`
}

type DecideWorkflowInput struct {
	WorkflowID string `json:"workflowId"`
	Decision   string `json:"decision"`
	Comment    string `json:"comment"`
}

var allowedPlanSubtypes = map[string]struct{}{
	"pqp":           {},
	"hse":           {},
	"quality":       {},
	"environmental": {},
}

type dataStore interface {
	GetCurrentAsset(context.Context, string) (store.Asset, error)
	GetAsset(context.Context, string) (store.Asset, error)
	GetCurrentPlan(context.Context, string, string) (store.Asset, error)
	ListAssetVersions(context.Context, string) ([]store.Asset, error)
	ListCurrentAssets(context.Context, string, string) ([]store.Asset, error)
	FindAssetByIdempotencyKey(context.Context, string) (*store.Asset, error)
	LatestApprovedVersion(context.Context, string) (*store.Asset, error)
	InsertAsset(context.Context, store.Asset) error
	CreateVersion(context.Context, store.Asset, store.VersionChanges) (store.Asset, error)
	SoftDeleteAsset(context.Context, string, string) (bool, error)
	DecideWorkflow(context.Context, store.WorkflowDecisionUpdate) (bool, error)
	LatestWorkflowForTarget(context.Context, string) (*store.Asset, error)
	ListPendingWorkflows(context.Context, string) ([]store.Asset, error)
	GetProject(context.Context, string) (store.Project, error)
	GetProjectAccess(context.Context, string, string) (access.Membership, error)
	ProjectSummaryCounts(context.Context, string) (int, int, int, error)
	GetUserByID(context.Context, string) (store.User, error)
	Ping(ctx context.Context) error
}

// submitLocker is the Redis reservation guarding concurrent submissions of the
// same key. Optional; nil means the database index alone does the work.
type submitLocker interface {
	Reserve(ctx context.Context, key, reservedBy string) (bool, error)
	Release(ctx context.Context, key string) error
}

// evidenceLinker records workflow-to-version evidence edges in the graph
// store. Optional and best-effort.
type evidenceLinker interface {
	LinkEvidence(ctx context.Context, workflowID, targetAssetID string) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	locker   submitLocker
	graph    evidenceLinker
	search   *search.Service
	exporter *export.Service
}

func NewService(cfg config.Config, st dataStore) *Service {
	return &Service{cfg: cfg, store: st}
}

func (s *Service) WithLocker(locker submitLocker) *Service {
	s.locker = locker
	return s
}

func (s *Service) WithGraph(linker evidenceLinker) *Service {
	s.graph = linker
	return s
}

func (s *Service) WithSearch(svc *search.Service) *Service {
	s.search = svc
	return s
}

func (s *Service) WithExporter(svc *export.Service) *Service {
	s.exporter = svc
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// SessionFromToken verifies a provider-issued token and resolves the user.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.AuthSecret), token)
	if err != nil {
		return Session{}, err
	}
	session := Session{UserID: claims.Sub, UserName: claims.Name}
	if session.UserName == "" {
		if user, err := s.store.GetUserByID(ctx, claims.Sub); err == nil {
			session.UserName = user.DisplayName
		}
	}
	return session, nil
}

// membershipFor loads the caller's standing on a project. A missing project is
// a 404; anything the guard rejects is a 403.
func (s *Service) membershipFor(ctx context.Context, projectID, userID string) (access.Membership, error) {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return access.Membership{}, err
	}
	membership, err := s.store.GetProjectAccess(ctx, projectID, userID)
	if err != nil {
		return access.Membership{}, fmt.Errorf("load project access: %w", err)
	}
	return membership, nil
}

func (s *Service) requireAccess(ctx context.Context, projectID, userID string) error {
	membership, err := s.membershipFor(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !access.CanAccess(membership) {
		return errForbidden()
	}
	return nil
}

func (s *Service) requireManage(ctx context.Context, projectID, userID string) error {
	membership, err := s.membershipFor(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !access.CanManage(membership) {
		return errForbidden()
	}
	return nil
}

// SubmitPlanForApproval moves a project plan into review: it writes a new
// immutable version in pending_review and opens an approval workflow bound to
// that exact version. Submission inherits the revision code; only an approval
// decision advances it.
func (s *Service) SubmitPlanForApproval(ctx context.Context, session Session, projectID, subtype string, input SubmitPlanInput) (map[string]any, error) {
	if _, ok := allowedPlanSubtypes[subtype]; !ok {
		return nil, errValidation("unknown plan subtype", map[string]any{"subtype": subtype})
	}
	if err := s.requireAccess(ctx, projectID, session.UserID); err != nil {
		return nil, err
	}

	head, err := s.store.GetCurrentPlan(ctx, projectID, subtype)
	if errors.Is(err, sql.ErrNoRows) {
		return s.submitFirstVersion(ctx, session, projectID, subtype, input)
	}
	if err != nil {
		return nil, fmt.Errorf("load plan head: %w", err)
	}

	if head.ApprovalState == store.ApprovalPending {
		return nil, errInvalidState("plan is already in review")
	}

	content := head.Content
	if len(input.Content) > 0 {
		if err := store.ValidateContent(store.TypePlan, input.Content); err != nil {
			return nil, errValidation(err.Error(), nil)
		}
		content = input.Content
	}

	key := submitKey(head, projectID, subtype, head.Version+1)
	released, err := s.reserveKey(ctx, key, session.UserID)
	if err != nil {
		var replay *replayError
		if errors.As(err, &replay) {
			return s.submitResponse(ctx, replay.asset, true)
		}
		return nil, err
	}

	var submitted store.Asset
	backoff := retry.WithMaxRetries(2, retry.NewConstant(20*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		parent, err := s.store.GetCurrentPlan(ctx, projectID, subtype)
		if err != nil {
			return err
		}
		if parent.ApprovalState == store.ApprovalPending {
			return errInvalidState("plan is already in review")
		}
		submitted, err = s.store.CreateVersion(ctx, parent, store.VersionChanges{
			Status:         "in_review",
			ApprovalState:  store.ApprovalPending,
			Content:        content,
			IdempotencyKey: submitKey(parent, projectID, subtype, parent.Version+1),
			ChangeLog:      input.ChangeLog,
			Actor:          session.UserID,
		})
		if errors.Is(err, store.ErrHeadConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, store.ErrDuplicateSubmission) {
		// Another request already wrote this submission; return its result.
		released()
		existing, lookupErr := s.store.FindAssetByIdempotencyKey(ctx, key)
		if lookupErr != nil || existing == nil {
			return nil, errConflict("DUPLICATE_SUBMISSION", "submission already in progress")
		}
		return s.submitResponse(ctx, *existing, true)
	}
	if err != nil {
		released()
		return nil, err
	}

	// The version transition is committed; a workflow that fails to open is
	// logged, never surfaced as a failed submit.
	if err := s.openWorkflow(ctx, session, submitted, input); err != nil {
		log.Printf("submit: open workflow for %s: %v", submitted.ID, err)
	}
	return s.submitResponse(ctx, submitted, false)
}

func (s *Service) submitFirstVersion(ctx context.Context, session Session, projectID, subtype string, input SubmitPlanInput) (map[string]any, error) {
	if len(input.Content) == 0 {
		return nil, errValidation("content is required for the first submission", nil)
	}
	if err := store.ValidateContent(store.TypePlan, input.Content); err != nil {
		return nil, errValidation(err.Error(), nil)
	}

	key := submitKey(store.Asset{}, projectID, subtype, 1)
	released, err := s.reserveKey(ctx, key, session.UserID)
	if err != nil {
		var replay *replayError
		if errors.As(err, &replay) {
			return s.submitResponse(ctx, replay.asset, true)
		}
		return nil, err
	}

	first := store.Asset{
		ID:             util.NewID("ast"),
		AssetUID:       util.NewID("doc"),
		ProjectID:      projectID,
		Type:           store.TypePlan,
		Subtype:        subtype,
		Version:        1,
		IsCurrent:      true,
		Status:         "in_review",
		ApprovalState:  store.ApprovalPending,
		RevisionCode:   "A",
		Content:        input.Content,
		IdempotencyKey: key,
		ChangeLog:      input.ChangeLog,
		CreatedBy:      session.UserID,
		UpdatedBy:      session.UserID,
	}
	if err := s.store.InsertAsset(ctx, first); err != nil {
		released()
		if errors.Is(err, store.ErrDuplicateSubmission) || errors.Is(err, store.ErrHeadConflict) {
			existing, lookupErr := s.store.FindAssetByIdempotencyKey(ctx, key)
			if lookupErr == nil && existing != nil {
				return s.submitResponse(ctx, *existing, true)
			}
			return nil, errConflict("DUPLICATE_SUBMISSION", "submission already in progress")
		}
		return nil, err
	}

	if err := s.openWorkflow(ctx, session, first, input); err != nil {
		log.Printf("submit: open workflow for %s: %v", first.ID, err)
	}
	return s.submitResponse(ctx, first, false)
}

// reserveKey claims the submission key in Redis when a locker is configured.
// The returned func releases the claim; it is a no-op after a successful write
// because the database row now owns the key.
func (s *Service) reserveKey(ctx context.Context, key, userID string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	ok, err := s.locker.Reserve(ctx, key, userID)
	if err != nil {
		// Redis being down must not block submissions.
		log.Printf("idempotency: reserve %s: %v", key, err)
		return func() {}, nil
	}
	if !ok {
		existing, lookupErr := s.store.FindAssetByIdempotencyKey(ctx, key)
		if lookupErr == nil && existing != nil {
			return nil, &replayError{asset: *existing}
		}
		return nil, errConflict("SUBMISSION_IN_FLIGHT", "an identical submission is already being processed")
	}
	return func() {
		if err := s.locker.Release(ctx, key); err != nil {
			log.Printf("idempotency: release %s: %v", key, err)
		}
	}, nil
}

// replayError carries an already-written submission up to the handler so it
// can be replayed as a success.
type replayError struct {
	asset store.Asset
}

func (e *replayError) Error() string { return "submission replay" }

func (s *Service) openWorkflow(ctx context.Context, session Session, target store.Asset, input SubmitPlanInput) error {
	definition := []store.WorkflowStep{{ApprovalType: "any_of", Approvers: input.Approvers}}
	dueDate := time.Now().AddDate(0, 0, 14)
	if input.DueDate != nil {
		dueDate = *input.DueDate
	}
	content, err := json.Marshal(store.WorkflowContent{
		TargetAssetID: target.ID,
		CurrentStep:   0,
		Definition:    definition,
		RequestedBy:   session.UserID,
		Priority:      input.Priority,
		DueDate:       dueDate,
	})
	if err != nil {
		return fmt.Errorf("marshal workflow content: %w", err)
	}

	wf := store.Asset{
		ID:            util.NewID("ast"),
		AssetUID:      util.NewID("wf"),
		ProjectID:     target.ProjectID,
		Type:          store.TypeWorkflow,
		Version:       1,
		IsCurrent:     true,
		Status:        workflow.StatusPending,
		ApprovalState: store.ApprovalPending,
		Content:       content,
		CreatedBy:     session.UserID,
		UpdatedBy:     session.UserID,
	}
	if err := s.store.InsertAsset(ctx, wf); err != nil {
		return fmt.Errorf("open workflow: %w", err)
	}

	// Best-effort fan-out. The submission already committed; failures here are
	// logged, never surfaced.
	if s.graph != nil {
		if err := s.graph.LinkEvidence(ctx, wf.ID, target.ID); err != nil {
			log.Printf("graph: link workflow %s -> %s: %v", wf.ID, target.ID, err)
		}
	}
	if s.search != nil {
		s.search.IndexAsset(assetRecord(target))
		s.search.IndexWorkflow(workflowRecord(wf, target.ID, "", ""))
	}
	return nil
}

func (s *Service) submitResponse(ctx context.Context, submitted store.Asset, deduplicated bool) (map[string]any, error) {
	payload := map[string]any{
		"asset":        assetToJSON(submitted),
		"deduplicated": deduplicated,
	}
	if wf, err := s.store.LatestWorkflowForTarget(ctx, submitted.ID); err == nil && wf != nil {
		payload["workflow"] = workflowToJSON(*wf)
	}
	return payload, nil
}

// CommitRevision writes a new draft version of an asset. The change log is
// mandatory; every version must say what changed. Editing a version that is in
// review is rejected so the open workflow keeps pointing at frozen content.
func (s *Service) CommitRevision(ctx context.Context, session Session, assetID string, input CommitRevisionInput) (map[string]any, error) {
	if strings.TrimSpace(input.ChangeLog) == "" {
		return nil, errValidation("changeLog is required", nil)
	}

	parent, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, parent.ProjectID, session.UserID); err != nil {
		return nil, err
	}
	if !parent.IsCurrent {
		return nil, errConflict("STALE_HEAD", "a newer version of this asset already exists")
	}
	if parent.ApprovalState == store.ApprovalPending {
		return nil, errInvalidState("asset is in review; decide the workflow before editing")
	}

	content := parent.Content
	if len(input.Content) > 0 {
		if err := store.ValidateContent(parent.Type, input.Content); err != nil {
			return nil, errValidation(err.Error(), nil)
		}
		content = input.Content
	}

	// Pre-approval edits advance the draft letter; once a numeric code has
	// been issued the code only moves on approval.
	nextCode := parent.RevisionCode
	approved, err := s.store.LatestApprovedVersion(ctx, parent.AssetUID)
	if err != nil {
		return nil, err
	}
	if approved == nil {
		nextCode = revision.NextDraft(parent.RevisionCode)
	}

	created, err := s.store.CreateVersion(ctx, parent, store.VersionChanges{
		Status:        "draft",
		ApprovalState: store.ApprovalDraft,
		RevisionCode:  nextCode,
		Content:       content,
		ChangeLog:     input.ChangeLog,
		Actor:         session.UserID,
	})
	if err != nil {
		return nil, err
	}

	if s.search != nil {
		s.search.IndexAsset(assetRecord(created))
	}
	return map[string]any{"asset": assetToJSON(created)}, nil
}

// DecideWorkflow lands an approve or reject decision. The decision is bound to
// the workflow's frozen target version: approval stamps that version and
// advances its revision code, rejection sends it back to draft.
func (s *Service) DecideWorkflow(ctx context.Context, session Session, input DecideWorkflowInput) (map[string]any, error) {
	if strings.TrimSpace(input.WorkflowID) == "" {
		return nil, errValidation("workflowId is required", nil)
	}

	wf, err := s.store.GetAsset(ctx, input.WorkflowID)
	if err != nil {
		return nil, err
	}
	if wf.Type != store.TypeWorkflow {
		return nil, errNotFound("workflow not found")
	}
	if err := s.requireManage(ctx, wf.ProjectID, session.UserID); err != nil {
		return nil, err
	}

	var content store.WorkflowContent
	if err := json.Unmarshal(wf.Content, &content); err != nil {
		return nil, fmt.Errorf("decode workflow content: %w", err)
	}
	if !approverAllowed(content, session.UserID) {
		return nil, errForbidden()
	}

	nextStatus, err := workflow.Transition(wf.Status, input.Decision)
	if err != nil {
		if !workflow.CanDecide(wf.Status) {
			return nil, errInvalidState("workflow is already decided")
		}
		return nil, errValidation("decision must be approve or reject", nil)
	}

	target, err := s.store.GetAsset(ctx, content.TargetAssetID)
	if err != nil {
		return nil, fmt.Errorf("load workflow target: %w", err)
	}

	update := store.WorkflowDecisionUpdate{
		WorkflowID: wf.ID,
		Status:     nextStatus,
		Decision: store.WorkflowDecision{
			Decision:  input.Decision,
			DecidedBy: session.UserID,
			DecidedAt: time.Now().UTC(),
			Comment:   input.Comment,
		},
		TargetAssetID: target.ID,
		Actor:         session.UserID,
	}
	switch nextStatus {
	case workflow.StatusApproved:
		update.TargetStatus = "approved"
		update.ApprovalState = store.ApprovalApproved
		update.RevisionCode = revision.NextApproved(target.RevisionCode)
	case workflow.StatusRejected:
		update.TargetStatus = "draft"
		update.ApprovalState = store.ApprovalRejected
		update.RevisionCode = target.RevisionCode
	}

	changed, err := s.store.DecideWorkflow(ctx, update)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, errInvalidState("workflow is already decided")
	}

	if s.graph != nil {
		if err := s.graph.LinkEvidence(ctx, wf.ID, target.ID); err != nil {
			log.Printf("graph: link workflow %s -> %s: %v", wf.ID, target.ID, err)
		}
	}
	if s.search != nil {
		decided, err := s.store.GetAsset(ctx, target.ID)
		if err == nil {
			s.search.IndexAsset(assetRecord(decided))
		}
		s.search.IndexWorkflow(workflowRecord(wf, target.ID, input.Decision, input.Comment))
	}

	decidedWf, err := s.store.GetAsset(ctx, wf.ID)
	if err != nil {
		return nil, err
	}
	decidedTarget, err := s.store.GetAsset(ctx, target.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"workflow": workflowToJSON(decidedWf),
		"asset":    assetToJSON(decidedTarget),
	}, nil
}

func approverAllowed(content store.WorkflowContent, userID string) bool {
	if content.CurrentStep >= len(content.Definition) {
		return true
	}
	approvers := content.Definition[content.CurrentStep].Approvers
	if len(approvers) == 0 {
		return true
	}
	for _, a := range approvers {
		if a == userID {
			return true
		}
	}
	return false
}

// WorkflowsFor returns either the latest workflow bound to one asset version
// or the pending queue for a project, depending on the filter.
func (s *Service) WorkflowsFor(ctx context.Context, session Session, targetAssetID, projectID string) (map[string]any, error) {
	if targetAssetID != "" {
		target, err := s.store.GetAsset(ctx, targetAssetID)
		if err != nil {
			return nil, err
		}
		if err := s.requireAccess(ctx, target.ProjectID, session.UserID); err != nil {
			return nil, err
		}
		wf, err := s.store.LatestWorkflowForTarget(ctx, targetAssetID)
		if err != nil {
			return nil, err
		}
		if wf == nil {
			return map[string]any{"workflows": []any{}}, nil
		}
		return map[string]any{"workflows": []any{workflowToJSON(*wf)}}, nil
	}

	if projectID == "" {
		return nil, errValidation("targetAssetId or projectId is required", nil)
	}
	if err := s.requireAccess(ctx, projectID, session.UserID); err != nil {
		return nil, err
	}
	pending, err := s.store.ListPendingWorkflows(ctx, projectID)
	if err != nil {
		return nil, err
	}
	items := make([]any, 0, len(pending))
	for _, wf := range pending {
		items = append(items, workflowToJSON(wf))
	}
	return map[string]any{"workflows": items}, nil
}

// GetAsset returns one version by id.
func (s *Service) GetAsset(ctx context.Context, session Session, assetID string) (map[string]any, error) {
	item, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, item.ProjectID, session.UserID); err != nil {
		return nil, err
	}
	return map[string]any{"asset": assetToJSON(item)}, nil
}

// AssetHistory lists the full version chain of the asset's lineage.
func (s *Service) AssetHistory(ctx context.Context, session Session, assetID string) (map[string]any, error) {
	item, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, item.ProjectID, session.UserID); err != nil {
		return nil, err
	}
	versions, err := s.store.ListAssetVersions(ctx, item.AssetUID)
	if err != nil {
		return nil, err
	}
	items := make([]any, 0, len(versions))
	for _, v := range versions {
		items = append(items, assetToJSON(v))
	}
	return map[string]any{"assetUid": item.AssetUID, "versions": items}, nil
}

// DeleteAsset soft-deletes one version. Requires manage rights: removing a
// head silently changes what the whole project sees.
func (s *Service) DeleteAsset(ctx context.Context, session Session, assetID string) (map[string]any, error) {
	item, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if err := s.requireManage(ctx, item.ProjectID, session.UserID); err != nil {
		return nil, err
	}
	deleted, err := s.store.SoftDeleteAsset(ctx, assetID, session.UserID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, errNotFound("asset not found")
	}
	if s.search != nil {
		s.search.DeleteAsset(assetID)
	}
	return map[string]any{"ok": true}, nil
}

// ListAssets returns the current heads in a project.
func (s *Service) ListAssets(ctx context.Context, session Session, projectID, assetType string) (map[string]any, error) {
	if err := s.requireAccess(ctx, projectID, session.UserID); err != nil {
		return nil, err
	}
	heads, err := s.store.ListCurrentAssets(ctx, projectID, assetType)
	if err != nil {
		return nil, err
	}
	items := make([]any, 0, len(heads))
	for _, h := range heads {
		items = append(items, assetToJSON(h))
	}
	return map[string]any{"assets": items}, nil
}

// ProjectSummary returns dashboard counts for a project.
func (s *Service) ProjectSummary(ctx context.Context, session Session, projectID string) (map[string]any, error) {
	if err := s.requireAccess(ctx, projectID, session.UserID); err != nil {
		return nil, err
	}
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	assets, inReview, approved, err := s.store.ProjectSummaryCounts(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"project": map[string]any{
			"id":   project.ID,
			"name": project.Name,
			"code": project.Code,
		},
		"counts": map[string]any{
			"assets":   assets,
			"inReview": inReview,
			"approved": approved,
		},
	}, nil
}

// Search runs a full-text query, optionally scoped to one project.
func (s *Service) Search(ctx context.Context, session Session, q, filterType, projectID string, limit, offset int) (search.Response, error) {
	if projectID != "" {
		if err := s.requireAccess(ctx, projectID, session.UserID); err != nil {
			return search.Response{}, err
		}
	}
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q}, nil
	}
	return s.search.Search(search.Query{
		Text:            q,
		FilterType:      search.ResultType(filterType),
		FilterProjectID: projectID,
		Limit:           limit,
		Offset:          offset,
	}), nil
}

// ExportAsset renders one version as a PDF.
func (s *Service) ExportAsset(ctx context.Context, session Session, assetID string, includeHistory bool) (*export.Result, error) {
	item, err := s.store.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, item.ProjectID, session.UserID); err != nil {
		return nil, err
	}
	if s.exporter == nil {
		return nil, domainError(503, "EXPORT_UNAVAILABLE", "export service not configured", nil)
	}
	return s.exporter.Export(ctx, export.Request{
		AssetID:        assetID,
		Format:         export.FormatPDF,
		IncludeHistory: includeHistory,
	})
}

// submitKey chains off the parent version's key when it has one, so resubmits
// of the same lineage stay distinguishable; a parent without a key (or no
// parent at all) gets the deterministic form.
func submitKey(parent store.Asset, projectID, subtype string, version int) string {
	if parent.IdempotencyKey != "" {
		return fmt.Sprintf("%s:sub:v%d", parent.IdempotencyKey, version)
	}
	return fmt.Sprintf("plan-submit:%s:%s:v%d", projectID, subtype, version)
}

func assetRecord(a store.Asset) search.AssetRecord {
	return search.AssetRecord{
		ID:            a.ID,
		AssetUID:      a.AssetUID,
		Title:         store.ContentTitle(a.Content),
		Description:   contentDescription(a.Content),
		ProjectID:     a.ProjectID,
		AssetType:     a.Type,
		Subtype:       a.Subtype,
		ApprovalState: a.ApprovalState,
		RevisionCode:  a.RevisionCode,
		Version:       a.Version,
	}
}

func workflowRecord(wf store.Asset, targetAssetID, decision, comment string) search.WorkflowRecord {
	return search.WorkflowRecord{
		ID:            wf.ID,
		TargetAssetID: targetAssetID,
		ProjectID:     wf.ProjectID,
		Status:        wf.Status,
		Decision:      decision,
		Comment:       comment,
	}
}

func contentDescription(raw json.RawMessage) string {
	var probe struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.Description
}

func assetToJSON(a store.Asset) map[string]any {
	item := map[string]any{
		"id":            a.ID,
		"assetUid":      a.AssetUID,
		"projectId":     a.ProjectID,
		"type":          a.Type,
		"version":       a.Version,
		"isCurrent":     a.IsCurrent,
		"status":        a.Status,
		"approvalState": a.ApprovalState,
		"revisionCode":  a.RevisionCode,
		"content":       json.RawMessage(a.Content),
		"changeLog":     a.ChangeLog,
		"createdBy":     a.CreatedBy,
		"createdAt":     a.CreatedAt,
		"updatedBy":     a.UpdatedBy,
		"updatedAt":     a.UpdatedAt,
	}
	if a.Subtype != "" {
		item["subtype"] = a.Subtype
	}
	if a.SupersedesAssetID != nil {
		item["supersedesAssetId"] = *a.SupersedesAssetID
	}
	return item
}

func workflowToJSON(wf store.Asset) map[string]any {
	item := map[string]any{
		"id":        wf.ID,
		"projectId": wf.ProjectID,
		"status":    wf.Status,
		"createdBy": wf.CreatedBy,
		"createdAt": wf.CreatedAt,
		"updatedAt": wf.UpdatedAt,
	}
	var content store.WorkflowContent
	if err := json.Unmarshal(wf.Content, &content); err == nil {
		item["targetAssetId"] = content.TargetAssetID
		item["requestedBy"] = content.RequestedBy
		item["dueDate"] = content.DueDate
		if content.Priority != "" {
			item["priority"] = content.Priority
		}
		if content.Decision != nil {
			item["decision"] = content.Decision
		}
	}
	return item
}
