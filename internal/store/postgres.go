package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"siteworks/api/internal/access"
	"siteworks/api/internal/util"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

const assetColumns = `id, asset_uid, project_id, type, COALESCE(subtype, ''), version, is_current,
	supersedes_asset_id, status, approval_state, revision_code, content,
	COALESCE(idempotency_key, ''), COALESCE(change_log, ''), is_deleted,
	created_by, created_at, updated_by, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (Asset, error) {
	var item Asset
	var supersedes sql.NullString
	var content []byte
	err := row.Scan(
		&item.ID,
		&item.AssetUID,
		&item.ProjectID,
		&item.Type,
		&item.Subtype,
		&item.Version,
		&item.IsCurrent,
		&supersedes,
		&item.Status,
		&item.ApprovalState,
		&item.RevisionCode,
		&content,
		&item.IdempotencyKey,
		&item.ChangeLog,
		&item.IsDeleted,
		&item.CreatedBy,
		&item.CreatedAt,
		&item.UpdatedBy,
		&item.UpdatedAt,
	)
	if err != nil {
		return Asset{}, err
	}
	if supersedes.Valid {
		item.SupersedesAssetID = &supersedes.String
	}
	item.Content = json.RawMessage(content)
	return item, nil
}

// GetCurrentAsset returns the single live head for an asset_uid. A soft-deleted
// head leaves the uid headless, so sql.ErrNoRows is possible even for known uids.
func (s *PostgresStore) GetCurrentAsset(ctx context.Context, assetUID string) (Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE asset_uid=$1 AND is_current=true AND is_deleted=false
	`, assetUID)
	return scanAsset(row)
}

func (s *PostgresStore) GetAsset(ctx context.Context, assetID string) (Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE id=$1 AND is_deleted=false
	`, assetID)
	return scanAsset(row)
}

// GetCurrentPlan resolves the live head of a project plan by subtype (pqp,
// hse, quality, ...).
func (s *PostgresStore) GetCurrentPlan(ctx context.Context, projectID, subtype string) (Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE project_id=$1 AND type=$2 AND subtype=$3 AND is_current=true AND is_deleted=false
	`, projectID, TypePlan, subtype)
	return scanAsset(row)
}

func (s *PostgresStore) ListAssetVersions(ctx context.Context, assetUID string) ([]Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE asset_uid=$1 AND is_deleted=false
		ORDER BY version ASC
	`, assetUID)
	if err != nil {
		return nil, fmt.Errorf("list asset versions: %w", err)
	}
	defer rows.Close()

	items := make([]Asset, 0)
	for rows.Next() {
		item, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset version: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate asset versions: %w", err)
	}
	return items, nil
}

// ListCurrentAssets returns the live heads in a project, optionally filtered
// by type. Workflow assets are excluded; they are listed via the queue.
func (s *PostgresStore) ListCurrentAssets(ctx context.Context, projectID, assetType string) ([]Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE project_id=$1
		  AND is_current=true AND is_deleted=false
		  AND type <> $2
		  AND ($3='' OR type=$3)
		ORDER BY updated_at DESC
	`, projectID, TypeWorkflow, assetType)
	if err != nil {
		return nil, fmt.Errorf("list current assets: %w", err)
	}
	defer rows.Close()

	items := make([]Asset, 0)
	for rows.Next() {
		item, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan current asset: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate current assets: %w", err)
	}
	return items, nil
}

// FindAssetByIdempotencyKey returns the version already written for a
// submission key, or nil when the key is unused.
func (s *PostgresStore) FindAssetByIdempotencyKey(ctx context.Context, key string) (*Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE idempotency_key=$1 AND is_deleted=false
	`, key)
	item, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find asset by idempotency key: %w", err)
	}
	return &item, nil
}

// LatestApprovedVersion returns the newest approved version in the uid's
// history, or nil when the document has never been approved.
func (s *PostgresStore) LatestApprovedVersion(ctx context.Context, assetUID string) (*Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE asset_uid=$1 AND approval_state=$2 AND is_deleted=false
		ORDER BY version DESC
		LIMIT 1
	`, assetUID, ApprovalApproved)
	item, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest approved version: %w", err)
	}
	return &item, nil
}

func (s *PostgresStore) InsertAsset(ctx context.Context, item Asset) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (id, asset_uid, project_id, type, subtype, version, is_current,
			supersedes_asset_id, status, approval_state, revision_code, content,
			idempotency_key, change_log, created_by, updated_by)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12::jsonb, NULLIF($13, ''), NULLIF($14, ''), $15, $15)
	`, item.ID, item.AssetUID, item.ProjectID, item.Type, item.Subtype, item.Version, item.IsCurrent,
		item.SupersedesAssetID, item.Status, item.ApprovalState, item.RevisionCode, string(item.Content),
		item.IdempotencyKey, item.ChangeLog, item.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert asset: %w", translateConstraint(err))
	}
	return nil
}

// CreateVersion writes version N+1 in one transaction: flip the parent head
// off with a conditional update, then insert the successor. Losing the flip
// race fails with ErrHeadConflict and writes nothing.
func (s *PostgresStore) CreateVersion(ctx context.Context, parent Asset, changes VersionChanges) (Asset, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Asset{}, fmt.Errorf("begin version tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE assets
		SET is_current=false, updated_by=$2, updated_at=NOW()
		WHERE id=$1 AND is_current=true
	`, parent.ID, changes.Actor)
	if err != nil {
		return Asset{}, fmt.Errorf("flip current head: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return Asset{}, fmt.Errorf("flip current head rows: %w", err)
	}
	if affected == 0 {
		return Asset{}, ErrHeadConflict
	}

	next := parent
	next.ID = util.NewID("ast")
	next.Version = parent.Version + 1
	next.IsCurrent = true
	next.SupersedesAssetID = &parent.ID
	next.CreatedBy = changes.Actor
	next.UpdatedBy = changes.Actor
	next.IdempotencyKey = changes.IdempotencyKey
	next.ChangeLog = changes.ChangeLog
	if changes.Status != "" {
		next.Status = changes.Status
	}
	if changes.ApprovalState != "" {
		next.ApprovalState = changes.ApprovalState
	}
	if changes.RevisionCode != "" {
		next.RevisionCode = changes.RevisionCode
	}
	if changes.Content != nil {
		next.Content = changes.Content
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO assets (id, asset_uid, project_id, type, subtype, version, is_current,
			supersedes_asset_id, status, approval_state, revision_code, content,
			idempotency_key, change_log, created_by, updated_by)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, true, $7, $8, $9, $10, $11::jsonb, NULLIF($12, ''), NULLIF($13, ''), $14, $14)
		RETURNING created_at, updated_at
	`, next.ID, next.AssetUID, next.ProjectID, next.Type, next.Subtype, next.Version,
		next.SupersedesAssetID, next.Status, next.ApprovalState, next.RevisionCode, string(next.Content),
		next.IdempotencyKey, next.ChangeLog, changes.Actor).Scan(&next.CreatedAt, &next.UpdatedAt)
	if err != nil {
		return Asset{}, fmt.Errorf("insert version: %w", translateConstraint(err))
	}

	if err := tx.Commit(); err != nil {
		return Asset{}, fmt.Errorf("commit version tx: %w", err)
	}
	return next, nil
}

// SoftDeleteAsset marks one version deleted. Deleting the current head leaves
// the asset_uid headless on purpose; a new version re-establishes the head.
func (s *PostgresStore) SoftDeleteAsset(ctx context.Context, assetID, actor string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE assets
		SET is_deleted=true, updated_by=$2, updated_at=NOW()
		WHERE id=$1 AND is_deleted=false
	`, assetID, actor)
	if err != nil {
		return false, fmt.Errorf("soft delete asset: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("soft delete asset rows: %w", err)
	}
	return affected > 0, nil
}

// DecideWorkflow resolves a pending workflow and stamps the target asset's
// approval metadata in the same transaction. The conditional status check
// serializes concurrent decisions: the second caller sees changed=false.
func (s *PostgresStore) DecideWorkflow(ctx context.Context, update WorkflowDecisionUpdate) (bool, error) {
	decision, err := json.Marshal(update.Decision)
	if err != nil {
		return false, fmt.Errorf("marshal workflow decision: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin decide tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE assets
		SET status=$2, approval_state=$2, content=jsonb_set(content, '{decision}', $3::jsonb),
			updated_by=$4, updated_at=NOW()
		WHERE id=$1 AND type=$5 AND status=$6
	`, update.WorkflowID, update.Status, string(decision), update.Actor, TypeWorkflow, "pending")
	if err != nil {
		return false, fmt.Errorf("resolve workflow: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve workflow rows: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE assets
		SET approval_state=$2, revision_code=$3, status=$4, updated_by=$5, updated_at=NOW()
		WHERE id=$1
	`, update.TargetAssetID, update.ApprovalState, update.RevisionCode, update.TargetStatus, update.Actor); err != nil {
		return false, fmt.Errorf("update target approval: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit decide tx: %w", err)
	}
	return true, nil
}

// LatestWorkflowForTarget returns the newest workflow bound to a specific
// asset version, or nil when none was ever opened.
func (s *PostgresStore) LatestWorkflowForTarget(ctx context.Context, targetAssetID string) (*Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE type=$1 AND content->>'target_asset_id'=$2 AND is_deleted=false
		ORDER BY created_at DESC
		LIMIT 1
	`, TypeWorkflow, targetAssetID)
	item, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest workflow for target: %w", err)
	}
	return &item, nil
}

// ListPendingWorkflows returns the open review queue for a project.
func (s *PostgresStore) ListPendingWorkflows(ctx context.Context, projectID string) ([]Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assetColumns+`
		FROM assets
		WHERE project_id=$1 AND type=$2 AND status='pending' AND is_deleted=false
		ORDER BY created_at ASC
	`, projectID, TypeWorkflow)
	if err != nil {
		return nil, fmt.Errorf("list pending workflows: %w", err)
	}
	defer rows.Close()

	items := make([]Asset, 0)
	for rows.Next() {
		item, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending workflow: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending workflows: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetProject(ctx context.Context, projectID string) (Project, error) {
	var item Project
	err := s.db.QueryRowContext(ctx, `
		SELECT id, org_id, name, code, created_at, updated_at
		FROM projects
		WHERE id=$1
	`, projectID).Scan(&item.ID, &item.OrgID, &item.Name, &item.Code, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Project{}, err
	}
	return item, nil
}

// GetProjectAccess loads the membership facts the access guard evaluates:
// owning-org membership and the project membership row with its permissions.
func (s *PostgresStore) GetProjectAccess(ctx context.Context, projectID, userID string) (access.Membership, error) {
	var membership access.Membership

	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1
			FROM org_memberships om
			JOIN projects p ON p.org_id = om.org_id
			WHERE p.id=$1 AND om.user_id=$2
		)
	`, projectID, userID).Scan(&membership.IsOrgMember)
	if err != nil {
		return access.Membership{}, fmt.Errorf("check org membership: %w", err)
	}

	var permissionsRaw []byte
	err = s.db.QueryRowContext(ctx, `
		SELECT permissions
		FROM project_memberships
		WHERE project_id=$1 AND user_id=$2
	`, projectID, userID).Scan(&permissionsRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return membership, nil
	}
	if err != nil {
		return access.Membership{}, fmt.Errorf("read project membership: %w", err)
	}

	membership.IsProjectMember = true
	var permissions []string
	if err := json.Unmarshal(permissionsRaw, &permissions); err != nil {
		return access.Membership{}, fmt.Errorf("decode membership permissions: %w", err)
	}
	membership.Permissions = access.ParsePermissions(permissions)
	return membership, nil
}

// ProjectSummaryCounts feeds the project dashboard header.
func (s *PostgresStore) ProjectSummaryCounts(ctx context.Context, projectID string) (assets int, inReview int, approved int, err error) {
	if err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM assets
		WHERE project_id=$1 AND is_current=true AND is_deleted=false AND type <> $2
	`, projectID, TypeWorkflow).Scan(&assets); err != nil {
		err = fmt.Errorf("count project assets: %w", err)
		return
	}
	if err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM assets
		WHERE project_id=$1 AND type=$2 AND status='pending' AND is_deleted=false
	`, projectID, TypeWorkflow).Scan(&inReview); err != nil {
		err = fmt.Errorf("count open reviews: %w", err)
		return
	}
	if err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM assets
		WHERE project_id=$1 AND is_current=true AND is_deleted=false
		  AND approval_state=$2 AND type <> $3
	`, projectID, ApprovalApproved, TypeWorkflow).Scan(&approved); err != nil {
		err = fmt.Errorf("count approved assets: %w", err)
		return
	}
	return
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, created_at
		FROM users
		WHERE id=$1
	`, userID).Scan(&user.ID, &user.DisplayName, &user.Email, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// translateConstraint maps Postgres unique violations onto store sentinels so
// callers never inspect SQLSTATEs themselves.
func translateConstraint(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.SQLState() != "23505" {
		return err
	}
	if strings.Contains(pgErr.ConstraintName, "idempotency") {
		return ErrDuplicateSubmission
	}
	if strings.Contains(pgErr.ConstraintName, "current_head") {
		return ErrHeadConflict
	}
	return err
}
