package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"siteworks/api/internal/util"
)

// These tests need a live Postgres with migrations applied. They cover the
// invariants the asset table exists to defend: one live head per lineage,
// version chains that never fork, and duplicate submissions that fail hard.

func TestCreateVersionMovesTheHead(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db := openTestDB(t, ctx)
	defer db.Close()
	s := NewPostgresStore(db)

	projectID, userID := seedProject(t, ctx, db)

	v1 := testPlanAsset(projectID, userID)
	if err := s.InsertAsset(ctx, v1); err != nil {
		t.Fatalf("insert v1: %v", err)
	}

	v2, err := s.CreateVersion(ctx, v1, VersionChanges{
		ChangeLog: "tightened concrete pour tolerances",
		Actor:     userID,
	})
	if err != nil {
		t.Fatalf("create v2: %v", err)
	}
	if v2.Version != 2 {
		t.Fatalf("expected version 2, got %d", v2.Version)
	}
	if v2.SupersedesAssetID == nil || *v2.SupersedesAssetID != v1.ID {
		t.Fatalf("v2 should supersede v1")
	}
	if v2.ChangeLog != "tightened concrete pour tolerances" {
		t.Fatalf("change log not carried: %q", v2.ChangeLog)
	}

	head, err := s.GetCurrentAsset(ctx, v1.AssetUID)
	if err != nil {
		t.Fatalf("get current: %v", err)
	}
	if head.ID != v2.ID {
		t.Fatalf("head should be v2, got %s", head.ID)
	}

	parent, err := s.GetAsset(ctx, v1.ID)
	if err != nil {
		t.Fatalf("get v1: %v", err)
	}
	if parent.IsCurrent {
		t.Fatal("v1 should no longer be current")
	}

	history, err := s.ListAssetVersions(ctx, v1.AssetUID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(history) != 2 || history[0].Version != 1 || history[1].Version != 2 {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestCreateVersionFromStaleParentFails(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db := openTestDB(t, ctx)
	defer db.Close()
	s := NewPostgresStore(db)

	projectID, userID := seedProject(t, ctx, db)

	v1 := testPlanAsset(projectID, userID)
	if err := s.InsertAsset(ctx, v1); err != nil {
		t.Fatalf("insert v1: %v", err)
	}
	if _, err := s.CreateVersion(ctx, v1, VersionChanges{ChangeLog: "first edit", Actor: userID}); err != nil {
		t.Fatalf("create v2: %v", err)
	}

	// v1 is stale now; the conditional flip must hit zero rows.
	_, err := s.CreateVersion(ctx, v1, VersionChanges{ChangeLog: "racing edit", Actor: userID})
	if !errors.Is(err, ErrHeadConflict) {
		t.Fatalf("expected ErrHeadConflict, got %v", err)
	}

	history, err := s.ListAssetVersions(ctx, v1.AssetUID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("losing writer must not add a version, got %d", len(history))
	}
}

func TestDuplicateIdempotencyKeyFails(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db := openTestDB(t, ctx)
	defer db.Close()
	s := NewPostgresStore(db)

	projectID, userID := seedProject(t, ctx, db)

	v1 := testPlanAsset(projectID, userID)
	if err := s.InsertAsset(ctx, v1); err != nil {
		t.Fatalf("insert v1: %v", err)
	}

	key := "plan-submit:" + projectID + ":pqp:v2"
	v2, err := s.CreateVersion(ctx, v1, VersionChanges{IdempotencyKey: key, Actor: userID})
	if err != nil {
		t.Fatalf("create v2: %v", err)
	}

	_, err = s.CreateVersion(ctx, v2, VersionChanges{IdempotencyKey: key, Actor: userID})
	if !errors.Is(err, ErrDuplicateSubmission) {
		t.Fatalf("expected ErrDuplicateSubmission, got %v", err)
	}

	found, err := s.FindAssetByIdempotencyKey(ctx, key)
	if err != nil {
		t.Fatalf("find by key: %v", err)
	}
	if found == nil || found.ID != v2.ID {
		t.Fatal("idempotency key should resolve to the first write")
	}

	// The failed insert rolled back the flip, so v2 is still the head.
	head, err := s.GetCurrentAsset(ctx, v1.AssetUID)
	if err != nil {
		t.Fatalf("get current: %v", err)
	}
	if head.ID != v2.ID {
		t.Fatalf("head should still be v2, got %s", head.ID)
	}
}

func TestDecideWorkflowIsSerialized(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	db := openTestDB(t, ctx)
	defer db.Close()
	s := NewPostgresStore(db)

	projectID, userID := seedProject(t, ctx, db)

	target := testPlanAsset(projectID, userID)
	target.Status = "in_review"
	target.ApprovalState = ApprovalPending
	if err := s.InsertAsset(ctx, target); err != nil {
		t.Fatalf("insert target: %v", err)
	}

	content, _ := json.Marshal(WorkflowContent{
		TargetAssetID: target.ID,
		Definition:    []WorkflowStep{{ApprovalType: "any_of", Approvers: []string{userID}}},
		RequestedBy:   userID,
	})
	wf := Asset{
		ID:            util.NewID("ast"),
		AssetUID:      util.NewID("wf"),
		ProjectID:     projectID,
		Type:          TypeWorkflow,
		Version:       1,
		IsCurrent:     true,
		Status:        "pending",
		ApprovalState: ApprovalPending,
		Content:       content,
		CreatedBy:     userID,
	}
	if err := s.InsertAsset(ctx, wf); err != nil {
		t.Fatalf("insert workflow: %v", err)
	}

	update := WorkflowDecisionUpdate{
		WorkflowID:    wf.ID,
		Status:        "approved",
		Decision:      WorkflowDecision{Decision: "approve", DecidedBy: userID},
		TargetAssetID: target.ID,
		TargetStatus:  "approved",
		ApprovalState: ApprovalApproved,
		RevisionCode:  "1",
		Actor:         userID,
	}
	changed, err := s.DecideWorkflow(ctx, update)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if !changed {
		t.Fatal("first decision should win")
	}

	changed, err = s.DecideWorkflow(ctx, update)
	if err != nil {
		t.Fatalf("second decide: %v", err)
	}
	if changed {
		t.Fatal("second decision must be a no-op")
	}

	got, err := s.GetAsset(ctx, target.ID)
	if err != nil {
		t.Fatalf("get target: %v", err)
	}
	if got.ApprovalState != ApprovalApproved || got.RevisionCode != "1" {
		t.Fatalf("target not stamped: state=%s rev=%s", got.ApprovalState, got.RevisionCode)
	}

	latest, err := s.LatestWorkflowForTarget(ctx, target.ID)
	if err != nil {
		t.Fatalf("latest workflow: %v", err)
	}
	if latest == nil || latest.ID != wf.ID || latest.Status != "approved" {
		t.Fatalf("unexpected latest workflow: %+v", latest)
	}
}

func testPlanAsset(projectID, userID string) Asset {
	content, _ := json.Marshal(PlanContent{Title: "Project Quality Plan"})
	return Asset{
		ID:            util.NewID("ast"),
		AssetUID:      util.NewID("doc"),
		ProjectID:     projectID,
		Type:          TypePlan,
		Subtype:       "pqp",
		Version:       1,
		IsCurrent:     true,
		Status:        "draft",
		ApprovalState: ApprovalDraft,
		RevisionCode:  "A",
		Content:       content,
		CreatedBy:     userID,
	}
}

func seedProject(t *testing.T, ctx context.Context, db *sql.DB) (projectID, userID string) {
	t.Helper()

	orgID := util.NewID("org")
	userID = util.NewID("usr")
	projectID = util.NewID("prj")

	stmts := []struct {
		query string
		args  []any
	}{
		{`INSERT INTO organizations (id, name) VALUES ($1, $2)`, []any{orgID, "Test Org"}},
		{`INSERT INTO users (id, display_name, email) VALUES ($1, $2, $3)`, []any{userID, "Test User", userID + "@example.com"}},
		{`INSERT INTO org_memberships (org_id, user_id) VALUES ($1, $2)`, []any{orgID, userID}},
		{`INSERT INTO projects (id, org_id, name, code) VALUES ($1, $2, $3, $4)`, []any{projectID, orgID, "Test Project", projectID}},
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return projectID, userID
}

func openTestDB(t *testing.T, ctx context.Context) *sql.DB {
	t.Helper()

	databaseURL := getTestDatabaseURL(t)
	db, err := Open(ctx, databaseURL)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

// getTestDatabaseURL returns the database URL for testing.
// It checks the TEST_DATABASE_URL environment variable first,
// then falls back to a default local development URL.
func getTestDatabaseURL(t *testing.T) string {
	t.Helper()

	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		return url
	}

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "siteworks")
	pass := envOr("POSTGRES_PASSWORD", "siteworks")
	dbname := envOr("POSTGRES_DB", "siteworks_test")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + dbname + "?sslmode=disable"
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
