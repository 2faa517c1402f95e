package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search queries the assets table with plainto_tsquery and ts_rank, using
// ts_headline for snippets. Documents and workflows are two sub-queries over
// the same table, split on type.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultAsset {
		where := "a.search_vector @@ " + tsQuery +
			" AND a.type <> 'approval_workflow' AND a.is_current AND NOT a.is_deleted"
		if q.FilterProjectID != "" {
			where += fmt.Sprintf(" AND a.project_id = $%d", argN)
			args = append(args, q.FilterProjectID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'asset'::text AS type, a.id, a.asset_uid,
				COALESCE(a.content->>'title', '') AS title,
				ts_headline('english', COALESCE(a.content->>'description', ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				a.project_id, a.type AS asset_type, COALESCE(a.subtype, '') AS subtype,
				a.approval_state, a.revision_code,
				ts_rank(a.search_vector, %s) AS rank
			FROM assets a
			WHERE %s`, tsQuery, tsQuery, where))
	}

	if q.FilterType == "" || q.FilterType == ResultWorkflow {
		where := "a.search_vector @@ " + tsQuery +
			" AND a.type = 'approval_workflow' AND NOT a.is_deleted"
		if q.FilterProjectID != "" {
			where += fmt.Sprintf(" AND a.project_id = $%d", argN)
			args = append(args, q.FilterProjectID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'workflow'::text AS type, a.id,
				COALESCE(a.content->>'target_asset_id', '') AS asset_uid,
				COALESCE(a.content->'decision'->>'decision', '') AS title,
				ts_headline('english', COALESCE(a.content->'decision'->>'comment', ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				a.project_id, a.type AS asset_type, ''::text AS subtype,
				a.status AS approval_state, a.revision_code,
				ts_rank(a.search_vector, %s) AS rank
			FROM assets a
			WHERE %s`, tsQuery, tsQuery, where))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, asset_uid, title, snippet, project_id, asset_type, subtype, approval_state, revision_code
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.AssetUID, &r.Title, &r.Snippet, &r.ProjectID, &r.AssetType, &r.Subtype, &r.ApprovalState, &r.RevisionCode); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]AssetRecord, []WorkflowRecord, error) {
	assetRows, err := p.db.QueryContext(ctx, `
		SELECT id, asset_uid, COALESCE(content->>'title', ''), COALESCE(content->>'description', ''),
			project_id, type, COALESCE(subtype, ''), approval_state, revision_code, version
		FROM assets
		WHERE type <> 'approval_workflow' AND is_current AND NOT is_deleted
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load assets: %w", err)
	}
	defer assetRows.Close()

	assets := make([]AssetRecord, 0)
	for assetRows.Next() {
		var a AssetRecord
		if err := assetRows.Scan(&a.ID, &a.AssetUID, &a.Title, &a.Description, &a.ProjectID, &a.AssetType, &a.Subtype, &a.ApprovalState, &a.RevisionCode, &a.Version); err != nil {
			return nil, nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	if err := assetRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate assets: %w", err)
	}

	workflowRows, err := p.db.QueryContext(ctx, `
		SELECT id, COALESCE(content->>'target_asset_id', ''), project_id, status,
			COALESCE(content->'decision'->>'decision', ''), COALESCE(content->'decision'->>'comment', '')
		FROM assets
		WHERE type = 'approval_workflow' AND NOT is_deleted
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load workflows: %w", err)
	}
	defer workflowRows.Close()

	workflows := make([]WorkflowRecord, 0)
	for workflowRows.Next() {
		var w WorkflowRecord
		if err := workflowRows.Scan(&w.ID, &w.TargetAssetID, &w.ProjectID, &w.Status, &w.Decision, &w.Comment); err != nil {
			return nil, nil, fmt.Errorf("scan workflow: %w", err)
		}
		workflows = append(workflows, w)
	}
	if err := workflowRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate workflows: %w", err)
	}

	return assets, workflows, nil
}
