package search

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const (
	idxAssets    = "siteworks_assets"
	idxWorkflows = "siteworks_workflows"
)

// Meili implements Searcher and Indexer via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures indexes. An unreachable
// instance is tolerated; the health loop reconfigures when it comes back.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndexes() {
	indexes := []struct {
		uid        string
		primaryKey string
		filterable []string
		searchable []string
	}{
		{
			uid:        idxAssets,
			primaryKey: "id",
			filterable: []string{"projectId", "assetType", "subtype", "approvalState"},
			searchable: []string{"title", "description"},
		},
		{
			uid:        idxWorkflows,
			primaryKey: "id",
			filterable: []string{"projectId", "status", "targetAssetId"},
			searchable: []string{"comment", "decision"},
		},
	}

	for _, idx := range indexes {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{
			Uid:        idx.uid,
			PrimaryKey: idx.primaryKey,
		}); err != nil {
			log.Printf("search: create index %s (may already exist): %v", idx.uid, err)
		}

		index := m.client.Index(idx.uid)
		filterableInterface := make([]interface{}, len(idx.filterable))
		for i, v := range idx.filterable {
			filterableInterface[i] = v
		}
		if _, err := index.UpdateFilterableAttributes(&filterableInterface); err != nil {
			log.Printf("search: update filterable attrs for %s: %v", idx.uid, err)
		}
		if _, err := index.UpdateSearchableAttributes(&idx.searchable); err != nil {
			log.Printf("search: update searchable attrs for %s: %v", idx.uid, err)
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries both indexes (or a filtered subset) and merges results.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	var queries []*meili.SearchRequest
	targetIndexes := []struct {
		uid  string
		rtyp ResultType
	}{
		{idxAssets, ResultAsset},
		{idxWorkflows, ResultWorkflow},
	}

	for _, ti := range targetIndexes {
		if q.FilterType != "" && q.FilterType != ti.rtyp {
			continue
		}
		sr := &meili.SearchRequest{
			IndexUID:              ti.uid,
			Limit:                 limit,
			Offset:                int64(q.Offset),
			AttributesToHighlight: []string{"*"},
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
			ShowRankingScore:      true,
		}

		if q.FilterProjectID != "" {
			sr.Filter = []string{fmt.Sprintf("projectId = %q", q.FilterProjectID)}
		}
		queries = append(queries, sr)
	}

	if len(queries) == 0 {
		return nil, 0, nil
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: queries,
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		rtyp := indexToResultType(sr.IndexUID)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit, rtyp))
		}
	}

	return results, total, nil
}

func indexToResultType(uid string) ResultType {
	switch uid {
	case idxAssets:
		return ResultAsset
	case idxWorkflows:
		return ResultWorkflow
	default:
		return ""
	}
}

func hitToResult(hit meili.Hit, rtyp ResultType) Result {
	r := Result{Type: rtyp}
	r.ID = decodeString(hit, "id")
	r.ProjectID = decodeString(hit, "projectId")

	switch rtyp {
	case ResultAsset:
		r.AssetUID = decodeString(hit, "assetUid")
		r.AssetType = decodeString(hit, "assetType")
		r.Subtype = decodeString(hit, "subtype")
		r.ApprovalState = decodeString(hit, "approvalState")
		r.RevisionCode = decodeString(hit, "revisionCode")
		r.Title = firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title"))
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "description"), decodeString(hit, "description"))
	case ResultWorkflow:
		r.AssetUID = decodeString(hit, "targetAssetId")
		r.ApprovalState = decodeString(hit, "status")
		r.Title = firstNonBlank(decodeFormattedString(hit, "decision"), decodeString(hit, "decision"))
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "comment"), decodeString(hit, "comment"))
	}
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]string
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	return strings.TrimSpace(formatted[key])
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// IndexAsset adds or updates an asset version in the search index.
func (m *Meili) IndexAsset(a AssetRecord) error {
	_, err := m.client.Index(idxAssets).AddDocuments([]AssetRecord{a}, nil)
	return err
}

// IndexWorkflow adds or updates a workflow in the search index.
func (m *Meili) IndexWorkflow(w WorkflowRecord) error {
	_, err := m.client.Index(idxWorkflows).AddDocuments([]WorkflowRecord{w}, nil)
	return err
}

// DeleteAsset removes an asset version from the search index.
func (m *Meili) DeleteAsset(id string) error {
	_, err := m.client.Index(idxAssets).DeleteDocument(id, nil)
	return err
}

// IndexAssets bulk-indexes asset versions.
func (m *Meili) IndexAssets(assets []AssetRecord) error {
	if len(assets) == 0 {
		return nil
	}
	_, err := m.client.Index(idxAssets).AddDocuments(assets, nil)
	return err
}

// IndexWorkflows bulk-indexes workflows.
func (m *Meili) IndexWorkflows(workflows []WorkflowRecord) error {
	if len(workflows) == 0 {
		return nil
	}
	_, err := m.client.Index(idxWorkflows).AddDocuments(workflows, nil)
	return err
}
