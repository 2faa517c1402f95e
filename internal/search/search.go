package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultAsset    ResultType = "asset"
	ResultWorkflow ResultType = "workflow"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type          ResultType `json:"type"`
	ID            string     `json:"id"`
	AssetUID      string     `json:"assetUid,omitempty"`
	Title         string     `json:"title"`
	Snippet       string     `json:"snippet"`
	ProjectID     string     `json:"projectId"`
	AssetType     string     `json:"assetType,omitempty"`
	Subtype       string     `json:"subtype,omitempty"`
	ApprovalState string     `json:"approvalState,omitempty"`
	RevisionCode  string     `json:"revisionCode,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text            string
	FilterType      ResultType // empty = all types
	FilterProjectID string
	Limit           int
	Offset          int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexAsset(a AssetRecord) error
	IndexWorkflow(w WorkflowRecord) error
	DeleteAsset(id string) error
}

// AssetRecord is the data we index for a current asset version.
type AssetRecord struct {
	ID            string `json:"id"`
	AssetUID      string `json:"assetUid"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	ProjectID     string `json:"projectId"`
	AssetType     string `json:"assetType"`
	Subtype       string `json:"subtype"`
	ApprovalState string `json:"approvalState"`
	RevisionCode  string `json:"revisionCode"`
	Version       int    `json:"version"`
}

// WorkflowRecord is the data we index for a resolved approval workflow.
type WorkflowRecord struct {
	ID            string `json:"id"`
	TargetAssetID string `json:"targetAssetId"`
	ProjectID     string `json:"projectId"`
	Status        string `json:"status"`
	Decision      string `json:"decision"`
	Comment       string `json:"comment"`
}
