package export

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
)

// DataStore defines the interface for data access
type DataStore interface {
	GetAsset(ctx context.Context, id string) (AssetInfo, error)
	GetProject(ctx context.Context, id string) (ProjectInfo, error)
	ListVersions(ctx context.Context, assetUID string) ([]VersionInfo, error)
}

// Service renders asset versions into controlled documents.
type Service struct {
	store DataStore
}

// NewService creates a new export service
func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Export generates an export in the requested format. The rendered document
// carries the revision stamp of the exact version exported, not the head.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	asset, err := s.store.GetAsset(ctx, req.AssetID)
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}

	project, err := s.store.GetProject(ctx, asset.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	if len(asset.Content) == 0 {
		return nil, ErrContentUnavailable
	}

	title, description, bodyHTML := renderContent(asset.Type, asset.Content)
	if title == "" {
		title = asset.Subtype
	}

	data := TemplateData{
		Title:         title,
		Description:   description,
		BodyHTML:      template.HTML(bodyHTML),
		ProjectName:   project.Name,
		ProjectCode:   project.Code,
		RevisionCode:  asset.RevisionCode,
		Version:       asset.Version,
		ApprovalState: asset.ApprovalState,
		UpdatedBy:     asset.UpdatedBy,
		UpdatedAt:     asset.UpdatedAt,
	}

	if req.IncludeHistory {
		history, err := s.store.ListVersions(ctx, asset.AssetUID)
		if err != nil {
			return nil, fmt.Errorf("list versions: %w", err)
		}
		data.History = history
	}

	html, err := RenderDocumentHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatPDF:
		filename := sanitizeFilename(title)
		if asset.RevisionCode != "" {
			filename += "-rev" + asset.RevisionCode
		}
		return exportPDF(html, filename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}

// renderContent turns a typed content payload into escaped HTML. Unknown
// shapes degrade to an empty body rather than failing the export.
func renderContent(assetType string, raw []byte) (title, description, bodyHTML string) {
	switch assetType {
	case "plan":
		var content struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Sections    []struct {
				Heading string `json:"heading"`
				Body    string `json:"body"`
			} `json:"sections"`
		}
		if err := json.Unmarshal(raw, &content); err != nil {
			return "", "", ""
		}
		var b strings.Builder
		for _, section := range content.Sections {
			b.WriteString("<div class=\"section\"><h2>")
			b.WriteString(template.HTMLEscapeString(section.Heading))
			b.WriteString("</h2><p>")
			b.WriteString(template.HTMLEscapeString(section.Body))
			b.WriteString("</p></div>")
		}
		return content.Title, content.Description, b.String()
	case "ncr":
		var content struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Severity    string `json:"severity"`
			Location    string `json:"location"`
		}
		if err := json.Unmarshal(raw, &content); err != nil {
			return "", "", ""
		}
		var b strings.Builder
		if content.Severity != "" {
			b.WriteString("<p><strong>Severity:</strong> " + template.HTMLEscapeString(content.Severity) + "</p>")
		}
		if content.Location != "" {
			b.WriteString("<p><strong>Location:</strong> " + template.HTMLEscapeString(content.Location) + "</p>")
		}
		return content.Title, content.Description, b.String()
	case "itp":
		var content struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Checkpoints []struct {
				Activity  string `json:"activity"`
				Criterion string `json:"criterion"`
				HoldPoint bool   `json:"hold_point"`
			} `json:"checkpoints"`
		}
		if err := json.Unmarshal(raw, &content); err != nil {
			return "", "", ""
		}
		var b strings.Builder
		if len(content.Checkpoints) > 0 {
			b.WriteString("<table><tr><th>Activity</th><th>Acceptance Criterion</th><th>Hold Point</th></tr>")
			for _, cp := range content.Checkpoints {
				hold := ""
				if cp.HoldPoint {
					hold = "H"
				}
				b.WriteString("<tr><td>" + template.HTMLEscapeString(cp.Activity) +
					"</td><td>" + template.HTMLEscapeString(cp.Criterion) +
					"</td><td>" + hold + "</td></tr>")
			}
			b.WriteString("</table>")
		}
		return content.Title, content.Description, b.String()
	default:
		return "", "", ""
	}
}
