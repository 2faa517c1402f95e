package export

import (
	"strings"
	"testing"
	"time"
)

func TestRenderContentByType(t *testing.T) {
	tests := []struct {
		name      string
		assetType string
		content   string
		wantTitle string
		wantBody  string
	}{
		{
			name:      "plan sections become headings",
			assetType: "plan",
			content:   `{"title":"Project Quality Plan","sections":[{"heading":"Scope","body":"All structural works"}]}`,
			wantTitle: "Project Quality Plan",
			wantBody:  "<h2>Scope</h2>",
		},
		{
			name:      "ncr renders severity",
			assetType: "ncr",
			content:   `{"title":"Crack in slab","description":"Hairline crack","severity":"major"}`,
			wantTitle: "Crack in slab",
			wantBody:  "<strong>Severity:</strong> major",
		},
		{
			name:      "itp checkpoints become a table",
			assetType: "itp",
			content:   `{"title":"Footings ITP","checkpoints":[{"activity":"Rebar inspection","criterion":"AS 3600","hold_point":true}]}`,
			wantTitle: "Footings ITP",
			wantBody:  "<td>Rebar inspection</td>",
		},
		{
			name:      "html in content is escaped",
			assetType: "plan",
			content:   `{"title":"Plan","sections":[{"heading":"<script>","body":"x"}]}`,
			wantTitle: "Plan",
			wantBody:  "&lt;script&gt;",
		},
		{
			name:      "unknown type yields empty body",
			assetType: "rfi",
			content:   `{"title":"x"}`,
			wantTitle: "",
			wantBody:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, _, body := renderContent(tt.assetType, []byte(tt.content))
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
			if tt.wantBody == "" && body != "" {
				t.Errorf("body = %q, want empty", body)
			}
			if tt.wantBody != "" && !strings.Contains(body, tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", body, tt.wantBody)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello-World"},
		{"My Document v1.2", "My-Document-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "document"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},       // Spaces encoded as %20, not +
		{"test+sign", "test%2Bsign"},           // + signs are encoded
		{"special<>", "special%3C%3E"},         // Special chars encoded
		{"normal-text.txt", "normal-text.txt"}, // Unreserved chars pass through
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := percentEncodeForDataURL(tt.input)
			if result != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRenderDocumentHTML(t *testing.T) {
	data := TemplateData{
		Title:         "Project Quality Plan",
		Description:   "Quality management for the works",
		BodyHTML:      "<p>This is the content.</p>",
		ProjectName:   "Harbour Bridge Upgrade",
		ProjectCode:   "HBU-01",
		RevisionCode:  "2",
		Version:       5,
		ApprovalState: "approved",
		UpdatedBy:     "usr_abc",
		UpdatedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		History: []VersionInfo{
			{Version: 4, RevisionCode: "1", ApprovalState: "approved", ChangeLog: "initial approved issue", UpdatedBy: "usr_abc", UpdatedAt: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)},
		},
	}

	html, err := RenderDocumentHTML(data)
	if err != nil {
		t.Fatalf("RenderDocumentHTML() error = %v", err)
	}

	if !strings.Contains(html, "Project Quality Plan") {
		t.Error("HTML missing title")
	}
	if !strings.Contains(html, "Rev 2") {
		t.Error("HTML missing revision code")
	}
	if !strings.Contains(html, "Harbour Bridge Upgrade") {
		t.Error("HTML missing project name")
	}
	if !strings.Contains(html, "Revision History") {
		t.Error("HTML missing history section")
	}
	if !strings.Contains(html, "initial approved issue") {
		t.Error("HTML missing history row")
	}

	// BodyHTML must be rendered raw, not escaped.
	if strings.Contains(html, "&lt;p&gt;") {
		t.Error("body content was escaped - should be rendered as raw HTML")
	}
	if !strings.Contains(html, "<p>This is the content.</p>") {
		t.Error("body content should contain unescaped <p> tags")
	}
}
