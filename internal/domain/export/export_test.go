package export

import (
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", Markdown, false},
		{"markdown", Markdown, false},
		{"MD", Markdown, false},
		{" html ", HTML, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Mutual NDA (California)", "Mutual_NDA_California"},
		{"../../etc/passwd", "etcpasswd"},
		{"  Lease v1.2 ", "Lease_v1.2"},
		{"Договор", "fallback-id"},
		{"", "fallback-id"},
		{"___", "fallback-id"},
	}
	for _, tt := range tests {
		if got := Filename(tt.title, "fallback-id"); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestRender_Markdown(t *testing.T) {
	f := Render(Markdown, "Lease", "id", "# Lease\n\nBody")
	if f.Name != "Lease.md" || !strings.HasPrefix(f.ContentType, "text/markdown") || string(f.Body) != "# Lease\n\nBody" {
		t.Errorf("unexpected file %+v", f)
	}
}

func TestRender_HTML(t *testing.T) {
	f := Render(HTML, "Lease", "id", "# Lease\n\nBetween **A** and B.<script>alert(1)</script>")
	body := string(f.Body)
	if f.Name != "Lease.html" || !strings.HasPrefix(f.ContentType, "text/html") {
		t.Errorf("unexpected file %s %s", f.Name, f.ContentType)
	}
	for _, want := range []string{"<title>Lease</title>", "<strong>A</strong>", "<h1"} {
		if !strings.Contains(body, want) {
			t.Errorf("html missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "<script>") {
		t.Error("raw html must be dropped")
	}
}
