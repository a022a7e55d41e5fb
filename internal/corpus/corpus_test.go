package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fixtureDir = "testdata/essays"

func TestBuild(t *testing.T) {
	c, err := Build(fixtureDir, nil)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	wantPaths := []string{filepath.Join("drafts", "trip.md"), "monday.txt"}
	if len(c.Documents) != len(wantPaths) {
		t.Fatalf("documents = %+v, want paths %v", c.Documents, wantPaths)
	}
	for i, p := range wantPaths {
		if c.Documents[i].Path != p {
			t.Errorf("Documents[%d].Path = %q, want %q", i, c.Documents[i].Path, p)
		}
	}
	if len(c.Skipped) != 1 || c.Skipped[0] != "blank.txt" {
		t.Errorf("Skipped = %v, want [blank.txt]", c.Skipped)
	}
}

func TestBuild_SkipsHiddenDirectories(t *testing.T) {
	c, err := Build(fixtureDir, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range c.Documents {
		if strings.HasPrefix(d.Path, ".obsidian") {
			t.Errorf("hidden directory ingested: %s", d.Path)
		}
	}
	for _, p := range c.Skipped {
		if strings.HasPrefix(p, ".obsidian") {
			t.Errorf("hidden directory reported as skipped: %s", p)
		}
	}

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".github"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".github", "notes.md"), []byte("Release checklist."), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "real.txt"), []byte("A real sample."), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err = Build(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Documents) != 1 || c.Documents[0].Path != "real.txt" {
		t.Errorf("documents = %+v, want only real.txt", c.Documents)
	}
}

func TestBuild_MarkdownReducedToProse(t *testing.T) {
	c, err := Build(fixtureDir, nil)
	if err != nil {
		t.Fatal(err)
	}
	trip := c.Documents[0].Text
	for _, gone := range []string{"title:", "#", "**", "fmt.Println", "https://example.com", "- Swim"} {
		if strings.Contains(trip, gone) {
			t.Errorf("prose still contains %q:\n%s", gone, trip)
		}
	}
	for _, kept := range []string{"The Lake Trip", "We drove up early and the lake was perfect.", "Read my book on the dock"} {
		if !strings.Contains(trip, kept) {
			t.Errorf("prose missing %q:\n%s", kept, trip)
		}
	}
}

func TestBuild_ExtraIgnore(t *testing.T) {
	c, err := Build(fixtureDir, []string{"drafts"})
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Documents) != 1 || c.Documents[0].Path != "monday.txt" {
		t.Errorf("documents = %+v", c.Documents)
	}
}

func TestBuild_MissingRoot(t *testing.T) {
	if _, err := Build(filepath.Join(t.TempDir(), "absent"), nil); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestBuild_OversizeSkipped(t *testing.T) {
	dir := t.TempDir()
	big := strings.Repeat("word ", maxFileSize/5+10)
	if err := os.WriteFile(filepath.Join(dir, "big.txt"), []byte(big), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Build(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Documents) != 0 || len(c.Skipped) != 1 {
		t.Errorf("corpus = %+v", c)
	}
}

func TestIsSampleFile(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"a.txt", true},
		{"A.MD", true},
		{"notes.markdown", true},
		{"data.csv", false},
		{"main.go", false},
		{"README", false},
	}
	for _, c := range cases {
		if got := IsSampleFile(c.name); got != c.want {
			t.Errorf("IsSampleFile(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestProse(t *testing.T) {
	cases := []struct{ in, want string }{
		{"# Title\n\nBody text.", "Title\n\nBody text."},
		{"> quoted line", "quoted line"},
		{"1. first\n2) second", "first\nsecond"},
		{"use `go test` daily", "use go test daily"},
		{"~~~\ncode\n~~~\nafter", "after"},
		{"plain text", "plain text"},
		{"call snake_case_name here", "call snake_case_name here"},
		{"an _emphasized_ word", "an emphasized word"},
		{"__strong__ start", "strong start"},
		{"_one_ _two_", "one two"},
		{"**bold** and *soft*", "bold and soft"},
	}
	for _, c := range cases {
		if got := Prose(c.in); got != c.want {
			t.Errorf("Prose(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
