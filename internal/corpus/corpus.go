// Package corpus collects writing samples from a directory tree. Plain-text
// and Markdown files become documents; Markdown is reduced to its prose.
package corpus

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Document is one sample file.
type Document struct {
	Path string // relative to the corpus root
	Text string
}

// Corpus is the result of walking a directory.
type Corpus struct {
	Documents []Document
	// Skipped lists files that matched a sample extension but were too
	// large, unreadable, or empty after cleanup.
	Skipped []string
}

// maxFileSize bounds the size of a single sample file.
const maxFileSize = 1 << 20 // 1 MB

var defaultIgnore = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
}

var sampleExts = map[string]bool{
	".txt":      true,
	".text":     true,
	".md":       true,
	".markdown": true,
}

var (
	headingRe   = regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}[ \t]+`)
	bulletRe    = regexp.MustCompile(`(?m)^[ \t]*(?:[-*+]|\d+[.)])[ \t]+`)
	emphasisRe  = regexp.MustCompile(`(\*\*|\*|~~)(\S(?:.*?\S)?)(\*\*|\*|~~)`)
	linkRe      = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	inlineRe    = regexp.MustCompile("`([^`]*)`")
	blockquotRe = regexp.MustCompile(`(?m)^[ \t]*>[ \t]?`)
)

// underscoreRe only opens and closes at word boundaries, so identifiers like
// snake_case_name survive.
var underscoreRe = regexp.MustCompile(`(^|[^\p{L}\p{N}_])(__|_)(\S(?:.*?\S)?)(__|_)($|[^\p{L}\p{N}_])`)

// IsSampleFile reports whether name has a recognised sample extension.
func IsSampleFile(name string) bool {
	return sampleExts[strings.ToLower(filepath.Ext(name))]
}

// Build walks root and returns its documents sorted by path. ignorePatterns
// supplements the default ignore list; entries are matched against directory
// base names. Hidden files and directories are skipped.
func Build(root string, ignorePatterns []string) (Corpus, error) {
	extraIgnore := make(map[string]bool, len(ignorePatterns))
	for _, p := range ignorePatterns {
		extraIgnore[p] = true
	}

	var c Corpus
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (defaultIgnore[d.Name()] || extraIgnore[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !IsSampleFile(d.Name()) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		info, infoErr := d.Info()
		if infoErr != nil || info.Size() > maxFileSize {
			c.Skipped = append(c.Skipped, rel)
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			c.Skipped = append(c.Skipped, rel)
			return nil
		}
		text := string(data)
		if ext := strings.ToLower(filepath.Ext(d.Name())); ext == ".md" || ext == ".markdown" {
			text = Prose(text)
		}
		if strings.TrimSpace(text) == "" {
			c.Skipped = append(c.Skipped, rel)
			return nil
		}
		c.Documents = append(c.Documents, Document{Path: rel, Text: text})
		return nil
	})
	if err != nil {
		return Corpus{}, fmt.Errorf("corpus: walk %s: %w", root, err)
	}

	sort.Slice(c.Documents, func(i, j int) bool { return c.Documents[i].Path < c.Documents[j].Path })
	sort.Strings(c.Skipped)
	return c, nil
}

// Prose strips Markdown syntax that is not the author's writing: fenced code
// blocks, front matter, heading and list markers, emphasis, and link targets.
func Prose(md string) string {
	lines := strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n")
	var out []string
	inFence := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if i == 0 && trimmed == "---" {
			if end := frontMatterEnd(lines); end > 0 {
				lines = lines[end+1:]
				return Prose(strings.Join(lines, "\n"))
			}
		}
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		out = append(out, line)
	}

	text := strings.Join(out, "\n")
	text = headingRe.ReplaceAllString(text, "")
	text = bulletRe.ReplaceAllString(text, "")
	text = blockquotRe.ReplaceAllString(text, "")
	text = linkRe.ReplaceAllString(text, "$1")
	text = inlineRe.ReplaceAllString(text, "$1")
	text = emphasisRe.ReplaceAllString(text, "$2")
	// Adjacent spans share a boundary rune, so repeat until nothing matches.
	for {
		next := underscoreRe.ReplaceAllString(text, "$1$3$5")
		if next == text {
			break
		}
		text = next
	}
	return strings.TrimSpace(text)
}

// frontMatterEnd returns the index of the closing "---" of a YAML front
// matter block that opens on the first line, or -1.
func frontMatterEnd(lines []string) int {
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return i
		}
	}
	return -1
}
