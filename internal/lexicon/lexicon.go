// Package lexicon provides the word lists the metrics analyzer scores text
// against. A Lexicon maps each Category to a set of lowercase words. Built-in
// lexicons are loaded by name; custom ones are read from YAML files.
package lexicon

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category names a word list.
type Category string

const (
	Positive Category = "positive"
	Negative Category = "negative"
	Formal   Category = "formal"
	Informal Category = "informal"
)

// Categories lists every category in a stable order.
var Categories = []Category{Positive, Negative, Formal, Informal}

// Lexicon is an immutable set of categorized words. The zero value matches
// nothing.
type Lexicon struct {
	Name        string
	Description string
	words       map[Category]map[string]struct{}
}

// New builds a Lexicon from word lists. Words are lowercased and trimmed;
// blanks are ignored.
func New(name string, lists map[Category][]string) Lexicon {
	l := Lexicon{Name: name, words: make(map[Category]map[string]struct{}, len(lists))}
	for cat, list := range lists {
		set := make(map[string]struct{}, len(list))
		for _, w := range list {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				set[w] = struct{}{}
			}
		}
		l.words[cat] = set
	}
	return l
}

// Has reports whether word (already case-folded) belongs to cat.
func (l Lexicon) Has(cat Category, word string) bool {
	_, ok := l.words[cat][word]
	return ok
}

// Words returns the sorted word list for cat.
func (l Lexicon) Words(cat Category) []string {
	out := make([]string, 0, len(l.words[cat]))
	for w := range l.words[cat] {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// builtinLists is the registry of built-in lexicons keyed by name.
var builtinLists = map[string]struct {
	description string
	lists       map[Category][]string
}{
	"en": {
		description: "Default English word lists for tone and formality.",
		lists: map[Category][]string{
			Positive: {"good", "great", "excellent", "amazing", "wonderful", "fantastic",
				"love", "like", "enjoy", "happy", "pleased", "satisfied"},
			Negative: {"bad", "terrible", "awful", "horrible", "hate", "dislike",
				"sad", "angry", "frustrated", "disappointed"},
			Formal: {"regarding", "concerning", "pursuant", "herewith", "whereas",
				"therefore", "moreover", "furthermore", "nevertheless"},
			Informal: {"gonna", "wanna", "kinda", "sorta", "dude", "cool",
				"awesome", "totally", "basically"},
		},
	},
}

// Names returns the names of the built-in lexicons, sorted.
func Names() []string {
	out := make([]string, 0, len(builtinLists))
	for name := range builtinLists {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Load returns the named built-in lexicon or an error if the name is unknown.
func Load(name string) (Lexicon, error) {
	b, ok := builtinLists[name]
	if !ok {
		return Lexicon{}, fmt.Errorf("lexicon: unknown lexicon %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	l := New(name, b.lists)
	l.Description = b.description
	return l, nil
}

// fileFormat is the YAML shape accepted by LoadFile.
type fileFormat struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Positive    []string `yaml:"positive"`
	Negative    []string `yaml:"negative"`
	Formal      []string `yaml:"formal"`
	Informal    []string `yaml:"informal"`
}

// LoadFile reads a lexicon from a YAML file. Unknown keys are rejected. When
// the file has no name, the file's base name is used.
func LoadFile(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("lexicon: read %s: %w", path, err)
	}
	var f fileFormat
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Lexicon{}, fmt.Errorf("lexicon: parse %s: %w", path, err)
	}
	name := f.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	l := New(name, map[Category][]string{
		Positive: f.Positive,
		Negative: f.Negative,
		Formal:   f.Formal,
		Informal: f.Informal,
	})
	l.Description = f.Description
	return l, nil
}

// Resolve loads ref as a file when it looks like a YAML path, otherwise as a
// built-in name.
func Resolve(ref string) (Lexicon, error) {
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".yaml", ".yml":
		return LoadFile(ref)
	}
	return Load(ref)
}
