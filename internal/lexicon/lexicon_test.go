package lexicon

import (
	"path/filepath"
	"testing"
)

func TestLoad_AllBuiltins(t *testing.T) {
	for _, name := range Names() {
		l, err := Load(name)
		if err != nil {
			t.Errorf("Load(%q) error: %v", name, err)
			continue
		}
		if l.Name != name {
			t.Errorf("Load(%q).Name = %q, want %q", name, l.Name, name)
		}
		if l.Description == "" {
			t.Errorf("Load(%q).Description is empty", name)
		}
		for _, cat := range Categories {
			if len(l.Words(cat)) == 0 {
				t.Errorf("Load(%q) has no %s words", name, cat)
			}
		}
	}
}

func TestLoad_Unknown(t *testing.T) {
	if _, err := Load("klingon"); err == nil {
		t.Fatal("Load(\"klingon\") expected error, got nil")
	}
}

func TestBuiltinEnglish(t *testing.T) {
	l, err := Load("en")
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		cat  Category
		word string
		want bool
	}{
		{Positive, "love", true},
		{Positive, "great", true},
		{Positive, "this", false},
		{Negative, "hate", true},
		{Formal, "therefore", true},
		{Informal, "gonna", true},
		{Informal, "therefore", false},
		{Positive, "Love", false}, // Has expects case-folded input
	}
	for _, c := range cases {
		if got := l.Has(c.cat, c.word); got != c.want {
			t.Errorf("Has(%s, %q) = %v, want %v", c.cat, c.word, got, c.want)
		}
	}
}

func TestNew_NormalizesWords(t *testing.T) {
	l := New("x", map[Category][]string{Positive: {"  Yay ", "", "WOO"}})
	if !l.Has(Positive, "yay") || !l.Has(Positive, "woo") {
		t.Errorf("New did not lowercase/trim words: %v", l.Words(Positive))
	}
	if len(l.Words(Positive)) != 2 {
		t.Errorf("Words(Positive) = %v, want 2 entries", l.Words(Positive))
	}
}

func TestZeroLexicon(t *testing.T) {
	var l Lexicon
	if l.Has(Positive, "good") {
		t.Error("zero Lexicon should match nothing")
	}
	if len(l.Words(Formal)) != 0 {
		t.Error("zero Lexicon should list no words")
	}
}

func TestLoadFile(t *testing.T) {
	l, err := LoadFile(filepath.Join("testdata", "pirate.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if l.Name != "pirate" {
		t.Errorf("Name = %q, want pirate", l.Name)
	}
	if !l.Has(Positive, "booty") || !l.Has(Informal, "matey") || !l.Has(Formal, "captain") {
		t.Errorf("pirate lexicon missing words: %+v", l)
	}
}

func TestLoadFile_UnknownKey(t *testing.T) {
	if _, err := LoadFile(filepath.Join("testdata", "bad_key.yaml")); err == nil {
		t.Error("LoadFile(bad_key.yaml) expected error for unknown category")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join("testdata", "nope.yaml")); err == nil {
		t.Error("LoadFile(missing) expected error")
	}
}

func TestLoadFile_DefaultName(t *testing.T) {
	l, err := LoadFile(filepath.Join("testdata", "unnamed.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if l.Name != "unnamed" {
		t.Errorf("Name = %q, want unnamed", l.Name)
	}
}

func TestResolve(t *testing.T) {
	if l, err := Resolve("en"); err != nil || l.Name != "en" {
		t.Errorf("Resolve(en) = %q, %v", l.Name, err)
	}
	if l, err := Resolve(filepath.Join("testdata", "pirate.yaml")); err != nil || l.Name != "pirate" {
		t.Errorf("Resolve(pirate.yaml) = %q, %v", l.Name, err)
	}
}
