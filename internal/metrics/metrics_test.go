package metrics

import (
	"reflect"
	"strings"
	"testing"

	"github.com/dshills/styletwin/internal/lexicon"
)

func english(t *testing.T) Analyzer {
	t.Helper()
	l, err := lexicon.Load("en")
	if err != nil {
		t.Fatalf("lexicon.Load(en): %v", err)
	}
	return Analyzer{Lexicon: l}
}

func TestAnalyze_Scenario(t *testing.T) {
	a := english(t)
	text := "I love this. I love this a lot. This is great."

	tally := a.Tally(text)
	if tally.Words != 11 || tally.Sentences != 3 || tally.Positive != 3 || tally.Negative != 0 {
		t.Errorf("Tally = %+v, want words 11, sentences 3, positive 3", tally)
	}

	m := a.Analyze(text)
	if m.AvgSentenceLength != 4 {
		t.Errorf("AvgSentenceLength = %d, want 4", m.AvgSentenceLength)
	}
	if m.UniqueWordsCount != 7 {
		t.Errorf("UniqueWordsCount = %d, want 7", m.UniqueWordsCount)
	}
	if m.PositiveTonePercentage != 27 {
		t.Errorf("PositiveTonePercentage = %v, want 27", m.PositiveTonePercentage)
	}
	if m.FormalityLevel != 5 {
		t.Errorf("FormalityLevel = %v, want 5", m.FormalityLevel)
	}
	want := []string{"I love", "I love this", "Love this"}
	if !reflect.DeepEqual(m.SignaturePhrases, want) {
		t.Errorf("SignaturePhrases = %q, want %q", m.SignaturePhrases, want)
	}
}

func TestAnalyze_Empty(t *testing.T) {
	a := english(t)
	for _, text := range []string{"", "   ", "\n"} {
		m := a.Analyze(text)
		if m.AvgSentenceLength != 0 || m.UniqueWordsCount != 0 || m.PositiveTonePercentage != 0 {
			t.Errorf("Analyze(%q) = %+v, want zero counts", text, m)
		}
		if m.FormalityLevel != 5 {
			t.Errorf("Analyze(%q).FormalityLevel = %v, want neutral 5", text, m.FormalityLevel)
		}
		if m.SignaturePhrases == nil || len(m.SignaturePhrases) != 0 {
			t.Errorf("Analyze(%q).SignaturePhrases = %#v, want empty non-nil", text, m.SignaturePhrases)
		}
	}
}

func TestAnalyze_NoTerminator(t *testing.T) {
	m := english(t).Analyze("just some words here")
	if m.AvgSentenceLength != 0 {
		t.Errorf("AvgSentenceLength = %d, want 0 without terminators", m.AvgSentenceLength)
	}
	if m.UniqueWordsCount != 4 {
		t.Errorf("UniqueWordsCount = %d, want 4", m.UniqueWordsCount)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	a := english(t)
	text := "We went out. We went home. They came in. They came back. We went out again!"
	first := a.Analyze(text)
	for i := 0; i < 20; i++ {
		if got := a.Analyze(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: Analyze = %+v, want %+v", i, got, first)
		}
	}
}

func TestSignaturePhrases_TieBreakFirstSeen(t *testing.T) {
	// "they came" and "we went" both appear twice; "we went" is seen first.
	text := "We went out. They came in. We went home. They came back."
	got := SignaturePhrases(text, 5)
	want := []string{"We went", "They came"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SignaturePhrases = %q, want %q", got, want)
	}
}

func TestSignaturePhrases_CountOrder(t *testing.T) {
	text := "a b. c d. c d. c d. a b."
	got := SignaturePhrases(text, 5)
	want := []string{"C d", "A b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SignaturePhrases = %q, want %q", got, want)
	}
}

func TestSignaturePhrases_RecurOnly(t *testing.T) {
	text := "The quick brown fox jumps. A lazy dog sleeps. The quick cat runs. Blue sky today!"
	got := SignaturePhrases(text, -1)
	for _, p := range got {
		lower := strings.ToLower(p)
		n := 0
		for _, s := range []string{"the quick brown fox jumps", "a lazy dog sleeps", "the quick cat runs", "blue sky today"} {
			n += strings.Count(s, lower)
		}
		if n < 2 {
			t.Errorf("phrase %q occurs %d times, want > 1", p, n)
		}
	}
	if !reflect.DeepEqual(got, []string{"The quick"}) {
		t.Errorf("SignaturePhrases = %q, want [The quick]", got)
	}
}

func TestSignaturePhrases_DoNotCrossSentences(t *testing.T) {
	// "end start" would recur if windows crossed the boundary.
	got := SignaturePhrases("Begin end. Start here. Begin end. Start there.", -1)
	for _, p := range got {
		if strings.EqualFold(p, "end start") {
			t.Errorf("phrase %q crosses a sentence boundary", p)
		}
	}
}

func TestSignaturePhrases_Limit(t *testing.T) {
	text := strings.Repeat("one two three four five six seven. ", 3)
	if got := SignaturePhrases(text, MaxSignaturePhrases); len(got) != MaxSignaturePhrases {
		t.Errorf("len = %d, want %d", len(got), MaxSignaturePhrases)
	}
}

func TestSignaturePhrases_CapitalizesUnicode(t *testing.T) {
	got := SignaturePhrases("élan vital. élan vital.", 1)
	if len(got) != 1 || got[0] != "Élan vital" {
		t.Errorf("SignaturePhrases = %q, want [Élan vital]", got)
	}
}

func TestFormality(t *testing.T) {
	a := english(t)
	cases := []struct {
		name string
		text string
		want float64
	}{
		{"neutral", "Plain words only.", 5},
		{"formal", "Therefore, moreover, furthermore.", 8},
		{"informal", "Dude, gonna be totally cool.", 1},
		{"clamped high", strings.Repeat("therefore ", 20), 10},
		{"clamped low", strings.Repeat("dude ", 20), 0},
	}
	for _, c := range cases {
		if got := a.Analyze(c.text).FormalityLevel; got != c.want {
			t.Errorf("%s: FormalityLevel = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestFormality_NormalizedByLength(t *testing.T) {
	// 200 words and two formal markers: 5 + 2/(200/100) = 6.
	text := "therefore moreover " + strings.Repeat("plain ", 198)
	if got := english(t).Analyze(text).FormalityLevel; got != 6 {
		t.Errorf("FormalityLevel = %v, want 6", got)
	}
}

func TestPositiveTone_IgnoresNegative(t *testing.T) {
	a := english(t)
	m := a.Analyze("good bad hate awful")
	if m.PositiveTonePercentage != 25 {
		t.Errorf("PositiveTonePercentage = %v, want 25", m.PositiveTonePercentage)
	}
	if n := a.Tally("good bad hate awful").Negative; n != 3 {
		t.Errorf("Tally.Negative = %d, want 3", n)
	}
}

func TestPositiveTone_Clamped(t *testing.T) {
	// One whitespace word, three positive tokens.
	if got := english(t).Analyze("love-love-love").PositiveTonePercentage; got != 100 {
		t.Errorf("PositiveTonePercentage = %v, want 100", got)
	}
}

func TestAnalyzer_SyntheticLexicon(t *testing.T) {
	l := lexicon.New("synthetic", map[lexicon.Category][]string{
		lexicon.Positive: {"arr"},
		lexicon.Formal:   {"captain"},
		lexicon.Informal: {"matey"},
	})
	a := Analyzer{Lexicon: l}
	m := a.Analyze("Arr captain. Arr matey!")
	if m.PositiveTonePercentage != 50 {
		t.Errorf("PositiveTonePercentage = %v, want 50", m.PositiveTonePercentage)
	}
	if m.FormalityLevel != 5 {
		t.Errorf("FormalityLevel = %v, want 5", m.FormalityLevel)
	}
}

func TestAnalyzer_ZeroLexicon(t *testing.T) {
	m := Analyzer{}.Analyze("I love this. Great stuff.")
	if m.PositiveTonePercentage != 0 || m.FormalityLevel != 5 {
		t.Errorf("zero lexicon Analyze = %+v", m)
	}
}
