package textclean_test

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/topicloom/internal/textclean"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

type fakeVocab map[string]bool

func (v fakeVocab) InDict(w string) bool { return v[w] }

type fakeLemma map[string]string

func (l fakeLemma) Lemma(w string) string {
	if out, ok := l[w]; ok {
		return out
	}
	return w
}

// fakeDetector marks a sentence as Spanish when it contains "hola".
type fakeDetector struct{}

func (fakeDetector) Detect(s string) (language.Tag, float64) {
	if strings.Contains(strings.ToLower(s), "hola") {
		return language.Spanish, 0.9
	}
	if strings.Contains(strings.ToLower(s), "unsure") {
		return language.German, 0.1
	}
	return language.English, 0.9
}

func newTestNormalizer() *textclean.Normalizer {
	vocab := fakeVocab{}
	for _, w := range strings.Fields("great day beach dogs dog running run market markets flat today the is are unsure words hello world stock") {
		vocab[w] = true
	}
	return textclean.NewNormalizer(textclean.Options{
		Stopwords:             textclean.DefaultStopwords(),
		Vocabulary:            vocab,
		Lemmatizer:            fakeLemma{"dogs": "dog", "running": "run", "markets": "market"},
		Detector:              fakeDetector{},
		MinLanguageConfidence: 0.5,
	})
}

func TestStripURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"great day! https://x.co/abc", "great day!"},
		{"see http://a.b/c and more text", "see"},
		{"no links here", "no links here"},
		{"https://only.link", ""},
		{"", ""},
	}
	for _, c := range cases {
		require.Equal(t, c.want, textclean.StripURL(c.in), c.in)
	}
}

func TestDropUsernames(t *testing.T) {
	got := textclean.DropUsernames([]string{"hello", "@bob", "world"})
	require.Equal(t, []string{"hello", "world"}, got)
	require.Empty(t, textclean.DropUsernames([]string{"@a", "@b"}))
}

func TestStripPunctuation(t *testing.T) {
	require.Equal(t, "day", textclean.StripPunctuation("day!"))
	require.Equal(t, "dont", textclean.StripPunctuation("don't"))
	require.Equal(t, "quoted", textclean.StripPunctuation("“quoted”"))
	require.Equal(t, "", textclean.StripPunctuation("≈"))
	require.Equal(t, "usd", textclean.StripPunctuation("$usd"))
}

func TestIsNumber(t *testing.T) {
	require.True(t, textclean.IsNumber("2021"))
	require.False(t, textclean.IsNumber("covid19"))
	require.False(t, textclean.IsNumber(""))
}

func TestSplitSentences(t *testing.T) {
	got := textclean.SplitSentences("One. Two!! Three?\nfour; ")
	require.Equal(t, []string{"One", "Two", "Three", "four"}, got)
}

func TestCleanPipeline(t *testing.T) {
	n := newTestNormalizer()

	got := n.Clean("Great day at the beach! The dogs are running 2021 @bob https://x.co/abc ignored words")
	require.Equal(t, []string{"great", "day", "beach", "dog", "run"}, got)
}

func TestCleanKeepsNonAlphaAlnum(t *testing.T) {
	n := newTestNormalizer()
	require.Equal(t, []string{"covid19", "market"}, n.Clean("covid19 markets"))
}

func TestCleanDropsForeignSentences(t *testing.T) {
	n := newTestNormalizer()

	got := n.Clean("Hola amigos, que tal. Stock markets flat today")
	require.Equal(t, []string{"stock", "market", "flat", "today"}, got)

	// low-confidence guesses keep the sentence
	require.Equal(t, []string{"unsure", "word"}, textclean.NewNormalizer(textclean.Options{
		Detector:              fakeDetector{},
		Lemmatizer:            fakeLemma{"words": "word"},
		MinLanguageConfidence: 0.5,
	}).Clean("unsure words"))
}

func TestCleanUncertainSentenceNeedsEnglishMajority(t *testing.T) {
	n := newTestNormalizer()

	require.Empty(t, n.Clean("unsure blah blah"))
	require.Equal(t, []string{"unsure", "words"}, n.Clean("unsure words"))
	require.Equal(t, []string{"stock"}, n.Clean("unsure zzz qqq. Stock"))
}

func TestCleanEmptyAndForeign(t *testing.T) {
	n := newTestNormalizer()

	got := n.Clean("")
	require.NotNil(t, got)
	require.Empty(t, got)

	require.Empty(t, n.Clean("hola hola hola"))
	require.Empty(t, n.Clean("@someone https://t.co/x"))
	require.Empty(t, n.Clean("!!! ??? 12345"))
}

func TestCleanIsDeterministic(t *testing.T) {
	n := newTestNormalizer()
	text := "The dogs are running at the beach. Great day"
	require.Equal(t, n.Clean(text), n.Clean(text))
}

func TestCleanAllPreservesOrder(t *testing.T) {
	n := newTestNormalizer()
	docs := n.CleanAll([]string{"great day", "", "dogs"})
	require.Len(t, docs, 3)
	require.Equal(t, []string{"great", "day"}, docs[0])
	require.Empty(t, docs[1])
	require.Equal(t, []string{"dog"}, docs[2])
}

func TestNilStagesPassThrough(t *testing.T) {
	n := textclean.NewNormalizer(textclean.Options{})
	require.Equal(t, []string{"the", "quick", "fox"}, n.Clean("The quick, fox."))
}
