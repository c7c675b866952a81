package textclean

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Lemmatizer reduces a lowercase word to its dictionary form.
type Lemmatizer interface {
	Lemma(word string) string
}

// Vocabulary reports whether a lowercase word is a known English word.
type Vocabulary interface {
	InDict(word string) bool
}

// LanguageDetector guesses the language of a sentence.
type LanguageDetector interface {
	Detect(sentence string) (language.Tag, float64)
}

// Options carries every dictionary and model the normalizer consults.
// Nil Vocabulary, Lemmatizer or Detector disables that stage.
type Options struct {
	Stopwords             map[string]struct{}
	Vocabulary            Vocabulary
	Lemmatizer            Lemmatizer
	Detector              LanguageDetector
	MinLanguageConfidence float64
}

// Normalizer turns raw post text into lowercase lemmatized English tokens.
// It holds no mutable state and may be shared.
type Normalizer struct {
	opt Options
}

// NewNormalizer builds a normalizer; a nil stopword set means no stopwords.
func NewNormalizer(opt Options) *Normalizer {
	if opt.Stopwords == nil {
		opt.Stopwords = map[string]struct{}{}
	}
	return &Normalizer{opt: opt}
}

var (
	urlMarker = regexp.MustCompile(`https?://`)
	sentences = regexp.MustCompile(`[.!?;\n]+`)
	english   = language.English
)

// extraPunct - quote marks and symbols that are not covered by unicode.IsPunct in every form
var extraPunct = strings.NewReplacer("“", "", "’", "", `"`, "", "'", "", "`", "", "≈", "")

// StripURL drops everything from the first URL marker onward.
func StripURL(s string) string {
	if loc := urlMarker.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	return strings.TrimSpace(s)
}

// SplitSentences splits on sentence punctuation and newlines; empty pieces are dropped.
func SplitSentences(s string) []string {
	var out []string
	for _, p := range sentences.Split(s, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DropUsernames removes every token that begins with '@'.
func DropUsernames(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if strings.HasPrefix(t, "@") {
			continue
		}
		out = append(out, t)
	}
	return out
}

// StripPunctuation removes punctuation and symbol runes from a token.
func StripPunctuation(token string) string {
	token = extraPunct.Replace(token)
	return strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, token)
}

// IsNumber reports whether token is made of digits only.
func IsNumber(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isAlpha(token string) bool {
	for _, r := range token {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return token != ""
}

// keepSentence reports whether a sentence survives language detection.
// A confident guess decides alone. Otherwise the sentence is kept only when
// at least half of its alphabetic words are in the english vocabulary.
func (n *Normalizer) keepSentence(s string) bool {
	if n.opt.Detector == nil {
		return true
	}
	tag, conf := n.opt.Detector.Detect(s)
	if tag != language.Und && conf >= n.opt.MinLanguageConfidence {
		base, _ := tag.Base()
		want, _ := english.Base()
		return base == want
	}
	return n.mostlyEnglish(s)
}

func (n *Normalizer) mostlyEnglish(s string) bool {
	if n.opt.Vocabulary == nil {
		return true
	}
	var words, known int
	for _, tok := range DropUsernames(strings.Fields(s)) {
		tok = strings.ToLower(StripPunctuation(tok))
		if !isAlpha(tok) {
			continue
		}
		words++
		if n.opt.Vocabulary.InDict(tok) {
			known++
		}
	}
	return 2*known >= words
}

// Clean runs the full normalization. Empty or fully foreign text yields an empty, non-nil slice.
func (n *Normalizer) Clean(text string) []string {
	out := []string{}
	text = norm.NFKC.String(StripURL(text))
	for _, sent := range SplitSentences(text) {
		if !n.keepSentence(sent) {
			continue
		}
		out = append(out, n.cleanSentence(sent)...)
	}
	return out
}

func (n *Normalizer) cleanSentence(sent string) []string {
	var out []string
	for _, tok := range DropUsernames(strings.Fields(sent)) {
		tok = StripPunctuation(tok)
		if tok == "" || IsNumber(tok) {
			continue
		}
		tok = strings.ToLower(tok)
		if isAlpha(tok) && n.opt.Vocabulary != nil && !n.opt.Vocabulary.InDict(tok) {
			continue
		}
		if n.opt.Lemmatizer != nil {
			tok = strings.ToLower(n.opt.Lemmatizer.Lemma(tok))
		}
		if _, stop := n.opt.Stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// CleanAll cleans every text and keeps the input order.
func (n *Normalizer) CleanAll(texts []string) [][]string {
	docs := make([][]string, len(texts))
	for i, t := range texts {
		docs[i] = n.Clean(t)
	}
	return docs
}
