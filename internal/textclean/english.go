package textclean

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// Golem adapts the golem english dictionary as both Lemmatizer and Vocabulary.
type Golem struct {
	lem *golem.Lemmatizer
}

// NewGolem loads the embedded english lemma dictionary.
func NewGolem() (*Golem, error) {
	l, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("load english lemmas: %w", err)
	}
	return &Golem{lem: l}, nil
}

func (g *Golem) Lemma(word string) string { return g.lem.Lemma(word) }

func (g *Golem) InDict(word string) bool { return g.lem.InDict(word) }

//go:embed english_words.txt
var englishWords string

// Words is a Vocabulary over a fixed word list.
type Words map[string]struct{}

// EnglishWords returns the closed-class and invariant english words the
// lemma dictionary does not carry.
func EnglishWords() Words {
	w := Words{}
	for _, line := range strings.Fields(englishWords) {
		w[strings.ToLower(line)] = struct{}{}
	}
	return w
}

func (w Words) InDict(word string) bool {
	_, ok := w[strings.ToLower(word)]
	return ok
}

// AnyVocabulary knows a word when one of its members does.
type AnyVocabulary []Vocabulary

func (a AnyVocabulary) InDict(word string) bool {
	for _, v := range a {
		if v.InDict(word) {
			return true
		}
	}
	return false
}

// Whatlang detects sentence language with whatlanggo.
type Whatlang struct {
	opt whatlanggo.Options
}

// NewWhatlang returns a detector over every language whatlanggo knows.
func NewWhatlang() *Whatlang {
	return &Whatlang{}
}

func (w *Whatlang) Detect(sentence string) (language.Tag, float64) {
	info := whatlanggo.DetectWithOptions(sentence, w.opt)
	code := info.Lang.Iso6391()
	if code == "" {
		return language.Und, 0
	}
	tag, err := language.Parse(code)
	if err != nil {
		return language.Und, 0
	}
	return tag, info.Confidence
}

// NewEnglishNormalizer wires the golem dictionary, the embedded word list and
// the whatlanggo detector into a Normalizer using the given stopwords.
func NewEnglishNormalizer(stops map[string]struct{}, minConfidence float64) (*Normalizer, error) {
	g, err := NewGolem()
	if err != nil {
		return nil, err
	}
	return NewNormalizer(Options{
		Stopwords:             stops,
		Vocabulary:            AnyVocabulary{g, EnglishWords()},
		Lemmatizer:            g,
		Detector:              NewWhatlang(),
		MinLanguageConfidence: minConfidence,
	}), nil
}
