package topics

import (
	"errors"
	"fmt"
	"runtime"
	"sort"

	"github.com/KaramelBytes/topicloom/internal/corpus"
	"github.com/e-gun/nlp"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrEmptyCorpus = errors.New("empty corpus")
	ErrTopicCount  = errors.New("invalid topic count")
	ErrPasses      = errors.New("invalid pass count")
)

// Options controls the LDA fit.
type Options struct {
	Topics   int     `json:"topics" yaml:"topics"`
	Passes   int     `json:"passes" yaml:"passes"`
	TopWords int     `json:"top_words" yaml:"top_words"`
	Seed     int64   `json:"seed" yaml:"seed"`
	Workers  int     `json:"workers" yaml:"workers"`
	Alpha    float64 `json:"alpha" yaml:"alpha"`
	Eta      float64 `json:"eta" yaml:"eta"`
}

// DefaultOptions mirrors the classic 10 topics / 50 passes setup.
func DefaultOptions() Options {
	return Options{
		Topics:   10,
		Passes:   50,
		TopWords: 25,
		Workers:  runtime.NumCPU(),
		Alpha:    0.1,
		Eta:      0.01,
	}
}

// WordWeight is one ranked term of a topic.
type WordWeight struct {
	Word   string  `json:"word" yaml:"word"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// Topic is a ranked list of terms.
type Topic struct {
	ID    int          `json:"id" yaml:"id"`
	Words []WordWeight `json:"words" yaml:"words"`
}

// Model is a fitted topic model. It is read-only after Fit.
type Model struct {
	k     int
	dict  *corpus.Dictionary
	words *mat.Dense // K x W, rows sum to 1
	docs  []int      // fitted column -> document index
	theta mat.Matrix // K x len(docs)
	ndocs int
	opts  Options
}

// Fit trains an LDA model over the encoded documents. Documents with an
// empty vector take no part in the fit.
func Fit(dict *corpus.Dictionary, bows [][]corpus.TermCount, opt Options) (*Model, error) {
	if dict == nil || dict.Len() == 0 || len(bows) == 0 || corpus.NonEmpty(bows) == 0 {
		return nil, ErrEmptyCorpus
	}
	if opt.Topics < 1 || opt.Topics > dict.Len() {
		return nil, fmt.Errorf("%w: %d (vocabulary %d)", ErrTopicCount, opt.Topics, dict.Len())
	}
	if opt.Passes < 1 {
		return nil, fmt.Errorf("%w: %d", ErrPasses, opt.Passes)
	}

	var fitted [][]corpus.TermCount
	var idx []int
	for i, b := range bows {
		if len(b) == 0 {
			continue
		}
		fitted = append(fitted, b)
		idx = append(idx, i)
	}

	lda := nlp.NewLatentDirichletAllocation(opt.Topics)
	lda.Iterations = opt.Passes
	lda.TransformationPasses = max(opt.Passes/2, 1)
	lda.Processes = max(opt.Workers, 1)
	if opt.Alpha > 0 {
		lda.Alpha = opt.Alpha
	}
	if opt.Eta > 0 {
		lda.Eta = opt.Eta
	}
	if opt.Seed != 0 {
		lda.Rnd = rand.New(rand.NewSource(uint64(opt.Seed)))
		lda.Processes = 1
	}

	theta, err := lda.FitTransform(dict.Matrix(fitted))
	if err != nil {
		return nil, fmt.Errorf("fit lda: %w", err)
	}

	return &Model{
		k:     opt.Topics,
		dict:  dict,
		words: normalizeRows(lda.Components()),
		docs:  idx,
		theta: theta,
		ndocs: len(bows),
		opts:  opt,
	}, nil
}

func normalizeRows(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		var sum float64
		for j := 0; j < c; j++ {
			sum += m.At(i, j)
		}
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if sum > 0 {
				v /= sum
			}
			out.Set(i, j, v)
		}
	}
	return out
}

// NumTopics is K.
func (m *Model) NumTopics() int { return m.k }

// Options returns the options the model was fitted with.
func (m *Model) Options() Options { return m.opts }

// Dictionary returns the dictionary the model was fitted over.
func (m *Model) Dictionary() *corpus.Dictionary { return m.dict }

// Topics returns, for each topic, its n highest-weighted terms. Every row has
// exactly min(n, vocabulary) entries; equal weights are ordered by term.
func (m *Model) Topics(n int) []Topic {
	_, w := m.words.Dims()
	if n > w {
		n = w
	}
	if n < 0 {
		n = 0
	}
	out := make([]Topic, m.k)
	for t := 0; t < m.k; t++ {
		ranked := make([]WordWeight, w)
		for id := 0; id < w; id++ {
			ranked[id] = WordWeight{Word: m.dict.Token(id), Weight: m.words.At(t, id)}
		}
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].Weight != ranked[j].Weight {
				return ranked[i].Weight > ranked[j].Weight
			}
			return ranked[i].Word < ranked[j].Word
		})
		out[t] = Topic{ID: t, Words: ranked[:n]}
	}
	return out
}

// Weight is the probability of term id under topic t.
func (m *Model) Weight(t, id int) float64 { return m.words.At(t, id) }

// DocTopics returns the topic mixture of document i, or nil for a document
// that did not take part in the fit.
func (m *Model) DocTopics(i int) []float64 {
	col := m.column(i)
	if col < 0 {
		return nil
	}
	out := make([]float64, m.k)
	for t := 0; t < m.k; t++ {
		out[t] = m.theta.At(t, col)
	}
	return out
}

func (m *Model) column(doc int) int {
	j := sort.SearchInts(m.docs, doc)
	if j < len(m.docs) && m.docs[j] == doc {
		return j
	}
	return -1
}

// DominantTopics returns the highest-weighted topic of each document, -1 for
// documents with an empty vector.
func (m *Model) DominantTopics() []int {
	out := make([]int, m.ndocs)
	for i := range out {
		out[i] = -1
	}
	for col, doc := range m.docs {
		best, bestV := 0, -1.0
		for t := 0; t < m.k; t++ {
			if v := m.theta.At(t, col); v > bestV {
				best, bestV = t, v
			}
		}
		out[doc] = best
	}
	return out
}

// TopicSizes counts documents per dominant topic.
func (m *Model) TopicSizes() []int {
	sizes := make([]int, m.k)
	for _, t := range m.DominantTopics() {
		if t >= 0 {
			sizes[t]++
		}
	}
	return sizes
}

// DocScore pairs a document index with its weight for a topic.
type DocScore struct {
	Topic int     `json:"topic" yaml:"topic"`
	Doc   int     `json:"doc" yaml:"doc"`
	Score float64 `json:"score" yaml:"score"`
}

// TopDocuments returns the document most associated with each topic.
func (m *Model) TopDocuments() []DocScore {
	out := make([]DocScore, m.k)
	for t := 0; t < m.k; t++ {
		best := DocScore{Topic: t, Doc: -1}
		for col, doc := range m.docs {
			if v := m.theta.At(t, col); v > best.Score {
				best.Doc, best.Score = doc, v
			}
		}
		out[t] = best
	}
	return out
}
