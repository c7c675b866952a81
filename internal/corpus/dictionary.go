package corpus

import (
	"math"
	"sort"

	"github.com/e-gun/sparse"
	"gonum.org/v1/gonum/mat"
)

// TermCount is one entry of a document-term vector.
type TermCount struct {
	ID    int `json:"id" yaml:"id"`
	Count int `json:"count" yaml:"count"`
}

// Dictionary maps tokens to integer ids and back. Ids are dense, 0..Len()-1.
type Dictionary struct {
	token2id map[string]int
	id2token []string
	docFreq  []int
	counts   []int
	numDocs  int
}

// NewDictionary builds a dictionary over all documents. New tokens of each
// document receive ids in sorted order, documents are visited as given.
func NewDictionary(docs [][]string) *Dictionary {
	d := &Dictionary{token2id: make(map[string]int)}
	for _, doc := range docs {
		d.add(doc)
	}
	return d
}

func (d *Dictionary) add(doc []string) {
	d.numDocs++
	freq := make(map[string]int, len(doc))
	for _, tok := range doc {
		freq[tok]++
	}
	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}
	sort.Strings(words)
	for _, w := range words {
		id, ok := d.token2id[w]
		if !ok {
			id = len(d.id2token)
			d.token2id[w] = id
			d.id2token = append(d.id2token, w)
			d.docFreq = append(d.docFreq, 0)
			d.counts = append(d.counts, 0)
		}
		d.docFreq[id]++
		d.counts[id] += freq[w]
	}
}

// Len is the vocabulary size.
func (d *Dictionary) Len() int { return len(d.id2token) }

// NumDocs is the number of documents the dictionary was built from.
func (d *Dictionary) NumDocs() int { return d.numDocs }

// ID looks up a token.
func (d *Dictionary) ID(token string) (int, bool) {
	id, ok := d.token2id[token]
	return id, ok
}

// Token returns the token for id, or "" when id is out of range.
func (d *Dictionary) Token(id int) string {
	if id < 0 || id >= len(d.id2token) {
		return ""
	}
	return d.id2token[id]
}

// DocFreq is the number of documents containing id.
func (d *Dictionary) DocFreq(id int) int { return d.docFreq[id] }

// Count is the total number of occurrences of id across the corpus.
func (d *Dictionary) Count(id int) int { return d.counts[id] }

// Tokens returns the vocabulary ordered by id.
func (d *Dictionary) Tokens() []string {
	out := make([]string, len(d.id2token))
	copy(out, d.id2token)
	return out
}

// Doc2Bow converts a document into a vector sorted by id. Unknown tokens are ignored.
func (d *Dictionary) Doc2Bow(doc []string) []TermCount {
	freq := make(map[int]int, len(doc))
	for _, tok := range doc {
		if id, ok := d.token2id[tok]; ok {
			freq[id]++
		}
	}
	bow := make([]TermCount, 0, len(freq))
	for id, c := range freq {
		bow = append(bow, TermCount{ID: id, Count: c})
	}
	sort.Slice(bow, func(i, j int) bool { return bow[i].ID < bow[j].ID })
	return bow
}

// Encode converts every document, keeping document order.
func (d *Dictionary) Encode(docs [][]string) [][]TermCount {
	out := make([][]TermCount, len(docs))
	for i, doc := range docs {
		out[i] = d.Doc2Bow(doc)
	}
	return out
}

// FilterExtremes drops tokens found in fewer than noBelow documents or in more
// than noAbove (a fraction) of documents, then keeps at most keepN of the most
// frequent survivors (keepN <= 0 keeps all). Ids are compacted afterwards;
// vectors encoded earlier must be re-encoded.
func (d *Dictionary) FilterExtremes(noBelow int, noAbove float64, keepN int) {
	maxDocs := math.MaxInt
	if noAbove > 0 && noAbove < 1 {
		maxDocs = int(noAbove * float64(d.numDocs))
	}
	var keep []int
	for id := range d.id2token {
		df := d.docFreq[id]
		if df < noBelow || df > maxDocs {
			continue
		}
		keep = append(keep, id)
	}
	if keepN > 0 && len(keep) > keepN {
		sort.SliceStable(keep, func(i, j int) bool { return d.docFreq[keep[i]] > d.docFreq[keep[j]] })
		keep = keep[:keepN]
		sort.Ints(keep)
	}

	nd := &Dictionary{token2id: make(map[string]int, len(keep)), numDocs: d.numDocs}
	for _, old := range keep {
		w := d.id2token[old]
		nd.token2id[w] = len(nd.id2token)
		nd.id2token = append(nd.id2token, w)
		nd.docFreq = append(nd.docFreq, d.docFreq[old])
		nd.counts = append(nd.counts, d.counts[old])
	}
	*d = *nd
}

// Matrix lays the vectors out as a sparse term x document count matrix,
// the orientation the LDA fitter expects. Nonzeros are stored document by
// document in id order, so a seeded fit visits them in the same order every run.
func (d *Dictionary) Matrix(bows [][]TermCount) mat.Matrix {
	var rows, cols []int
	var data []float64
	for j, bow := range bows {
		for _, tc := range bow {
			rows = append(rows, tc.ID)
			cols = append(cols, j)
			data = append(data, float64(tc.Count))
		}
	}
	return sparse.NewCOO(d.Len(), len(bows), rows, cols, data).ToCSC()
}

// NonEmpty counts vectors holding at least one term.
func NonEmpty(bows [][]TermCount) int {
	n := 0
	for _, b := range bows {
		if len(b) > 0 {
			n++
		}
	}
	return n
}
