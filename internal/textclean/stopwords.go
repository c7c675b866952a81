package textclean

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//
// STOPWORDS
//

var (
	// EnglishStopwords - the NLTK english list
	EnglishStopwords = []string{"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "you're",
		"you've", "you'll", "you'd", "your", "yours", "yourself", "yourselves", "he", "him", "his", "himself", "she",
		"she's", "her", "hers", "herself", "it", "it's", "its", "itself", "they", "them", "their", "theirs",
		"themselves", "what", "which", "who", "whom", "this", "that", "that'll", "these", "those", "am", "is", "are",
		"was", "were", "be", "been", "being", "have", "has", "had", "having", "do", "does", "did", "doing", "a", "an",
		"the", "and", "but", "if", "or", "because", "as", "until", "while", "of", "at", "by", "for", "with", "about",
		"against", "between", "into", "through", "during", "before", "after", "above", "below", "to", "from", "up",
		"down", "in", "out", "on", "off", "over", "under", "again", "further", "then", "once", "here", "there", "when",
		"where", "why", "how", "all", "any", "both", "each", "few", "more", "most", "other", "some", "such", "no",
		"nor", "not", "only", "own", "same", "so", "than", "too", "very", "s", "t", "can", "will", "just", "don",
		"don't", "should", "should've", "now", "d", "ll", "m", "o", "re", "ve", "y", "ain", "aren", "aren't", "couldn",
		"couldn't", "didn", "didn't", "doesn", "doesn't", "hadn", "hadn't", "hasn", "hasn't", "haven", "haven't",
		"isn", "isn't", "ma", "mightn", "mightn't", "mustn", "mustn't", "needn", "needn't", "shan", "shan't",
		"shouldn", "shouldn't", "wasn", "wasn't", "weren", "weren't", "won", "won't", "wouldn", "wouldn't"}

	// SocialStopwords - filler that survives cleaning of posts and comments
	SocialStopwords = []string{"got", "say", "use", "from", "nt", "gt", "to", "also", "that", "this", "the"}
)

// DefaultStopwords returns a fresh set holding EnglishStopwords and SocialStopwords.
func DefaultStopwords() map[string]struct{} {
	return StopSet(EnglishStopwords, SocialStopwords)
}

// StopSet merges word lists into a lowercase set.
func StopSet(lists ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, l := range lists {
		for _, w := range l {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				set[w] = struct{}{}
			}
		}
	}
	return set
}

// LoadStopwords reads a user stopword file: a JSON array for ".json", otherwise one word per line
// with "#" comments.
func LoadStopwords(path string) ([]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read stopwords: %w", err)
		}
		var words []string
		if err := json.Unmarshal(b, &words); err != nil {
			return nil, fmt.Errorf("parse stopwords %s: %w", path, err)
		}
		return words, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read stopwords: %w", err)
	}
	defer f.Close()
	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan stopwords: %w", err)
	}
	return words, nil
}
