package records

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// txtLoader reads one post per non-empty line.
type txtLoader struct{}

func (txtLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".txt")
}

func (txtLoader) Load(r io.Reader, opt Options) ([]Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var recs []Record
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		recs = append(recs, Record{Index: len(recs), Text: line})
		if opt.MaxRows > 0 && len(recs) >= opt.MaxRows {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan lines: %w", err)
	}
	return recs, nil
}
