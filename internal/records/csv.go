package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

type csvLoader struct{}

func (csvLoader) CanLoad(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

// columns maps record fields to cell positions; -1 marks an absent column.
type columns struct {
	index, text, score, date, link int
}

// positional is the fixed export layout: index, text, score, date, link.
var positional = columns{index: 0, text: 1, score: 2, date: 3, link: 4}

func (csvLoader) Load(r io.Reader, opt Options) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true
	cr.Comma = opt.Delimiter
	return fromRows(cr.Read, opt)
}

// fromRows builds records from a row source that returns io.EOF when done.
// The first row is either a header or already data in the positional layout.
func fromRows(next func() ([]string, error), opt Options) ([]Record, error) {
	first, err := next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var recs []Record
	cols, isHeader := headerColumns(first, opt.TextColumn)
	if !isHeader {
		if looksLikeHeader(first) {
			return nil, fmt.Errorf("column %q: %w", opt.TextColumn, ErrNoTextColumn)
		}
		cols = positional
		recs = append(recs, rowToRecord(first, cols, 0))
	}

	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	for len(recs) < maxRows {
		row, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(recs)+1, err)
		}
		recs = append(recs, rowToRecord(row, cols, len(recs)))
	}
	if len(recs) > maxRows {
		recs = recs[:maxRows]
	}
	return recs, nil
}

// headerColumns resolves field positions from a header row. ok is false when
// the row does not name the text column.
func headerColumns(row []string, textColumn string) (columns, bool) {
	cols := columns{index: -1, text: -1, score: -1, date: -1, link: -1}
	want := strings.ToLower(strings.TrimSpace(textColumn))
	for i, cell := range row {
		name := strings.ToLower(strings.TrimSpace(cell))
		switch {
		case name == want:
			cols.text = i
		case name == "" || name == "index" || name == "row" || name == "row number" || name == "unnamed: 0" || name == "id":
			if cols.index < 0 {
				cols.index = i
			}
		case name == "score" || name == "sentiment_score":
			cols.score = i
		case name == "date" || name == "created" || name == "created_at" || name == "timestamp":
			cols.date = i
		case name == "link" || name == "url" || name == "permalink":
			cols.link = i
		}
	}
	return cols, cols.text >= 0
}

// looksLikeHeader reports whether a row is made of known column names but
// lacks the requested text column.
func looksLikeHeader(row []string) bool {
	known := 0
	for _, cell := range row {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "score", "date", "link", "url", "index":
			known++
		}
	}
	return known >= 2
}

func rowToRecord(row []string, cols columns, ordinal int) Record {
	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	rec := Record{Index: ordinal}
	if len(row) == 1 && cols == positional {
		rec.Text = cell(0)
		return rec
	}
	if n, err := strconv.Atoi(cell(cols.index)); err == nil {
		rec.Index = n
	}
	rec.Text = cell(cols.text)
	if f, err := strconv.ParseFloat(cell(cols.score), 64); err == nil {
		rec.Score = f
		rec.HasScore = true
	}
	if t, ok := parseTimeMaybe(cell(cols.date)); ok {
		rec.Date = t
		rec.HasDate = true
	}
	rec.Link = cell(cols.link)
	return rec
}

func parseTimeMaybe(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02 15:04:05-07:00",
		"2006-01-02T15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 1e9 {
		return time.Unix(secs, 0).UTC(), true
	}
	return time.Time{}, false
}
