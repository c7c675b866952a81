package records

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Record is one row of a sentiment category file. Records are not modified after Load.
type Record struct {
	Index    int       `json:"index" yaml:"index"`
	Text     string    `json:"text" yaml:"text"`
	Score    float64   `json:"score,omitempty" yaml:"score,omitempty"`
	HasScore bool      `json:"-" yaml:"-"`
	Date     time.Time `json:"date,omitempty" yaml:"date,omitempty"`
	HasDate  bool      `json:"-" yaml:"-"`
	Link     string    `json:"link,omitempty" yaml:"link,omitempty"`
}

// Options controls how a category file is read.
type Options struct {
	// Delimiter for CSV. If 0, chosen from the file extension.
	Delimiter rune
	// MaxRows limits records read; 0 means unlimited.
	MaxRows int
	// TextColumn is the header name holding the post text.
	TextColumn string
	// Sheet selects an XLSX worksheet by name; empty means the first sheet.
	Sheet string
}

// DefaultOptions returns the layout used by the sentiment exports.
func DefaultOptions() Options {
	return Options{TextColumn: "text"}
}

// Loader reads records from one file format.
type Loader interface {
	CanLoad(filename string) bool
	Load(r io.Reader, opt Options) ([]Record, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// ErrUnsupported indicates no loader accepts the file extension.
var ErrUnsupported = errors.New("unsupported input format")

// ErrNoTextColumn indicates the header row has no column for the post text.
var ErrNoTextColumn = errors.New("no text column")

// Load opens path, picks a loader by extension and materializes every record.
// The file is closed before Load returns.
func Load(path string, opt Options) ([]Record, error) {
	if opt.TextColumn == "" {
		opt.TextColumn = "text"
	}
	if opt.Delimiter == 0 {
		opt.Delimiter = sniffDelimiter(path)
	}
	var loader Loader
	for _, l := range registry {
		if l.CanLoad(path) {
			loader = l
			break
		}
	}
	if loader == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupported)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	defer f.Close()
	recs, err := loader.Load(f, opt)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return recs, nil
}

// Texts returns the text field of each record, in order.
func Texts(recs []Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Text
	}
	return out
}

func sniffDelimiter(path string) rune {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	return ','
}

func init() {
	Register(csvLoader{})
	Register(txtLoader{})
	Register(xlsxLoader{})
}
