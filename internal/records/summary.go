package records

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary describes a loaded category file before any cleaning.
type Summary struct {
	Name      string    `json:"name" yaml:"name"`
	Records   int       `json:"records" yaml:"records"`
	EmptyText int       `json:"empty_text" yaml:"empty_text"`
	WithLinks int       `json:"with_links" yaml:"with_links"`
	Scored    int       `json:"scored" yaml:"scored"`
	ScoreMin  float64   `json:"score_min" yaml:"score_min"`
	ScoreMax  float64   `json:"score_max" yaml:"score_max"`
	ScoreMean float64   `json:"score_mean" yaml:"score_mean"`
	Dated     int       `json:"dated" yaml:"dated"`
	FirstDate time.Time `json:"first_date,omitempty" yaml:"first_date,omitempty"`
	LastDate  time.Time `json:"last_date,omitempty" yaml:"last_date,omitempty"`
}

// Summarize collects counts and score/date ranges over recs.
func Summarize(name string, recs []Record) Summary {
	s := Summary{Name: name, Records: len(recs), ScoreMin: math.Inf(1), ScoreMax: math.Inf(-1)}
	var sum float64
	for _, r := range recs {
		if strings.TrimSpace(r.Text) == "" {
			s.EmptyText++
		}
		if r.Link != "" {
			s.WithLinks++
		}
		if r.HasScore {
			s.Scored++
			sum += r.Score
			s.ScoreMin = math.Min(s.ScoreMin, r.Score)
			s.ScoreMax = math.Max(s.ScoreMax, r.Score)
		}
		if r.HasDate {
			s.Dated++
			if s.FirstDate.IsZero() || r.Date.Before(s.FirstDate) {
				s.FirstDate = r.Date
			}
			if r.Date.After(s.LastDate) {
				s.LastDate = r.Date
			}
		}
	}
	if s.Scored > 0 {
		s.ScoreMean = sum / float64(s.Scored)
	} else {
		s.ScoreMin, s.ScoreMax = 0, 0
	}
	return s
}

// Markdown renders the summary in the same sectioned layout as the run report.
func (s Summary) Markdown() string {
	p := message.NewPrinter(language.English)
	var b strings.Builder
	b.WriteString("[CORPUS SUMMARY]\n")
	if s.Name != "" {
		b.WriteString(p.Sprintf("Category: %s\n", s.Name))
	}
	b.WriteString(p.Sprintf("Records: %d (empty text %d, with links %d)\n", s.Records, s.EmptyText, s.WithLinks))
	if s.Scored > 0 {
		b.WriteString(p.Sprintf("Score: min %.4g, max %.4g, mean %.4g (n=%d)\n", s.ScoreMin, s.ScoreMax, s.ScoreMean, s.Scored))
	}
	if s.Dated > 0 {
		b.WriteString(p.Sprintf("Dates: %s → %s (n=%d)\n", s.FirstDate.Format("2006-01-02"), s.LastDate.Format("2006-01-02"), s.Dated))
	}
	return b.String()
}
