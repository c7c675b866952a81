package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/topicloom/internal/logging"
	"github.com/KaramelBytes/topicloom/internal/pipeline"
	"github.com/KaramelBytes/topicloom/internal/records"
	"github.com/KaramelBytes/topicloom/internal/topics"
	"github.com/KaramelBytes/topicloom/internal/utils"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const snippetLen = 140

// Settings is the part of the run configuration worth recording.
type Settings struct {
	Model  topics.Options `json:"model" yaml:"model"`
	Panels int            `json:"panels" yaml:"panels"`
	Words  int            `json:"words" yaml:"words"`
}

// Representative is the post that scores highest on a topic.
type Representative struct {
	Topic int     `json:"topic" yaml:"topic"`
	Index int     `json:"index" yaml:"index"`
	Score float64 `json:"score" yaml:"score"`
	Text  string  `json:"text" yaml:"text"`
}

// Run describes one finished pipeline run.
type Run struct {
	ID              uuid.UUID        `json:"id" yaml:"id"`
	Category        string           `json:"category" yaml:"category"`
	Source          string           `json:"source" yaml:"source"`
	CreatedAt       time.Time        `json:"created_at" yaml:"created_at"`
	Config          Settings         `json:"config" yaml:"config"`
	Summary         records.Summary  `json:"summary" yaml:"summary"`
	Vocabulary      int              `json:"vocabulary" yaml:"vocabulary"`
	Topics          []topics.Topic   `json:"topics" yaml:"topics"`
	Sizes           []int            `json:"sizes" yaml:"sizes"`
	Keywords        []topics.Keyword `json:"keywords" yaml:"keywords"`
	Representatives []Representative `json:"representatives" yaml:"representatives"`
	Timings         []logging.Mark   `json:"timings" yaml:"timings"`
}

// New builds a report from a pipeline result.
func New(res *pipeline.Result, cfg pipeline.Config) *Run {
	r := &Run{
		ID:        uuid.New(),
		Category:  res.Category,
		Source:    res.Source,
		CreatedAt: time.Now().UTC(),
		Config: Settings{
			Model:  cfg.Topics,
			Panels: cfg.Viz.Panels,
			Words:  cfg.Viz.Words,
		},
		Summary:  res.Summary,
		Topics:   res.Topics,
		Keywords: res.Keywords,
		Timings:  res.Timings,
	}
	if res.Dict != nil {
		r.Vocabulary = res.Dict.Len()
	}
	if res.Model != nil {
		r.Sizes = res.Model.TopicSizes()
		for _, ds := range res.Model.TopDocuments() {
			if ds.Doc < 0 || ds.Doc >= len(res.Records) {
				continue
			}
			rec := res.Records[ds.Doc]
			r.Representatives = append(r.Representatives, Representative{
				Topic: ds.Topic,
				Index: rec.Index,
				Score: ds.Score,
				Text:  snippet(rec.Text),
			})
		}
	}
	return r
}

// Markdown renders the report in sectioned plain text.
func (r *Run) Markdown() string {
	var b strings.Builder
	b.WriteString("[RUN]\n")
	b.WriteString(fmt.Sprintf("ID: %s\n", r.ID))
	b.WriteString(fmt.Sprintf("Source: %s\n", r.Source))
	b.WriteString(fmt.Sprintf("Created: %s\n", r.CreatedAt.Format(time.RFC3339)))
	m := r.Config.Model
	b.WriteString(fmt.Sprintf("Model: %d topics, %d passes, seed %d\n", m.Topics, m.Passes, m.Seed))
	b.WriteString(fmt.Sprintf("Vocabulary: %d\n\n", r.Vocabulary))

	b.WriteString(r.Summary.Markdown())

	b.WriteString("\n[TOPICS]\n")
	for _, t := range r.Topics {
		words := make([]string, len(t.Words))
		for i, w := range t.Words {
			words[i] = w.Word
		}
		size := ""
		if t.ID < len(r.Sizes) {
			size = fmt.Sprintf(" (n=%d)", r.Sizes[t.ID])
		}
		b.WriteString(fmt.Sprintf("- Topic %d%s: %s\n", t.ID, size, strings.Join(words, ", ")))
	}

	if len(r.Representatives) > 0 {
		b.WriteString("\n[REPRESENTATIVE POSTS]\n")
		for _, rp := range r.Representatives {
			b.WriteString(fmt.Sprintf("- Topic %d (#%d, %.3f): %s\n", rp.Topic, rp.Index, rp.Score, rp.Text))
		}
	}

	if len(r.Keywords) > 0 {
		b.WriteString("\n[KEYWORDS]\n")
		b.WriteString("| topic | word | importance | word_count |\n")
		b.WriteString("| --- | --- | --- | --- |\n")
		for _, k := range r.Keywords {
			b.WriteString(fmt.Sprintf("| %d | %s | %.4f | %d |\n", k.TopicID, k.Word, k.Importance, k.WordCount))
		}
	}

	if len(r.Timings) > 0 {
		b.WriteString("\n[TIMINGS]\n")
		for _, t := range r.Timings {
			b.WriteString(fmt.Sprintf("- %s: %s\n", t.Stage, t.Elapsed.Round(time.Millisecond)))
		}
	}
	return b.String()
}

// SaveYAML writes the report as YAML.
func (r *Run) SaveYAML(path string) error {
	b, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	return utils.SafeWriteFile(path, b)
}

// SaveJSON writes the report as indented JSON.
func (r *Run) SaveJSON(path string) error {
	b, err := utils.PrettyJSON(r)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(path, b)
}

// Save picks the format from the extension: .json, .yaml/.yml, anything else Markdown.
func (r *Run) Save(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return r.SaveJSON(path)
	case ".yaml", ".yml":
		return r.SaveYAML(path)
	default:
		return utils.SafeWriteFile(path, []byte(r.Markdown()))
	}
}

func snippet(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	rs := []rune(s)
	if len(rs) <= snippetLen {
		return s
	}
	return string(rs[:snippetLen]) + "…"
}
