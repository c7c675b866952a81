package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/KaramelBytes/topicloom/internal/config"
	"github.com/KaramelBytes/topicloom/internal/corpus"
	"github.com/KaramelBytes/topicloom/internal/logging"
	"github.com/KaramelBytes/topicloom/internal/records"
	"github.com/KaramelBytes/topicloom/internal/textclean"
	"github.com/KaramelBytes/topicloom/internal/topics"
	"github.com/KaramelBytes/topicloom/internal/utils"
	"github.com/KaramelBytes/topicloom/internal/viz"
)

// Stage names, in execution order.
const (
	StageLoad   = "load"
	StageClean  = "clean"
	StageEncode = "encode"
	StageFit    = "fit"
	StageRender = "render"
)

// StageError tags a failure with the stage it happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Cleaner turns raw texts into token lists, one per text, in order.
type Cleaner interface {
	CleanAll(texts []string) [][]string
}

// Config is everything one run needs.
type Config struct {
	Category string
	Records  records.Options
	Topics   topics.Options
	Viz      viz.Options

	// Dictionary filtering; NoAbove >= 1 and zero values disable it.
	NoBelow int
	NoAbove float64
	KeepN   int

	// Cleaner overrides the english normalizer built from Stopwords.
	Cleaner               Cleaner
	Stopwords             map[string]struct{}
	MinLanguageConfidence float64
}

// FromGlobal derives a run configuration from the loaded settings.
func FromGlobal(g *config.Global) (Config, error) {
	if err := g.Validate(); err != nil {
		return Config{}, err
	}
	stops := textclean.DefaultStopwords()
	if g.StopwordsFile != "" {
		words, err := textclean.LoadStopwords(g.StopwordsFile)
		if err != nil {
			return Config{}, err
		}
		stops = textclean.StopSet(words)
	}
	for w := range textclean.StopSet(g.ExtraStopwords) {
		stops[w] = struct{}{}
	}

	vo := viz.DefaultOptions()
	vo.Panels = g.Panels
	vo.Words = g.TopWords
	vo.Width = g.CloudWidth
	vo.Height = g.CloudHeight

	return Config{
		Records: records.Options{MaxRows: g.MaxRows, TextColumn: g.TextColumn},
		Topics: topics.Options{
			Topics:   g.Topics,
			Passes:   g.Passes,
			TopWords: g.TopWords,
			Seed:     g.Seed,
			Workers:  g.Workers,
			Alpha:    g.Alpha,
			Eta:      g.Eta,
		},
		Viz:                   vo,
		NoBelow:               g.NoBelow,
		NoAbove:               g.NoAbove,
		KeepN:                 g.KeepN,
		Stopwords:             stops,
		MinLanguageConfidence: g.MinLanguageConfidence,
	}, nil
}

// Result holds every intermediate product of a run.
type Result struct {
	Category string
	Source   string
	Records  []records.Record
	Summary  records.Summary
	Docs     [][]string
	Dict     *corpus.Dictionary
	Bows     [][]corpus.TermCount
	Model    *topics.Model
	Topics   []topics.Topic
	Keywords []topics.Keyword
	Page     []byte
	Timings  []logging.Mark
}

// Run executes load, clean, encode, fit and render once, in that order.
func Run(ctx context.Context, cfg Config, path string, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	category := cfg.Category
	if category == "" {
		category = utils.CategoryFromPath(path)
	}
	logger = logger.With("category", category)

	ncolors := len(cfg.Viz.Colors)
	if ncolors == 0 {
		ncolors = len(viz.Palette())
	}
	if err := viz.CheckPanels(cfg.Viz.Panels, ncolors, cfg.Topics.Topics); err != nil {
		return nil, err
	}
	timer := logging.NewTimer(logger)
	res := &Result{Category: category, Source: path}

	// load
	recs, err := records.Load(path, cfg.Records)
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: err}
	}
	res.Records = recs
	res.Summary = records.Summarize(category, recs)
	logger.Info("records loaded", "records", len(recs), "empty", res.Summary.EmptyText)
	timer.Mark(StageLoad)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// clean
	cleaner := cfg.Cleaner
	if cleaner == nil {
		stops := cfg.Stopwords
		if stops == nil {
			stops = textclean.DefaultStopwords()
		}
		n, err := textclean.NewEnglishNormalizer(stops, cfg.MinLanguageConfidence)
		if err != nil {
			return nil, &StageError{Stage: StageClean, Err: err}
		}
		cleaner = n
	}
	res.Docs = cleaner.CleanAll(records.Texts(recs))
	timer.Mark(StageClean)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// encode
	dict := corpus.NewDictionary(res.Docs)
	if cfg.NoBelow > 0 || (cfg.NoAbove > 0 && cfg.NoAbove < 1) || cfg.KeepN > 0 {
		before := dict.Len()
		dict.FilterExtremes(cfg.NoBelow, cfg.NoAbove, cfg.KeepN)
		logger.Debug("dictionary filtered", "before", before, "after", dict.Len())
	}
	res.Dict = dict
	res.Bows = dict.Encode(res.Docs)
	logger.Info("corpus encoded", "vocabulary", dict.Len(), "documents", len(res.Bows), "non_empty", corpus.NonEmpty(res.Bows))
	timer.Mark(StageEncode)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// fit
	model, err := topics.Fit(dict, res.Bows, cfg.Topics)
	if err != nil {
		return nil, &StageError{Stage: StageFit, Err: err}
	}
	res.Model = model
	topWords := cfg.Topics.TopWords
	if topWords <= 0 {
		topWords = topics.DefaultOptions().TopWords
	}
	res.Topics = model.Topics(topWords)
	res.Keywords = topics.Keywords(model, topWords)
	logger.Info("topics fitted", "topics", model.NumTopics(), "passes", cfg.Topics.Passes, "seed", cfg.Topics.Seed)
	timer.Mark(StageFit)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// render
	page, err := Render(res, cfg.Viz)
	if err != nil {
		return nil, &StageError{Stage: StageRender, Err: err}
	}
	res.Page = page
	timer.Mark(StageRender)
	res.Timings = timer.Marks()
	logger.Debug("run complete", "elapsed", timer.Total())
	return res, nil
}

// Render draws the word clouds and keyword charts of a fitted run onto one page.
func Render(res *Result, opt viz.Options) ([]byte, error) {
	if opt.Title == "" || opt.Title == viz.DefaultOptions().Title {
		opt.Title = fmt.Sprintf("Topics: %s", res.Category)
	}
	clouds, err := viz.WordClouds(res.Topics, opt)
	if err != nil {
		return nil, err
	}
	bars, err := viz.KeywordCharts(res.Keywords, opt.Panels, opt)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	all := append(viz.Charters(clouds), viz.Charters(bars)...)
	if err := viz.RenderPage(&buf, opt.Title, all...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
