package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/topicloom/internal/config"
	"github.com/KaramelBytes/topicloom/internal/pipeline"
	"github.com/KaramelBytes/topicloom/internal/topics"
	"github.com/KaramelBytes/topicloom/internal/viz"
	"github.com/stretchr/testify/require"
)

type splitCleaner struct{}

func (splitCleaner) CleanAll(texts []string) [][]string {
	out := make([][]string, len(texts))
	for i, t := range texts {
		out[i] = []string{}
		for _, f := range strings.Fields(strings.ToLower(t)) {
			out[i] = append(out[i], f)
		}
	}
	return out
}

const sample = `index,text,score,date,link
0,stock market price trade,0.1,2021-03-01,https://x.co/1
1,market price inflation stock,0.2,2021-03-02,
2,,0.0,2021-03-03,
3,beach sun holiday sand,0.9,2021-03-04,
4,sun sand beach swim,0.8,2021-03-05,
5,vaccine covid hospital doctor,0.4,2021-03-06,
6,doctor hospital covid nurse,0.3,2021-03-07,
`

func writeSample(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "neutral.csv")
	require.NoError(t, os.WriteFile(p, []byte(sample), 0o644))
	return p
}

func testConfig() pipeline.Config {
	opt := topics.DefaultOptions()
	opt.Topics = 3
	opt.Passes = 10
	opt.TopWords = 5
	opt.Seed = 7
	vo := viz.DefaultOptions()
	vo.Panels = 2
	vo.Words = 5
	return pipeline.Config{
		Topics:  opt,
		Viz:     vo,
		Cleaner: splitCleaner{},
	}
}

func TestRunProducesEveryStage(t *testing.T) {
	path := writeSample(t)
	res, err := pipeline.Run(context.Background(), testConfig(), path, nil)
	require.NoError(t, err)

	require.Equal(t, "neutral", res.Category)
	require.Len(t, res.Records, 7)
	require.Equal(t, 1, res.Summary.EmptyText)
	require.Len(t, res.Docs, 7)
	require.Empty(t, res.Docs[2])
	require.Len(t, res.Bows, 7)
	require.Empty(t, res.Bows[2])
	require.Equal(t, 15, res.Dict.Len())

	require.Len(t, res.Topics, 3)
	for _, tp := range res.Topics {
		require.Len(t, tp.Words, 5)
	}
	require.Len(t, res.Keywords, 15)

	html := string(res.Page)
	require.Contains(t, html, "Topics: neutral")
	require.Contains(t, html, viz.Palette()[1])

	var stages []string
	for _, m := range res.Timings {
		stages = append(stages, m.Stage)
	}
	require.Equal(t, []string{"load", "clean", "encode", "fit", "render"}, stages)
}

func TestRunStageErrors(t *testing.T) {
	_, err := pipeline.Run(context.Background(), testConfig(), filepath.Join(t.TempDir(), "missing.csv"), nil)
	var se *pipeline.StageError
	require.True(t, errors.As(err, &se))
	require.Equal(t, pipeline.StageLoad, se.Stage)
	require.ErrorIs(t, err, os.ErrNotExist)

	cfg := testConfig()
	cfg.Topics.Topics = 100
	cfg.Viz.Panels = 2
	_, err = pipeline.Run(context.Background(), cfg, writeSample(t), nil)
	require.True(t, errors.As(err, &se))
	require.Equal(t, pipeline.StageFit, se.Stage)
	require.ErrorIs(t, err, topics.ErrTopicCount)
}

func TestRunRejectsPanelsBeforeLoading(t *testing.T) {
	cfg := testConfig()
	cfg.Viz.Panels = 4
	_, err := pipeline.Run(context.Background(), cfg, filepath.Join(t.TempDir(), "missing.csv"), nil)
	require.ErrorIs(t, err, viz.ErrTooManyPanels)
}

func TestRunEmptyCorpus(t *testing.T) {
	p := filepath.Join(t.TempDir(), "joy.csv")
	require.NoError(t, os.WriteFile(p, []byte("index,text\n0,\n1,   \n"), 0o644))
	_, err := pipeline.Run(context.Background(), testConfig(), p, nil)
	require.ErrorIs(t, err, topics.ErrEmptyCorpus)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pipeline.Run(ctx, testConfig(), writeSample(t), nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFromGlobal(t *testing.T) {
	g := config.Default()
	g.ExtraStopwords = []string{"RT"}
	cfg, err := pipeline.FromGlobal(g)
	require.NoError(t, err)
	require.Equal(t, 10, cfg.Topics.Topics)
	require.Equal(t, 4, cfg.Viz.Panels)
	require.Equal(t, 25, cfg.Viz.Words)
	require.Contains(t, cfg.Stopwords, "rt")
	require.Contains(t, cfg.Stopwords, "the")

	g.Panels = 12
	_, err = pipeline.FromGlobal(g)
	require.ErrorIs(t, err, config.ErrInvalid)
}
