package viz_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/KaramelBytes/topicloom/internal/topics"
	"github.com/KaramelBytes/topicloom/internal/viz"
	"github.com/stretchr/testify/require"
)

func sampleTopics(k, n int) []topics.Topic {
	out := make([]topics.Topic, k)
	for t := 0; t < k; t++ {
		words := make([]topics.WordWeight, n)
		for i := range words {
			words[i] = topics.WordWeight{Word: fmt.Sprintf("word%d_%d", t, i), Weight: 1 / float64(i+1)}
		}
		out[t] = topics.Topic{ID: t, Words: words}
	}
	return out
}

func TestWordCloudsOnePerPanel(t *testing.T) {
	opt := viz.DefaultOptions()
	clouds, err := viz.WordClouds(sampleTopics(10, 40), opt)
	require.NoError(t, err)
	require.Len(t, clouds, 4)
}

func TestWordCloudsRejectBadPanels(t *testing.T) {
	opt := viz.DefaultOptions()

	opt.Panels = 11
	_, err := viz.WordClouds(sampleTopics(12, 5), opt)
	require.ErrorIs(t, err, viz.ErrTooManyPanels)

	opt.Panels = 4
	_, err = viz.WordClouds(sampleTopics(3, 5), opt)
	require.ErrorIs(t, err, viz.ErrTooManyPanels)

	opt.Panels = 0
	_, err = viz.WordClouds(sampleTopics(3, 5), opt)
	require.ErrorIs(t, err, viz.ErrTooManyPanels)
}

func TestPaletteIsFresh(t *testing.T) {
	p := viz.Palette()
	require.Len(t, p, 10)
	p[0] = "#000000"
	require.Equal(t, "#1f77b4", viz.Palette()[0])
}

func TestRenderPageBindsEachColour(t *testing.T) {
	opt := viz.DefaultOptions()
	opt.Words = 3
	clouds, err := viz.WordClouds(sampleTopics(4, 10), opt)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, viz.RenderPage(&buf, "neutral", viz.Charters(clouds)...))
	html := buf.String()
	require.Contains(t, html, "neutral")
	for i, c := range viz.Palette()[:4] {
		require.Contains(t, html, c, "panel %d colour", i)
	}
	for i, c := range viz.Palette()[:4] {
		require.Contains(t, html, `"textStyle":{"normal":{"color":"`+c+`"}}`, "panel %d word colour", i)
	}
	require.NotContains(t, html, "Math.random")
	require.Contains(t, html, "word3_2")
	require.NotContains(t, html, "word3_3")
	require.NotContains(t, html, viz.Palette()[4])
}

func TestKeywordCharts(t *testing.T) {
	rows := []topics.Keyword{
		{Word: "market", TopicID: 0, Importance: 0.2, WordCount: 12},
		{Word: "stock", TopicID: 0, Importance: 0.1, WordCount: 7},
		{Word: "beach", TopicID: 1, Importance: 0.3, WordCount: 4},
	}
	bars, err := viz.KeywordCharts(rows, 2, viz.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, bars, 2)

	_, err = viz.KeywordCharts(rows, 3, viz.DefaultOptions())
	require.ErrorIs(t, err, viz.ErrTooManyPanels)

	var buf bytes.Buffer
	require.NoError(t, viz.RenderPage(&buf, "kw", viz.Charters(bars)...))
	require.Contains(t, buf.String(), "importance")
}

func TestServeUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- viz.Serve(ctx, "127.0.0.1:0", []byte("<html>clouds</html>"), nil, ready)
	}()

	var addr string
	select {
	case addr = <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "<html>clouds</html>", string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
