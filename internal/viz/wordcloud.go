package viz

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/KaramelBytes/topicloom/internal/topics"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ErrTooManyPanels is returned when more panels are requested than there are
// colours or topics to fill them.
var ErrTooManyPanels = errors.New("too many panels")

// Palette returns the Tableau 10 colours in their usual order.
func Palette() []string {
	return []string{
		"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
		"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
	}
}

// Options controls the word cloud page.
type Options struct {
	Panels int
	Words  int
	Width  int
	Height int
	Title  string
	Colors []string
}

// DefaultOptions is a 2x2 grid of 25-word clouds.
func DefaultOptions() Options {
	return Options{
		Panels: 4,
		Words:  25,
		Width:  600,
		Height: 450,
		Title:  "Topics",
		Colors: Palette(),
	}
}

// CheckPanels validates a panel request against the palette and topic count.
func CheckPanels(panels, colors, ntopics int) error {
	if panels < 1 {
		return fmt.Errorf("%w: need at least one panel, got %d", ErrTooManyPanels, panels)
	}
	if panels > colors {
		return fmt.Errorf("%w: %d panels but only %d colours", ErrTooManyPanels, panels, colors)
	}
	if panels > ntopics {
		return fmt.Errorf("%w: %d panels but only %d topics", ErrTooManyPanels, panels, ntopics)
	}
	return nil
}

// WordClouds builds one word cloud per displayed topic, in topic order.
func WordClouds(tt []topics.Topic, opt Options) ([]*charts.WordCloud, error) {
	colors := opt.Colors
	if len(colors) == 0 {
		colors = Palette()
	}
	if err := CheckPanels(opt.Panels, len(colors), len(tt)); err != nil {
		return nil, err
	}
	out := make([]*charts.WordCloud, 0, opt.Panels)
	for i := 0; i < opt.Panels; i++ {
		out = append(out, wordCloud(tt[i], colors[i], opt))
	}
	return out, nil
}

func wordCloud(t topics.Topic, color string, opt Options) *charts.WordCloud {
	words := t.Words
	if opt.Words > 0 && len(words) > opt.Words {
		words = words[:opt.Words]
	}
	data := make([]opts.WordCloudData, 0, len(words))
	for _, w := range words {
		data = append(data, opts.WordCloudData{Name: w.Word, Value: round(w.Weight)})
	}

	wc := charts.NewWordCloud()
	wc.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  px(opt.Width),
			Height: px(opt.Height),
		}),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Topic %d", t.ID),
			TitleStyle: &opts.TextStyle{
				Color:    color,
				FontSize: 16,
			},
		}),
	)
	wc.AddSeries(fmt.Sprintf("topic-%d", t.ID), data,
		charts.WithWorldCloudChartOpts(opts.WordCloudChart{
			Shape:     "circle",
			SizeRange: []float32{12, 60},
		}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
		withWordColor(color),
	)
	return wc
}

// withWordColor sets the colour the word cloud paints every word with.
// Without it go-echarts installs a random colour function.
func withWordColor(color string) charts.SeriesOpts {
	return func(s *charts.SingleSeries) {
		s.TextStyle = &opts.TextStyle{Normal: &opts.TextStyle{Color: color}}
	}
}

// RenderPage writes every chart onto one HTML page.
func RenderPage(w io.Writer, title string, cc ...components.Charter) error {
	page := components.NewPage()
	page.PageTitle = title
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(cc...)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

// Charters converts word clouds for RenderPage.
func Charters[T components.Charter](cc []T) []components.Charter {
	out := make([]components.Charter, len(cc))
	for i, c := range cc {
		out[i] = c
	}
	return out
}

func px(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("%dpx", n)
}

func round(f float64) float64 {
	return math.Round(f*1e4) / 1e4
}
