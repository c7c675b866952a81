package viz

import (
	"fmt"

	"github.com/KaramelBytes/topicloom/internal/topics"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// KeywordCharts draws, for each of the first panels topics, word counts as
// bars against the left axis and importance as bars against the right one.
func KeywordCharts(rows []topics.Keyword, panels int, opt Options) ([]*charts.Bar, error) {
	colors := opt.Colors
	if len(colors) == 0 {
		colors = Palette()
	}
	grouped := topics.ByTopic(rows)
	if err := CheckPanels(panels, len(colors), len(grouped)); err != nil {
		return nil, err
	}

	out := make([]*charts.Bar, 0, panels)
	for t := 0; t < panels; t++ {
		out = append(out, keywordBar(t, grouped[t], colors[t], opt))
	}
	return out, nil
}

func keywordBar(topic int, rows []topics.Keyword, color string, opt Options) *charts.Bar {
	words := make([]string, len(rows))
	counts := make([]opts.BarData, len(rows))
	weights := make([]opts.BarData, len(rows))
	for i, r := range rows {
		words[i] = r.Word
		counts[i] = opts.BarData{Value: r.WordCount}
		weights[i] = opts.BarData{Value: round(r.Importance)}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  px(opt.Width),
			Height: px(opt.Height),
		}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Topic %d keywords", topic)}),
		charts.WithLegendOpts(opts.Legend{Show: true, Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 30, Interval: "0"}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "word count"}),
	)
	bar.ExtendYAxis(opts.YAxis{Name: "importance"})
	bar.SetXAxis(words).
		AddSeries("word count", counts,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: color, Opacity: 0.35})).
		AddSeries("importance", weights,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: color}),
			charts.WithBarChartOpts(opts.BarChart{YAxisIndex: 1}))
	return bar
}
