package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	cfgpkg "github.com/KaramelBytes/topicloom/internal/config"
	"github.com/KaramelBytes/topicloom/internal/pipeline"
	"github.com/KaramelBytes/topicloom/internal/report"
	"github.com/KaramelBytes/topicloom/internal/utils"
	"github.com/KaramelBytes/topicloom/internal/viz"
	"github.com/spf13/cobra"
)

var (
	runTopics     int
	runPasses     int
	runSeed       int64
	runTopWords   int
	runPanels     int
	runWorkers    int
	runTextColumn string
	runDelimiter  string
	runSheet      string
	runMaxRows    int
	runCategory   string
	runOutputPath string
	runReportPath string
	runServeAddr  string
	runQuiet      bool
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Fit topics for one sentiment category file and render word clouds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		g, err := ensureConfig()
		if err != nil {
			return err
		}
		pc, err := runConfig(cmd, g)
		if err != nil {
			return err
		}
		pc.Category = runCategory
		log := newLogger(cmd)
		out := cmd.OutOrStdout()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		res, err := pipeline.Run(ctx, pc, path, log)
		if err != nil {
			return err
		}

		htmlPath := runOutputPath
		if htmlPath == "" {
			htmlPath = filepath.Join(g.OutputDir, res.Category+".html")
		}
		if err := utils.SafeWriteFile(htmlPath, res.Page); err != nil {
			return fmt.Errorf("write page: %w", err)
		}
		if !runQuiet {
			fmt.Fprint(out, res.Summary.Markdown())
			fmt.Fprintf(out, "✓ Fitted %d topics over %d terms\n", res.Model.NumTopics(), res.Dict.Len())
			fmt.Fprintf(out, "✓ Wrote word clouds to %s\n", htmlPath)
		}

		if runReportPath != "" {
			if err := report.New(res, pc).Save(runReportPath); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			if !runQuiet {
				fmt.Fprintf(out, "✓ Wrote report to %s\n", runReportPath)
			}
		}

		if runServeAddr != "" {
			ready := make(chan string, 1)
			errc := make(chan error, 1)
			go func() {
				errc <- viz.Serve(ctx, runServeAddr, res.Page, log, ready)
			}()
			select {
			case addr := <-ready:
				if !runQuiet {
					fmt.Fprintf(out, "Serving on http://%s (Ctrl-C to stop)\n", addr)
				}
			case err := <-errc:
				return err
			}
			return <-errc
		}
		return nil
	},
}

// runConfig merges changed flags of cmd over the loaded settings. The loaded
// settings are not modified.
func runConfig(cmd *cobra.Command, g *cfgpkg.Global) (pipeline.Config, error) {
	c := *g
	f := cmd.Flags()
	if f.Changed("topics") {
		c.Topics = runTopics
	}
	if f.Changed("passes") {
		c.Passes = runPasses
	}
	if f.Changed("seed") {
		c.Seed = runSeed
	}
	if f.Changed("top-words") {
		c.TopWords = runTopWords
	}
	if f.Changed("panels") {
		c.Panels = runPanels
	}
	if f.Changed("workers") && runWorkers > 0 {
		c.Workers = runWorkers
	}
	if f.Changed("text-column") {
		c.TextColumn = runTextColumn
	}
	if f.Changed("max-rows") {
		c.MaxRows = runMaxRows
	}
	pc, err := pipeline.FromGlobal(&c)
	if err != nil {
		return pipeline.Config{}, err
	}
	d, err := parseDelimiter(runDelimiter)
	if err != nil {
		return pipeline.Config{}, err
	}
	pc.Records.Delimiter = d
	pc.Records.Sheet = runSheet
	return pc, nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	case "|", "pipe":
		return '|', nil
	default:
		return 0, fmt.Errorf("unsupported --delimiter: %s", s)
	}
}

// addModelFlags registers the flags shared by run and batch.
func addModelFlags(c *cobra.Command) {
	c.Flags().IntVar(&runTopics, "topics", 10, "number of topics (overrides config)")
	c.Flags().IntVar(&runPasses, "passes", 50, "training passes (overrides config)")
	c.Flags().Int64Var(&runSeed, "seed", 0, "random seed; 0 = unseeded, non-zero pins training to one worker")
	c.Flags().IntVar(&runTopWords, "top-words", 25, "words per topic in clouds and reports")
	c.Flags().IntVar(&runPanels, "panels", 4, "number of word cloud panels (max 10)")
	c.Flags().IntVar(&runWorkers, "workers", 0, "LDA worker goroutines (default: number of CPUs)")
	c.Flags().StringVar(&runTextColumn, "text-column", "text", "header name of the text column")
	c.Flags().StringVar(&runDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | 'pipe' (by extension if omitted)")
	c.Flags().StringVar(&runSheet, "sheet", "", "XLSX: worksheet name (default: first sheet)")
	c.Flags().IntVar(&runMaxRows, "max-rows", 0, "maximum records to read (0 = unlimited)")
	c.Flags().BoolVar(&runQuiet, "quiet", false, "suppress progress and non-essential output")
}

func init() {
	rootCmd.AddCommand(runCmd)
	addModelFlags(runCmd)
	runCmd.Flags().StringVar(&runCategory, "category", "", "category name (default: file base name)")
	runCmd.Flags().StringVarP(&runOutputPath, "output", "o", "", "HTML output path (default: <output_dir>/<category>.html)")
	runCmd.Flags().StringVar(&runReportPath, "report", "", "write a run report (.md, .yaml or .json)")
	runCmd.Flags().StringVar(&runServeAddr, "serve", "", "serve the page on this address until interrupted, e.g. 127.0.0.1:8080")
}
