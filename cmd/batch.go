package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/KaramelBytes/topicloom/internal/pipeline"
	"github.com/KaramelBytes/topicloom/internal/report"
	"github.com/KaramelBytes/topicloom/internal/utils"
	"github.com/spf13/cobra"
)

var (
	batchOutDir       string
	batchReportFormat string
	batchKeepGoing    bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <files...>",
	Short: "Fit topics for several category files, one page per category",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		switch batchReportFormat {
		case "", "md", "yaml", "json":
		default:
			return fmt.Errorf("unsupported --report-format: %s (use md|yaml|json)", batchReportFormat)
		}

		g, err := ensureConfig()
		if err != nil {
			return err
		}
		pc, err := runConfig(cmd, g)
		if err != nil {
			return err
		}
		outDir := batchOutDir
		if outDir == "" {
			outDir = g.OutputDir
		}
		if err := utils.EnsureDir(outDir); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		log := newLogger(cmd)
		out := cmd.OutOrStdout()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		total := len(files)
		failed := 0
		for i, path := range files {
			if !runQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			res, err := pipeline.Run(ctx, pc, path, log)
			if err != nil {
				if !batchKeepGoing || ctx.Err() != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Skipping %s: %v\n", filepath.Base(path), err)
				continue
			}

			htmlPath := filepath.Join(outDir, res.Category+".html")
			if p := utils.UniquePath(htmlPath); p != htmlPath {
				if !runQuiet {
					fmt.Fprintf(out, "⚠ Detected existing page, writing to %s to avoid overwrite.\n", filepath.Base(p))
				}
				htmlPath = p
			}
			if err := utils.SafeWriteFile(htmlPath, res.Page); err != nil {
				return fmt.Errorf("write page: %w", err)
			}
			if !runQuiet {
				fmt.Fprintf(out, "✓ Wrote word clouds to %s\n", htmlPath)
			}

			if batchReportFormat != "" {
				stem := htmlPath[:len(htmlPath)-len(filepath.Ext(htmlPath))]
				rp := stem + ".report." + batchReportFormat
				if err := report.New(res, pc).Save(rp); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				if !runQuiet {
					fmt.Fprintf(out, "✓ Wrote report to %s\n", rp)
				}
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, total)
		}
		return nil
	},
}

// expandInputs resolves globs and literal paths into a sorted, de-duplicated list.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addModelFlags(batchCmd)
	batchCmd.Flags().StringVar(&batchOutDir, "out-dir", "", "directory for the per-category pages (default: output_dir from config)")
	batchCmd.Flags().StringVar(&batchReportFormat, "report-format", "", "also write a report per category: md|yaml|json")
	batchCmd.Flags().BoolVar(&batchKeepGoing, "keep-going", false, "skip files that fail instead of stopping")
}
