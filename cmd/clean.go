package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/topicloom/internal/pipeline"
	"github.com/KaramelBytes/topicloom/internal/records"
	"github.com/KaramelBytes/topicloom/internal/textclean"
	"github.com/spf13/cobra"
)

var (
	cleanLimit      int
	cleanTextColumn string
	cleanDelimiter  string
	cleanSheet      string
	cleanSkipEmpty  bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean <file>",
	Short: "Print the cleaned tokens of each record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := ensureConfig()
		if err != nil {
			return err
		}
		opt := records.DefaultOptions()
		opt.TextColumn = g.TextColumn
		if cmd.Flags().Changed("text-column") {
			opt.TextColumn = cleanTextColumn
		}
		opt.MaxRows = cleanLimit
		opt.Sheet = cleanSheet
		if opt.Delimiter, err = parseDelimiter(cleanDelimiter); err != nil {
			return err
		}
		recs, err := records.Load(args[0], opt)
		if err != nil {
			return err
		}

		pc, err := pipeline.FromGlobal(g)
		if err != nil {
			return err
		}
		n, err := textclean.NewEnglishNormalizer(pc.Stopwords, pc.MinLanguageConfidence)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, r := range recs {
			toks := n.Clean(r.Text)
			if cleanSkipEmpty && len(toks) == 0 {
				continue
			}
			fmt.Fprintf(out, "#%d: %s\n", r.Index, strings.Join(toks, " "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().IntVar(&cleanLimit, "limit", 20, "records to print (0 = all)")
	cleanCmd.Flags().StringVar(&cleanTextColumn, "text-column", "text", "header name of the text column")
	cleanCmd.Flags().StringVar(&cleanDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | 'pipe'")
	cleanCmd.Flags().StringVar(&cleanSheet, "sheet", "", "XLSX: worksheet name (default: first sheet)")
	cleanCmd.Flags().BoolVar(&cleanSkipEmpty, "skip-empty", false, "omit records that clean down to nothing")
}
