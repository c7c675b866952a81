package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/topicloom/internal/corpus"
	"github.com/KaramelBytes/topicloom/internal/pipeline"
	"github.com/KaramelBytes/topicloom/internal/records"
	"github.com/KaramelBytes/topicloom/internal/textclean"
	"github.com/KaramelBytes/topicloom/internal/utils"
	"github.com/spf13/cobra"
)

var (
	anaOutputPath string
	anaDelimiter  string
	anaSheet      string
	anaMaxRows    int
	anaTopTerms   int
	anaNoClean    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Summarize a category file and its cleaned vocabulary without fitting topics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		g, err := ensureConfig()
		if err != nil {
			return err
		}
		opt := records.DefaultOptions()
		opt.TextColumn = g.TextColumn
		opt.MaxRows = g.MaxRows
		if cmd.Flags().Changed("max-rows") {
			opt.MaxRows = anaMaxRows
		}
		opt.Sheet = anaSheet
		if opt.Delimiter, err = parseDelimiter(anaDelimiter); err != nil {
			return err
		}
		recs, err := records.Load(path, opt)
		if err != nil {
			return err
		}

		var b strings.Builder
		b.WriteString(records.Summarize(utils.CategoryFromPath(path), recs).Markdown())
		if !anaNoClean {
			pc, err := pipeline.FromGlobal(g)
			if err != nil {
				return err
			}
			n, err := textclean.NewEnglishNormalizer(pc.Stopwords, pc.MinLanguageConfidence)
			if err != nil {
				return err
			}
			docs := n.CleanAll(records.Texts(recs))
			b.WriteString(vocabularyMarkdown(docs, anaTopTerms))
		}
		md := b.String()

		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	},
}

// vocabularyMarkdown reports the size of the cleaned vocabulary and its most frequent terms.
func vocabularyMarkdown(docs [][]string, top int) string {
	d := corpus.NewDictionary(docs)
	bows := d.Encode(docs)
	tokens := 0
	for _, doc := range docs {
		tokens += len(doc)
	}

	var b strings.Builder
	b.WriteString("\n[VOCABULARY]\n")
	b.WriteString(fmt.Sprintf("Documents: %d (empty after cleaning %d)\n", len(docs), len(docs)-corpus.NonEmpty(bows)))
	b.WriteString(fmt.Sprintf("Tokens: %d, distinct terms: %d\n", tokens, d.Len()))

	ids := make([]int, d.Len())
	for i := range ids {
		ids[i] = i
	}
	sort.Slice(ids, func(i, j int) bool {
		if d.Count(ids[i]) != d.Count(ids[j]) {
			return d.Count(ids[i]) > d.Count(ids[j])
		}
		return d.Token(ids[i]) < d.Token(ids[j])
	})
	if top > 0 && len(ids) > top {
		ids = ids[:top]
	}
	if len(ids) > 0 {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = fmt.Sprintf("%s(%d)", d.Token(id), d.Count(id))
		}
		b.WriteString("Top terms: " + strings.Join(parts, ", ") + "\n")
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the analysis (Markdown)")
	analyzeCmd.Flags().StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | 'pipe'")
	analyzeCmd.Flags().StringVar(&anaSheet, "sheet", "", "XLSX: worksheet name (default: first sheet)")
	analyzeCmd.Flags().IntVar(&anaMaxRows, "max-rows", 0, "maximum records to read (0 = unlimited)")
	analyzeCmd.Flags().IntVar(&anaTopTerms, "top-terms", 20, "most frequent cleaned terms to list")
	analyzeCmd.Flags().BoolVar(&anaNoClean, "no-clean", false, "skip cleaning and report only the raw record summary")
}
