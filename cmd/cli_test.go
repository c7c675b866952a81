package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const categoryCSV = `index,text,score,date,link
0,"The stock market closed higher today as investors bought bank shares.",0.4,2021-03-01,https://reddit.com/r/a
1,"Investors worry that the stock market will fall when interest rates rise.",-0.2,2021-03-02,
2,"Bank shares and the wider market rallied after the interest rate decision @trader https://t.co/x",0.3,2021-03-03,
3,"We spent a sunny weekend at the beach swimming in the warm ocean water.",0.8,2021-03-04,
4,"The beach was crowded with families enjoying the sunny summer weather.",0.6,2021-03-05,
5,"Summer holiday at the ocean, swimming and relaxing on the warm sand.",0.9,2021-03-06,
6,"The hospital asked doctors and nurses to work extra shifts this winter.",-0.1,2021-03-07,
7,"Nurses at the hospital say the doctors need more help with their patients.",-0.3,2021-03-08,
`

// resetFlags restores every flag to its default so invocations do not leak state.
func resetFlags(c *cobra.Command) {
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(fl *pflag.Flag) {
			_ = fl.Value.Set(fl.DefValue)
			fl.Changed = false
		})
	}
	reset(c.Flags())
	reset(c.PersistentFlags())
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCLI is a helper to execute the root command with args, returning stdout.
func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func execCmd(args ...string) (string, error) {
	var buf bytes.Buffer
	err := execCmdContext(context.Background(), &buf, args...)
	return buf.String(), err
}

// execCmdContext runs the root command under ctx. Subcommands keep the context
// of their first execution, so every command gets ctx explicitly.
func execCmdContext(ctx context.Context, out io.Writer, args ...string) error {
	resetFlags(rootCmd)
	setContext(rootCmd, ctx)
	cfg = nil
	rootCmd.SetOut(out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func setContext(c *cobra.Command, ctx context.Context) {
	c.SetContext(ctx)
	for _, sub := range c.Commands() {
		setContext(sub, ctx)
	}
}

// syncBuffer is a bytes.Buffer safe to read while a command writes to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeCategory(t *testing.T, dir, name string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(categoryCSV), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return p
}

var smallModel = []string{"--topics", "2", "--panels", "2", "--passes", "5", "--seed", "1", "--top-words", "5"}

func TestCLI_RunWritesPageAndReport(t *testing.T) {
	home := setupHome(t)
	in := writeCategory(t, home, "positive.csv")
	page := filepath.Join(home, "out", "positive.html")
	rep := filepath.Join(home, "out", "positive.json")

	args := append([]string{"run", in, "-o", page, "--report", rep}, smallModel...)
	out := runCLI(t, args...)
	if !strings.Contains(out, "✓ Wrote word clouds to "+page) {
		t.Fatalf("missing confirmation in output: %s", out)
	}
	if !strings.Contains(out, "[CORPUS SUMMARY]") {
		t.Fatalf("missing summary in output: %s", out)
	}

	html, err := os.ReadFile(page)
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if !strings.Contains(string(html), "Topics: positive") {
		t.Fatalf("page missing title")
	}

	b, err := os.ReadFile(rep)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var decoded struct {
		Category string `json:"category"`
		Topics   []struct {
			Words []struct {
				Word string `json:"word"`
			} `json:"words"`
		} `json:"topics"`
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if decoded.Category != "positive" {
		t.Fatalf("category = %q", decoded.Category)
	}
	if len(decoded.Topics) != 2 {
		t.Fatalf("expected 2 topics, got %d", len(decoded.Topics))
	}
	for i, tp := range decoded.Topics {
		if len(tp.Words) != 5 {
			t.Fatalf("topic %d has %d words, want 5", i, len(tp.Words))
		}
	}
}

func TestCLI_RunQuiet(t *testing.T) {
	home := setupHome(t)
	in := writeCategory(t, home, "neutral.csv")
	args := append([]string{"run", in, "-o", filepath.Join(home, "n.html"), "--quiet"}, smallModel...)
	if out := runCLI(t, args...); out != "" {
		t.Fatalf("expected no output with --quiet, got %q", out)
	}
}

func TestCLI_RunServePrintsBoundAddress(t *testing.T) {
	home := setupHome(t)
	in := writeCategory(t, home, "calm.csv")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	done := make(chan error, 1)
	args := append([]string{"run", in, "-o", filepath.Join(home, "calm.html"), "--serve", "127.0.0.1:0"}, smallModel...)
	go func() {
		done <- execCmdContext(ctx, &out, args...)
	}()

	serving := regexp.MustCompile(`Serving on http://(127\.0\.0\.1:\d+) `)
	deadline := time.Now().Add(30 * time.Second)
	var addr string
	for addr == "" {
		if m := serving.FindStringSubmatch(out.String()); m != nil {
			addr = m[1]
			break
		}
		select {
		case err := <-done:
			t.Fatalf("run exited before serving: %v (output %q)", err, out.String())
		default:
		}
		if time.Now().After(deadline) {
			t.Fatalf("no serving line in output: %q", out.String())
		}
		time.Sleep(20 * time.Millisecond)
	}
	if strings.HasSuffix(addr, ":0") {
		t.Fatalf("printed the requested address instead of the bound one: %s", addr)
	}

	resp, err := http.Get("http://" + addr + "/")
	if err != nil {
		t.Fatalf("get page: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "Topics: calm") {
		t.Fatalf("unexpected page: %d %s", resp.StatusCode, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("serve did not stop after cancel")
	}
}

func TestCLI_RunRejectsBadPanels(t *testing.T) {
	home := setupHome(t)
	in := writeCategory(t, home, "negative.csv")
	if _, err := execCmd("run", in, "--topics", "12", "--panels", "11"); err == nil {
		t.Fatalf("expected error for 11 panels")
	}
	if _, err := execCmd("run", in, "--topics", "2", "--panels", "3"); err == nil {
		t.Fatalf("expected error for more panels than topics")
	}
	if _, err := execCmd("run", in, "--delimiter", "#"); err == nil {
		t.Fatalf("expected error for unsupported delimiter")
	}
}

func TestCLI_BatchAvoidsOverwrite(t *testing.T) {
	home := setupHome(t)
	writeCategory(t, filepath.Join(home, "d1"), "neutral.csv")
	writeCategory(t, filepath.Join(home, "d2"), "neutral.csv")
	outDir := filepath.Join(home, "pages")

	args := append([]string{"batch", filepath.Join(home, "d*", "neutral.csv"), "--out-dir", outDir, "--report-format", "md"}, smallModel...)
	out := runCLI(t, args...)
	if !strings.Contains(out, "[1/2] Processing neutral.csv...") || !strings.Contains(out, "[2/2] Processing neutral.csv...") {
		t.Fatalf("missing progress lines: %s", out)
	}
	for _, name := range []string{"neutral.html", "neutral__2.html", "neutral.report.md", "neutral__2.report.md"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	body, err := os.ReadFile(filepath.Join(outDir, "neutral.report.md"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.HasPrefix(string(body), "[RUN]") {
		t.Fatalf("unexpected report: %s", body)
	}
}

func TestCLI_BatchNoMatches(t *testing.T) {
	home := setupHome(t)
	if _, err := execCmd("batch", filepath.Join(home, "*.csv")); err == nil {
		t.Fatalf("expected error when nothing matches")
	}
}

func TestCLI_CleanAndAnalyze(t *testing.T) {
	home := setupHome(t)
	in := writeCategory(t, home, "joy.csv")

	out := runCLI(t, "clean", in, "--limit", "3")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "#0:") {
		t.Fatalf("unexpected clean output: %q", out)
	}
	if strings.Contains(out, "@trader") || strings.Contains(out, "https") {
		t.Fatalf("clean left usernames or links: %q", out)
	}

	out = runCLI(t, "analyze", in, "--top-terms", "5")
	for _, section := range []string{"[CORPUS SUMMARY]", "Records: 8", "[VOCABULARY]", "Top terms:"} {
		if !strings.Contains(out, section) {
			t.Fatalf("analyze output missing %q: %s", section, out)
		}
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := setupHome(t)
	runCLI(t, "config", "set", "topics", "6")
	if _, err := os.Stat(filepath.Join(home, ".topicloom", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	out := runCLI(t, "config", "show")
	if !strings.Contains(out, "topics: 6\n") || !strings.Contains(out, "panels: 4\n") {
		t.Fatalf("unexpected config show: %s", out)
	}
	if _, err := execCmd("config", "set", "panels", "12"); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := execCmd("config", "set", "bogus", "1"); err == nil {
		t.Fatalf("expected unknown key error")
	}
}
