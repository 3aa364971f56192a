package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/codecrawler/internal/sink"
)

// The root command binds --config to a package variable, so these tests
// run sequentially.

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "codecrawler "))
}

func TestCrawlCommandRequiresSeed(t *testing.T) {
	_, err := execute(t, "crawl", "--output-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed")
}

func TestCrawlCommandRejectsInvalidConfig(t *testing.T) {
	_, err := execute(t, "crawl", "https://example.com/", "--strategy", "teleport", "--output-dir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crawler.strategy")
}

func TestCrawlCommandCrawlsSite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/":
			_, _ = w.Write([]byte(`<html><body><a href="/guide">Guide</a></body></html>`))
		case "/guide":
			_, _ = w.Write([]byte(`<html><body><h2>Install</h2>
<pre class="highlight">func main() {
	fmt.Println("hi")
}</pre></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	out, err := execute(t, "crawl", srv.URL+"/",
		"--output-dir", dir,
		"--max-depth", "1",
		"--concurrency", "2",
		"--max-attempts", "1",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "processed 2 pages (0 failed, 0 skipped), 1 code blocks")

	domain := "127_0_0_1"
	for _, rel := range []string{sink.HTMLLogPath(domain), sink.TextLogPath(domain), sink.CodeLogPath(domain)} {
		info, err := os.Stat(filepath.Join(dir, rel))
		require.NoError(t, err, rel)
		assert.Positive(t, info.Size(), rel)
	}
}

func TestCrawlCommandKeepsSharedCodePerSeed(t *testing.T) {
	page := []byte(`<html><body><pre class="highlight">pip install requests --upgrade</pre></body></html>`)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write(page)
	})
	first := httptest.NewServer(handler)
	defer first.Close()
	second := httptest.NewServer(handler)
	defer second.Close()
	secondURL := strings.Replace(second.URL, "127.0.0.1", "localhost", 1)

	dir := t.TempDir()
	out, err := execute(t, "crawl", first.URL+"/", secondURL+"/",
		"--output-dir", dir,
		"--max-attempts", "1",
		"--site-delay", "0s",
	)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "processed 1 pages (0 failed, 0 skipped), 1 code blocks"), out)

	for _, domain := range []string{"127_0_0_1", "localhost"} {
		data, err := os.ReadFile(filepath.Join(dir, sink.CodeLogPath(domain)))
		require.NoError(t, err, domain)
		assert.Equal(t, 1, strings.Count(string(data), "\n"), domain)
	}
}

func TestExtractCommandReplaysHTMLLog(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "pages.jsonl")
	lines := strings.Join([]string{
		`{"url":"https://docs.example.com/guide","text":"<title>Guide</title><pre class=\"code\">SELECT id FROM users WHERE id = 1;</pre>","status":true,"host_url":"https://docs.example.com"}`,
		`{broken`,
		`{"url":"https://docs.example.com/missing","text":"","status":false,"host_url":"https://docs.example.com"}`,
	}, "\n")
	require.NoError(t, os.WriteFile(input, []byte(lines), 0o600))

	outDir := filepath.Join(dir, "out")
	out, err := execute(t, "extract", "--input", input, "--output-dir", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 records (1 skipped, 1 malformed, 0 failed), 1 code blocks")

	code, err := os.ReadFile(filepath.Join(outDir, sink.CodeLogPath("docs_example_com")))
	require.NoError(t, err)
	assert.Contains(t, string(code), `"language":"sql"`)
	_, err = os.Stat(filepath.Join(outDir, sink.HTMLLogPath("docs_example_com")))
	assert.True(t, os.IsNotExist(err), "replay must not write an html log")
}

func TestExtractCommandRequiresInput(t *testing.T) {
	_, err := execute(t, "extract")
	require.Error(t, err)
}
