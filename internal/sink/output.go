package sink

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/codecrawler/internal/crawler"
)

// DefaultHeading labels code records whose block had no heading nearby.
const DefaultHeading = "Code Example"

var unsafePathChars = regexp.MustCompile(`[^\w-]`)

// Output implements crawler.PageSink for one crawled domain. The HTML, text
// and code metadata logs are truncated when the Output is opened, and the
// domain's code artifacts are removed with them.
type Output struct {
	store  *Store
	domain string
	html   *JSONLWriter
	text   *JSONLWriter
	code   *JSONLWriter
	logger *zap.Logger
}

var _ crawler.PageSink = (*Output)(nil)

type outputOptions struct {
	skipHTML bool
	logger   *zap.Logger
}

// OutputOption customizes an Output.
type OutputOption func(*outputOptions)

// WithoutHTMLLog leaves the HTML log untouched; SavePage becomes a no-op.
// Re-extraction uses this so its input is not truncated.
func WithoutHTMLLog() OutputOption {
	return func(o *outputOptions) {
		o.skipHTML = true
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) OutputOption {
	return func(o *outputOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOutput opens the logs for the domain of seedURL beneath store.
func NewOutput(store *Store, seedURL string, opts ...OutputOption) (*Output, error) {
	options := outputOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&options)
	}
	domain := crawler.DomainSafe(seedURL)
	out := &Output{store: store, domain: domain, logger: options.logger.Named("sink")}

	open := func(rel string) (*JSONLWriter, error) {
		path, err := store.Path(rel)
		if err != nil {
			return nil, err
		}
		return OpenJSONL(path, true)
	}
	var err error
	if !options.skipHTML {
		if out.html, err = open(HTMLLogPath(domain)); err != nil {
			return nil, err
		}
	}
	if out.text, err = open(TextLogPath(domain)); err != nil {
		return nil, errors.Join(err, out.Close())
	}
	if err = store.RemoveAll(CodeDir(domain)); err != nil {
		return nil, errors.Join(err, out.Close())
	}
	if out.code, err = open(CodeLogPath(domain)); err != nil {
		return nil, errors.Join(err, out.Close())
	}
	return out, nil
}

// HTMLLogPath is the HTML log location relative to the store root.
func HTMLLogPath(domain string) string {
	return filepath.Join("html", domain+"_html.jsonl")
}

// TextLogPath is the text log location relative to the store root.
func TextLogPath(domain string) string {
	return filepath.Join("text", domain+"_text.jsonl")
}

// CodeLogPath is the code metadata log location relative to the store root.
func CodeLogPath(domain string) string {
	return filepath.Join("code", domain+"_code_metadata.jsonl")
}

// CodeDir is the directory holding the domain's code artifacts, relative
// to the store root.
func CodeDir(domain string) string {
	return filepath.Join("code", domain)
}

// Domain returns the filesystem-safe domain this Output writes for.
func (o *Output) Domain() string {
	return o.domain
}

// SavePage appends the HTML record. Failed fetches are recorded with
// status=false and no text.
func (o *Output) SavePage(ctx context.Context, result crawler.FetchResult) error {
	if o.html == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save page: %w", err)
	}
	record := HTMLRecord{
		URL:     result.RequestedURL,
		Text:    result.Body,
		Status:  result.StatusOK,
		HostURL: hostURL(result.RequestedURL),
	}
	if !result.StatusOK {
		record.Text = ""
	}
	return o.html.Append(record)
}

// SaveDocument appends the text record.
func (o *Output) SaveDocument(ctx context.Context, doc crawler.Document) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return o.text.Append(TextRecord{
		URL:     doc.URL,
		HostURL: doc.HostURL,
		Title:   doc.Title,
		Content: doc.Content,
	})
}

// SaveCodeBlock writes the block's Markdown artifact and appends its
// metadata record.
func (o *Output) SaveCodeBlock(ctx context.Context, pageURL string, block crawler.CodeBlock) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save code block: %w", err)
	}
	rel := filepath.Join(CodeDir(o.domain), safeToken(crawler.FirstPathSegment(pageURL), "main"), safeToken(block.Name, "snippet")+".md")
	file, err := o.store.CreateUnique(rel, Artifact(pageURL, block))
	if err != nil {
		return fmt.Errorf("save code artifact: %w", err)
	}
	heading := block.Context.Heading
	if heading == "" {
		heading = DefaultHeading
	}
	o.logger.Debug("code block saved",
		zap.String("url", pageURL),
		zap.String("file", file),
		zap.String("language", block.Language),
	)
	return o.code.Append(CodeRecord{
		URL:      pageURL,
		File:     file,
		Name:     block.Name,
		Heading:  heading,
		Language: block.Language,
	})
}

// Close closes every open log.
func (o *Output) Close() error {
	var errs []error
	for _, w := range []*JSONLWriter{o.html, o.text, o.code} {
		if w != nil {
			errs = append(errs, w.Close())
		}
	}
	return errors.Join(errs...)
}

// Artifact renders a code block as a standalone Markdown file.
func Artifact(pageURL string, block crawler.CodeBlock) []byte {
	var b strings.Builder
	b.WriteString(pageURL)
	b.WriteString("\n\n```")
	b.WriteString(block.Language)
	b.WriteByte('\n')
	b.WriteString(block.Content)
	if !strings.HasSuffix(block.Content, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString("```\n")
	return []byte(b.String())
}

func safeToken(s, fallback string) string {
	s = unsafePathChars.ReplaceAllString(s, "_")
	if strings.Trim(s, "_") == "" {
		return fallback
	}
	return s
}

func hostURL(rawURL string) string {
	host, err := crawler.HostURL(rawURL)
	if err != nil {
		return ""
	}
	return host
}
