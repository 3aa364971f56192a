// Package extract turns fetched markup into a readable document, classified
// code blocks and outbound links.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/codecrawler/internal/crawler"
	"github.com/JakeFAU/codecrawler/internal/dedup"
	"github.com/JakeFAU/codecrawler/internal/hash/xxhash"
)

// DefaultCodeMarkers are the class substrings that mark a node as code.
var DefaultCodeMarkers = []string{"code", "highlight", "syntax", "language-", "hljs", "prettyprint", "codemirror"}

// Config tunes extraction.
type Config struct {
	// MinCodeLength is the shortest trimmed code text kept, in characters.
	MinCodeLength int
	// CodeMarkers are matched case-insensitively against class attributes.
	CodeMarkers []string
	// FingerprintPrefix bounds the bytes hashed per block; <= 0 hashes all.
	FingerprintPrefix int
	// MainContent limits document text to the largest content container.
	MainContent bool
	// FenceCodeInText renders pre blocks as fenced code inside document text.
	FenceCodeInText bool
}

// Extractor implements crawler.Extractor. It is safe for concurrent use;
// code fingerprints are shared through the run's hash set.
type Extractor struct {
	cfg     Config
	markers []string
	hashes  *dedup.Set[uint64]
	hasher  *xxhash.Hasher
}

// New builds an Extractor that records code fingerprints in hashes.
func New(cfg Config, hashes *dedup.Set[uint64]) *Extractor {
	markers := cfg.CodeMarkers
	if len(markers) == 0 {
		markers = DefaultCodeMarkers
	}
	lowered := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			lowered = append(lowered, m)
		}
	}
	if hashes == nil {
		hashes = dedup.New[uint64]()
	}
	return &Extractor{
		cfg:     cfg,
		markers: lowered,
		hashes:  hashes,
		hasher:  xxhash.New(cfg.FingerprintPrefix),
	}
}

// Extract parses the fetched body. Code blocks whose fingerprint was already
// recorded during the run are left out.
func (e *Extractor) Extract(result crawler.FetchResult) (crawler.Extraction, error) {
	if strings.TrimSpace(result.Body) == "" {
		return crawler.Extraction{}, crawler.ErrEmptyBody
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.Body))
	if err != nil {
		return crawler.Extraction{}, fmt.Errorf("parse html: %w", err)
	}

	pageURL := result.FinalURL
	if pageURL == "" {
		pageURL = result.RequestedURL
	}
	hostURL, err := crawler.HostURL(result.RequestedURL)
	if err != nil {
		hostURL = ""
	}
	root := doc.Get(0)

	return crawler.Extraction{
		Document: crawler.Document{
			URL:     result.RequestedURL,
			HostURL: hostURL,
			Title:   title(doc),
			Content: e.content(doc, root),
		},
		CodeBlocks: e.codeBlocks(doc, root),
		Links:      links(doc),
		BaseURL:    baseURL(doc, pageURL),
	}, nil
}

func (e *Extractor) codeBlocks(doc *goquery.Document, root *html.Node) []crawler.CodeBlock {
	idx := indexPage(root)
	var blocks []crawler.CodeBlock
	doc.Find("pre, code").Each(func(_ int, s *goquery.Selection) {
		if !e.hasMarker(s.AttrOr("class", "")) {
			return
		}
		if block, ok := e.codeBlock(s.Get(0), idx); ok {
			blocks = append(blocks, block)
		}
	})
	return blocks
}

func (e *Extractor) content(doc *goquery.Document, root *html.Node) string {
	var fences map[*html.Node]string
	if e.cfg.FenceCodeInText {
		fences = make(map[*html.Node]string)
		doc.Find("pre").Each(func(_ int, s *goquery.Selection) {
			n := s.Get(0)
			code := formatCode(n)
			if strings.TrimSpace(code) == "" {
				return
			}
			fences[n] = fence(DetectLanguage(classSources(n), code), code)
		})
	}
	if e.cfg.MainContent {
		if container := mainContainer(doc); container != nil {
			if text := visibleText(container, fences); text != "" {
				return text
			}
		}
	}
	return visibleText(root, fences)
}

func title(doc *goquery.Document) *string {
	sel := doc.Find("title").First()
	if sel.Length() == 0 {
		return nil
	}
	t := strings.TrimSpace(sel.Text())
	return &t
}

// links returns raw href values in document order. Filtering and resolution
// are left to the frontier.
func links(doc *goquery.Document) []string {
	var out []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href := strings.TrimSpace(s.AttrOr("href", "")); href != "" {
			out = append(out, href)
		}
	})
	return out
}

// baseURL honors a <base href> element, resolved against the page URL.
func baseURL(doc *goquery.Document, pageURL string) string {
	href, ok := doc.Find("base[href]").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return pageURL
	}
	resolved, err := crawler.ResolveURL(pageURL, href)
	if err != nil {
		return pageURL
	}
	return resolved
}
