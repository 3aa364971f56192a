package crawler

import (
	"context"
)

// Fetcher executes a single fetch attempt with one strategy.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// PageFetcher fetches a URL with retries and never fails outright.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) FetchResult
}

// Extractor turns a fetched page into a document, code blocks, and links.
type Extractor interface {
	Extract(result FetchResult) (Extraction, error)
}

// PageSink persists records produced by the crawl.
// Implementations must serialize concurrent writes.
type PageSink interface {
	SavePage(ctx context.Context, result FetchResult) error
	SaveDocument(ctx context.Context, doc Document) error
	SaveCodeBlock(ctx context.Context, pageURL string, block CodeBlock) error
}

// RobotsPolicy reports whether robots.txt permits fetching a URL.
type RobotsPolicy interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// Frontier admits discovered URLs and hands out pending entries.
type Frontier interface {
	Admit(base, href string, depth int) (string, bool)
	Take(ctx context.Context) (FrontierEntry, bool)
	Done(entry FrontierEntry)
}

// IDGenerator produces run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
