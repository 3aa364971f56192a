package crawler

import (
	"net/http"
	"time"
)

// Strategy selects how page bytes are obtained for a crawl.
type Strategy string

// Fetch strategies supported by the fetcher package.
const (
	StrategyDirect   Strategy = "direct"
	StrategyRendered Strategy = "rendered"
)

// Valid reports whether the strategy is a known value.
func (s Strategy) Valid() bool {
	return s == StrategyDirect || s == StrategyRendered
}

// Outcome is the terminal state of one frontier entry.
type Outcome string

// Entry outcomes recorded by workers.
const (
	OutcomeSaved         Outcome = "saved"
	OutcomeFetchFailed   Outcome = "fetch_failed"
	OutcomeExtractFailed Outcome = "extract_failed"
	OutcomePersistFailed Outcome = "persist_failed"
	OutcomeSkipped       Outcome = "skipped"
)

// FrontierEntry is a unit of pending work. URL is already normalized.
type FrontierEntry struct {
	URL   string
	Depth int
}

// FetchRequest captures everything a strategy needs to fetch a URL.
type FetchRequest struct {
	URL     string
	Method  string
	Body    []byte
	Headers http.Header
}

// FetchResponse is returned by a single strategy attempt.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	Rendered   bool
}

// FetchResult is the outcome of a fetch after retries.
// StatusOK is false when every attempt failed; Body is empty in that case.
type FetchResult struct {
	RequestedURL string
	FinalURL     string
	StatusOK     bool
	StatusCode   int
	Body         string
	Strategy     Strategy
	Attempts     int
	Duration     time.Duration
	Err          error
}

// Document is the readable view of one page.
type Document struct {
	URL     string
	HostURL string
	Title   *string
	Content string
}

// CodeContext locates a code block on its page.
type CodeContext struct {
	Heading string `json:"heading,omitempty"`
	Section string `json:"section,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// CodeBlock is one extracted code snippet.
type CodeBlock struct {
	Language  string
	Name      string
	Content   string
	Context   CodeContext
	Hash      uint64
	SizeBytes int
	Tag       string
}

// Extraction bundles everything pulled out of one fetched page.
type Extraction struct {
	Document   Document
	CodeBlocks []CodeBlock
	Links      []string
	BaseURL    string
}

// Stats summarizes a crawl run.
type Stats struct {
	RunID           string        `json:"run_id"`
	Seed            string        `json:"seed"`
	Processed       int64         `json:"processed"`
	Failed          int64         `json:"failed"`
	Skipped         int64         `json:"skipped"`
	Queued          int64         `json:"queued"`
	CodeBlocks      int64         `json:"code_blocks"`
	InFlight        int64         `json:"in_flight"`
	Elapsed         time.Duration `json:"elapsed"`
	DeadlineReached bool          `json:"deadline_reached"`
	Done            bool          `json:"done"`
}
