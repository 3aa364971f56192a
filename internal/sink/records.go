package sink

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/JakeFAU/codecrawler/internal/crawler"
)

// maxRecordBytes bounds one persisted line; HTML records carry whole pages.
const maxRecordBytes = 64 << 20

var errMissingURL = errors.New("record has no url")

// ErrRecordTooLong marks a persisted line larger than the record size limit.
var ErrRecordTooLong = errors.New("record exceeds size limit")

// HTMLRecord is one line of <domain>_html.jsonl.
type HTMLRecord struct {
	URL     string `json:"url"`
	Text    string `json:"text"`
	Status  bool   `json:"status"`
	HostURL string `json:"host_url"`
}

// TextRecord is one line of <domain>_text.jsonl.
type TextRecord struct {
	URL     string  `json:"url"`
	HostURL string  `json:"host_url"`
	Title   *string `json:"title"`
	Content string  `json:"content"`
}

// CodeRecord is one line of <domain>_code_metadata.jsonl.
type CodeRecord struct {
	URL      string `json:"url"`
	File     string `json:"file"`
	Name     string `json:"name"`
	Heading  string `json:"heading"`
	Language string `json:"language"`
}

// ReadHTMLRecords streams HTML records from r to fn. Lines that fail to
// decode or exceed the record size limit are reported to onMalformed and
// skipped; blank lines are ignored. An error from fn stops the scan and is
// returned.
func ReadHTMLRecords(r io.Reader, fn func(HTMLRecord) error, onMalformed func(*crawler.MalformedRecordError)) error {
	return readHTMLRecords(r, maxRecordBytes, fn, onMalformed)
}

func readHTMLRecords(r io.Reader, limit int, fn func(HTMLRecord) error, onMalformed func(*crawler.MalformedRecordError)) error {
	reader := bufio.NewReaderSize(r, min(limit, 64*1024))
	report := func(line int, err error) {
		if onMalformed != nil {
			onMalformed(&crawler.MalformedRecordError{Line: line, Err: err})
		}
	}

	line := 0
	for {
		raw, tooLong, readErr := readRecordLine(reader, limit)
		eof := errors.Is(readErr, io.EOF)
		if readErr != nil && !eof {
			return fmt.Errorf("read html records: %w", readErr)
		}
		if eof && len(raw) == 0 && !tooLong {
			return nil
		}
		line++

		switch {
		case tooLong:
			report(line, ErrRecordTooLong)
		case len(bytes.TrimSpace(raw)) == 0:
		default:
			var record HTMLRecord
			err := json.Unmarshal(bytes.TrimSpace(raw), &record)
			if err == nil && record.URL == "" {
				err = errMissingURL
			}
			if err != nil {
				report(line, err)
				break
			}
			if err := fn(record); err != nil {
				return err
			}
		}
		if eof {
			return nil
		}
	}
}

// readRecordLine returns the next line including its terminator. A line
// longer than limit is consumed up to its end and returned as tooLong with
// no content.
func readRecordLine(r *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(bytes.TrimRight(chunk, "\r\n")) > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, tooLong, err
	}
}
