package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/TobiSchelling/ClicheCounter/internal/database"
)

// minTranscriptLength is the shortest extracted text accepted as a
// transcript.
const minTranscriptLength = 100

// maxBodySize caps the response body read per transcript.
const maxBodySize = 10 << 20

// Result holds the results of a transcript fetch run.
type Result struct {
	Fetched int
	Failed  int
}

// TranscriptFetcher fetches transcript text for stubs via HTTP. Plain-text
// responses are taken as is; HTML pages go through readability extraction.
type TranscriptFetcher struct {
	db     *database.DB
	client *http.Client
}

// NewTranscriptFetcher creates a new transcript fetcher.
func NewTranscriptFetcher(db *database.DB, timeout time.Duration) *TranscriptFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &TranscriptFetcher{
		db: db,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FetchMissingText fetches text for transcripts that have none. A host
// that answers with an HTTP error is skipped for the rest of the run.
func (f *TranscriptFetcher) FetchMissingText(ctx context.Context) *Result {
	result := &Result{}
	transcripts, err := f.db.GetTranscriptsNeedingFetch()
	if err != nil {
		log.Printf("Error getting transcripts needing fetch: %v", err)
		return result
	}
	if len(transcripts) == 0 {
		log.Println("No transcripts need fetching")
		return result
	}

	blocked := make(map[string]bool)
	for _, tr := range transcripts {
		if ctx.Err() != nil {
			break
		}
		host := hostOf(tr.URL)
		if blocked[host] {
			f.giveUp(tr.ID, result)
			continue
		}

		text, err := f.fetchText(ctx, tr.URL)
		var herr *httpError
		switch {
		case errors.As(err, &herr):
			f.giveUp(tr.ID, result)
			if host != "" {
				blocked[host] = true
			}
			log.Printf("HTTP %d for %s: skipping remaining transcripts from %s", herr.code, tr.URL, host)
		case err != nil || text == "":
			f.giveUp(tr.ID, result)
			log.Printf("No extractable transcript from: %s", tr.URL)
		default:
			if err := f.db.UpdateTranscriptText(tr.ID, text); err != nil {
				log.Printf("Failed to store text for %s: %v", tr.URL, err)
				result.Failed++
				continue
			}
			result.Fetched++
			log.Printf("Fetched transcript: %s", tr.URL)
		}
	}

	log.Printf("Transcript fetch complete: %d fetched, %d failed", result.Fetched, result.Failed)
	return result
}

func (f *TranscriptFetcher) giveUp(id int64, result *Result) {
	if err := f.db.MarkFetchAttempted(id); err != nil {
		log.Printf("Failed to mark transcript %d: %v", id, err)
	}
	result.Failed++
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// fetchText downloads pageURL and extracts its transcript text. Only
// HTTP error statuses are returned as *httpError; other failures return
// a plain error.
func (f *TranscriptFetcher) fetchText(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "ClicheCounter/1.0 (transcript analysis)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", err
	}
	return extractText(resp.Header.Get("Content-Type"), body, pageURL)
}

// extractText returns the transcript text of a response body, or "" when
// it is too short to be a transcript.
func extractText(contentType string, body []byte, pageURL string) (string, error) {
	var text string
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "text/plain" {
		text = strings.TrimSpace(string(body))
	} else {
		parsedURL, _ := url.Parse(pageURL)
		article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
		if err != nil {
			return "", fmt.Errorf("extracting %s: %w", pageURL, err)
		}
		text = strings.TrimSpace(article.TextContent)
	}
	if len(text) <= minTranscriptLength {
		return "", nil
	}
	return text, nil
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.code, http.StatusText(e.code))
}
