package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ErrAllMirrorsFailed is returned when every mirror attempt failed at the
// transport level (timeout, connection error, or 5xx on all mirrors)
var ErrAllMirrorsFailed = errors.New("all mirrors failed to return content")

// FetchResult holds the raw page returned by the first usable mirror
type FetchResult struct {
	MirrorURL  string
	StatusCode int
	Body       string
	Blocked    bool // mirror answered with a block wall page
}

// MirrorFetcher retrieves a product page from an ordered list of mirrors.
// Mirrors are tried in priority order; the first response below server-error
// wins. The source is known to serve soft-error pages with status 200/4xx
// that still embed partial data, so anything below 500 counts as content.
type MirrorFetcher struct {
	client     *http.Client
	mirrors    []string // URL templates, %s is the product id
	timeout    time.Duration
	detector   *BlockWallDetector
	userAgents []string
}

// NewMirrorFetcher creates a fetcher over the given mirror URL templates
func NewMirrorFetcher(mirrors []string, timeout time.Duration) *MirrorFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MirrorFetcher{
		// Timeout is applied per attempt via context, not on the client,
		// so one slow mirror cannot eat the budget of the next
		client:   &http.Client{},
		mirrors:  mirrors,
		timeout:  timeout,
		detector: NewBlockWallDetector(),
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		},
	}
}

// Fetch tries each mirror in order and returns the first usable result.
// A mirror that serves a block wall page is skipped in favor of the next
// mirror; if every mirror is blocked, the last blocked body is returned
// anyway so the extractors can still attempt a partial read.
func (f *MirrorFetcher) Fetch(ctx context.Context, productID string) (*FetchResult, error) {
	var lastBlocked *FetchResult

	for i, template := range f.mirrors {
		mirrorURL := fmt.Sprintf(template, productID)

		result, err := f.fetchOne(ctx, mirrorURL, i)
		if err != nil {
			log.Printf("Mirror %d/%d failed for %s: %v", i+1, len(f.mirrors), productID, err)
			continue
		}

		if blocked, reason, score := f.detector.Detect(result.Body); blocked {
			log.Printf("Mirror %s served a block page (score %.2f): %s", mirrorURL, score, reason)
			result.Blocked = true
			lastBlocked = result
			continue
		}

		return result, nil
	}

	if lastBlocked != nil {
		return lastBlocked, nil
	}

	return nil, ErrAllMirrorsFailed
}

// fetchOne performs a single mirror attempt with its own timeout
func (f *MirrorFetcher) fetchOne(ctx context.Context, mirrorURL string, attempt int) (*FetchResult, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, mirrorURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %v", err)
	}

	req.Header.Set("User-Agent", f.userAgents[attempt%len(f.userAgents)])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	// 5xx means the mirror itself is broken, move on
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("mirror returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %v", err)
	}

	return &FetchResult{
		MirrorURL:  mirrorURL,
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}, nil
}
