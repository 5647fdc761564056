package extract

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// Recipe site operators tend to block default Go user agents, so fetches
// identify as a desktop browser.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Fetcher downloads pages for the extraction pipeline.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher creates a Fetcher with a bounded request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the page at url and returns the raw body. Non-2xx
// responses and transport failures are reported as KindNetworkError.
func (f *Fetcher) Fetch(url string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return "", errKind(KindNetworkError, "fetch", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", errKind(KindNetworkError, "fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errKind(KindNetworkError, "fetch",
			fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errKind(KindNetworkError, "fetch", err)
	}
	return string(body), nil
}
