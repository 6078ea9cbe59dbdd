package knowledge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/traindoc-io/traindoc/pkg/models"
)

// maxResponseBytes caps how much of a response body is read before
// extraction, independent of the post-extraction content limit.
const maxResponseBytes = 20 << 20 // 20 MiB

// FetcherParams tune concurrent URL fetching.
type FetcherParams struct {
	// MaxConcurrent bounds in-flight fetches.
	MaxConcurrent int
	// PerURLTimeout is the total budget for one URL including body read.
	PerURLTimeout time.Duration
	// MaxContentChars truncates extracted content at a word boundary.
	MaxContentChars int
}

// Fetcher downloads knowledge URLs with bounded concurrency and a shared
// disk cache. Per-URL failures are recorded on the source, never returned
// as errors.
type Fetcher struct {
	client *http.Client
	cache  *Cache
	params FetcherParams
	logger *slog.Logger
}

// NewFetcher creates a fetcher. cache may be nil to disable caching; client
// may be nil to use a default client.
func NewFetcher(client *http.Client, cache *Cache, params FetcherParams, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if params.MaxConcurrent <= 0 {
		params.MaxConcurrent = 8
	}
	if params.PerURLTimeout <= 0 {
		params.PerURLTimeout = 30 * time.Second
	}
	return &Fetcher{client: client, cache: cache, params: params, logger: logger}
}

// FetchAll fetches every URL concurrently and returns one source per URL in
// input order. The only error returned is context cancellation.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) ([]models.KnowledgeSource, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	results := make([]models.KnowledgeSource, len(urls))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(f.params.MaxConcurrent)

	for i, url := range urls {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			results[i] = f.fetchOne(groupCtx, url)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// fetchOne resolves one URL through the cache or the network.
func (f *Fetcher) fetchOne(ctx context.Context, url string) models.KnowledgeSource {
	if cached, ok := f.cache.Get(url); ok {
		f.logger.Debug("Knowledge cache hit", "url", url)
		return *cached
	}

	src := f.download(ctx, url)
	if !src.Failed() {
		f.cache.Put(&src)
	} else {
		f.logger.Warn("Knowledge fetch failed", "url", url, "error", src.Error)
	}
	return src
}

func (f *Fetcher) download(ctx context.Context, url string) models.KnowledgeSource {
	src := models.KnowledgeSource{URL: url, FetchedAt: time.Now().UTC()}

	fetchCtx, cancel := context.WithTimeout(ctx, f.params.PerURLTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		src.Error = fmt.Sprintf("invalid URL: %v", err)
		return src
	}
	req.Header.Set("User-Agent", "traindoc/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		src.Error = fmt.Sprintf("request failed: %v", err)
		return src
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		src.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		return src
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		src.Error = fmt.Sprintf("failed to read body: %v", err)
		return src
	}

	src.MediaType = MediaTypeFor(resp.Header.Get("Content-Type"))
	switch src.MediaType {
	case models.MediaTypeWeb:
		title, content, err := ExtractHTML(body)
		if err != nil {
			src.Error = err.Error()
			return src
		}
		src.Title = title
		src.Content = content
	case models.MediaTypePDF:
		content, err := ExtractPDF(body)
		if err != nil {
			src.Error = err.Error()
			return src
		}
		src.Content = content
	default:
		src.Content = NormalizeWhitespace(string(body))
	}

	if src.Title == "" {
		src.Title = url
	}
	src.Content = TruncateAtWord(src.Content, f.params.MaxContentChars)
	return src
}
