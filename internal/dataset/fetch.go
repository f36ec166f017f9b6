package dataset

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// Fetcher downloads CSV datasets over HTTP.
type Fetcher struct {
	rest *resty.Client
}

// NewFetcher returns a fetcher with the given request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(30 * time.Second)
	}
	return &Fetcher{rest: r}
}

// Fetch downloads and parses a CSV dataset from url. The context bounds the
// whole download; this is one of the two blocking boundaries of the system
// (the other is artifact storage).
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Table, error) {
	resp, err := f.rest.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("dataset: fetch %s: %w", url, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("dataset: fetch %s: status %d", url, resp.StatusCode())
	}

	t, err := Read(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("dataset: parse %s: %w", url, err)
	}
	log.Info().Str("url", url).Int("rows", len(t.Records)).Msg("dataset fetched")
	return t, nil
}
