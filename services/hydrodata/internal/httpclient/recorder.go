package httpclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/02loveslollipop/hydrodata/services/hydrodata/internal/recordstore"
)

// Recorder replays previously recorded response bodies and records new ones.
//
// A hit returns status 200 with an empty header map without calling the
// inner fetcher. Only bodies are kept, so headers and non-200 statuses never
// survive a replay, and only status 200 responses are recorded. Records are
// never invalidated; delete the record to pick up upstream changes.
type Recorder struct {
	inner  Fetcher
	store  recordstore.Store
	logger *slog.Logger
}

// NewRecorder wraps inner with store.
func NewRecorder(inner Fetcher, store recordstore.Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{inner: inner, store: store, logger: logger}
}

// Get serves the request from the store or from the inner fetcher.
func (r *Recorder) Get(ctx context.Context, rawURL string, params Params, timeout time.Duration) (*Response, error) {
	key, err := RequestKey(rawURL, params)
	if err != nil {
		return nil, err
	}

	content, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read recorded response: %w", err)
	}
	if ok {
		r.logger.Info("replaying recorded response", "url", rawURL, "key", key)
		return &Response{
			StatusCode: http.StatusOK,
			Header:     map[string]string{},
			Content:    content,
		}, nil
	}

	r.logger.Info("no recording found, fetching", "url", rawURL, "key", key)
	resp, err := r.inner.Get(ctx, rawURL, params, timeout)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("response not recorded", "url", rawURL, "status", resp.StatusCode)
		return resp, nil
	}

	r.logger.Debug("recording response", "url", rawURL, "key", key, "bytes", len(resp.Content))
	if err := r.store.Put(ctx, key, resp.Content); err != nil {
		return nil, fmt.Errorf("record response: %w", err)
	}
	return resp, nil
}
