package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single directory request.
const DefaultTimeout = 3 * time.Second

const maxBodyBytes = 1 << 20

// HTTP resolves names against a directory service at base.
type HTTP struct {
	base   string
	client *http.Client
	log    *zap.Logger
}

// NewHTTP creates a resolver for the directory at base. A non-positive
// timeout uses DefaultTimeout.
func NewHTTP(base string, timeout time.Duration, log *zap.Logger) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTP{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

func (h *HTTP) Backends(ctx context.Context, name string) ([]string, error) {
	endpoint := h.base + "/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	h.log.Debug("directory lookup",
		zap.String("service", name),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, name)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("get %s: status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var entry Entry
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&entry); err != nil {
		return nil, fmt.Errorf("decode directory entry for %s: %w", name, err)
	}
	return entry.IPs, nil
}
