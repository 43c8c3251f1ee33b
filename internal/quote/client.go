package quote

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/utafrali/partsquote/internal/domain"
	"github.com/utafrali/partsquote/pkg/httpclient"
)

// Doer posts JSON through a resilient HTTP client.
type Doer interface {
	PostJSON(ctx context.Context, url string, v any, headers http.Header) (*http.Response, error)
}

// Client sends submissions to the quote intake endpoint.
type Client struct {
	http   Doer
	url    string
	logger *slog.Logger
}

// NewClient creates an intake client posting to url.
func NewClient(doer Doer, url string, logger *slog.Logger) *Client {
	return &Client{http: doer, url: url, logger: logger}
}

// Submit posts the submission. The reference doubles as the idempotency key
// so a retried post cannot create a second quote. Any failure, including a
// non-2xx reply, is returned as a SubmissionFailure.
func (c *Client) Submit(ctx context.Context, sub Submission) error {
	headers := http.Header{}
	headers.Set("Idempotency-Key", sub.Reference)

	resp, err := c.http.PostJSON(ctx, c.url, sub, headers)
	if err != nil {
		c.logger.WarnContext(ctx, "quote intake request failed",
			slog.String("reference", sub.Reference),
			slog.String("error", err.Error()),
		)
		return domain.SubmissionFailure(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := httpclient.ParseResponseError(resp, "quote intake")
		c.logger.WarnContext(ctx, "quote intake rejected submission",
			slog.String("reference", sub.Reference),
			slog.Int("status", resp.StatusCode),
			slog.String("error", perr.Error()),
		)
		return domain.SubmissionFailure(perr)
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return nil
}
