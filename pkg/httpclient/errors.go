package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/partsquote/pkg/errors"
)

// DownstreamErrorResponse matches the {"error":{"code","message"}} envelope
// used by this service and by most JSON intake APIs.
type DownstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError reads a non-2xx response and translates it into an
// error. Structured bodies keep their code and message. The body is fully
// consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var downstream DownstreamErrorResponse
	if json.Unmarshal(bodyBytes, &downstream) == nil && downstream.Error != nil {
		return mapDownstreamError(resp.StatusCode, downstream.Error.Code, downstream.Error.Message, serviceName)
	}

	return &apperrors.AppError{
		Code:    "DOWNSTREAM_ERROR",
		Message: fmt.Sprintf("%s returned status %d: %s", serviceName, resp.StatusCode, string(bodyBytes)),
		Status:  resp.StatusCode,
		Err:     sentinelFor(resp.StatusCode),
	}
}

func mapDownstreamError(status int, code, message, serviceName string) error {
	qualifiedMsg := fmt.Sprintf("%s: %s", serviceName, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(serviceName, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualifiedMsg)
	case status == http.StatusConflict:
		return apperrors.Conflict(code, qualifiedMsg)
	case status == http.StatusUnprocessableEntity:
		return apperrors.Unprocessable(code, qualifiedMsg, nil)
	case status == http.StatusTooManyRequests:
		return apperrors.RateLimited(qualifiedMsg)
	default:
		return &apperrors.AppError{
			Code:    code,
			Message: qualifiedMsg,
			Status:  status,
			Err:     sentinelFor(status),
		}
	}
}

func sentinelFor(status int) error {
	switch {
	case status == http.StatusServiceUnavailable:
		return apperrors.ErrServiceUnavail
	case status >= 500:
		return apperrors.ErrInternal
	default:
		return apperrors.ErrUpstreamRejected
	}
}

// IsClientError reports whether status is a 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
