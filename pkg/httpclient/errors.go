package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const maxErrorBody = 1 << 20

// authRequiredMessage is shown when a remote service rejects the credential
// without saying why.
const authRequiredMessage = "Authentication required. Please login first."

// StatusError is a non-2xx response whose body was already consumed, as
// returned by CircuitBreakerClient for 5xx responses.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// RemoteError is the decoded error envelope of a remote service:
// {"data": null, "error": {"code": "...", "message": "..."}}.
type RemoteError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote status %d: %s", e.StatusCode, e.Message)
}

type envelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// DecodeRemoteError builds a RemoteError from a status code and raw body.
// Bodies that are not the envelope keep an empty message.
func DecodeRemoteError(status int, body []byte) *RemoteError {
	re := &RemoteError{StatusCode: status}
	var env envelope
	if json.Unmarshal(body, &env) == nil {
		switch {
		case env.Error != nil:
			re.Code = env.Error.Code
			re.Message = env.Error.Message
		case env.Message != "":
			re.Message = env.Message
		}
	}
	return re
}

// ReadRemoteError reads and closes the body of a non-2xx response.
func ReadRemoteError(resp *http.Response) *RemoteError {
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return DecodeRemoteError(resp.StatusCode, body)
}

// AsRemoteError extracts a RemoteError from a transport error that carries a
// consumed 5xx response.
func AsRemoteError(err error) (*RemoteError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return DecodeRemoteError(se.StatusCode, se.Body), true
	}
	return nil, false
}

// AppError maps the remote error onto the storefront error kinds. fallback is
// used when the service sent no message.
func (e *RemoteError) AppError(fallback string) error {
	msg := e.Message
	if msg == "" {
		msg = fallback
	}

	switch {
	case e.StatusCode == http.StatusUnauthorized:
		if e.Message == "" {
			msg = authRequiredMessage
		}
		return apperrors.Unauthorized(msg)
	case e.StatusCode == http.StatusForbidden:
		return apperrors.Forbidden(msg)
	case e.StatusCode == http.StatusNotFound:
		return &apperrors.AppError{
			Code:    "NOT_FOUND",
			Message: msg,
			Status:  http.StatusNotFound,
			Err:     apperrors.ErrNotFound,
		}
	case e.StatusCode == http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(msg)
	default:
		return apperrors.ServiceError(msg)
	}
}

// ParseResponseError reads a non-2xx response and maps it with
// RemoteError.AppError. The body is consumed and closed.
func ParseResponseError(resp *http.Response, fallback string) error {
	return ReadRemoteError(resp).AppError(fallback)
}

// IsSuccess reports whether status is 2xx.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
