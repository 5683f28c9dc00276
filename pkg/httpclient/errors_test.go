package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func makeResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func envelopeError(code, message string) string {
	return `{"data":null,"error":{"code":"` + code + `","message":"` + message + `"}}`
}

func TestDecodeRemoteError(t *testing.T) {
	re := DecodeRemoteError(http.StatusForbidden, []byte(envelopeError("FORBIDDEN", "You can only cancel your own orders.")))
	assert.Equal(t, "FORBIDDEN", re.Code)
	assert.Equal(t, "You can only cancel your own orders.", re.Message)

	flat := DecodeRemoteError(http.StatusBadRequest, []byte(`{"message":"Order cannot be cancelled"}`))
	assert.Equal(t, "Order cannot be cancelled", flat.Message)

	garbage := DecodeRemoteError(http.StatusBadGateway, []byte(`<html>bad gateway</html>`))
	assert.Empty(t, garbage.Message)
	assert.Equal(t, http.StatusBadGateway, garbage.StatusCode)
}

func TestParseResponseError_Kinds(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		message  string
	}{
		{"unauthorized with message", http.StatusUnauthorized, envelopeError("UNAUTHORIZED", "token expired"), apperrors.ErrUnauthorized, "token expired"},
		{"unauthorized without message", http.StatusUnauthorized, ``, apperrors.ErrUnauthorized, authRequiredMessage},
		{"forbidden", http.StatusForbidden, envelopeError("FORBIDDEN", "not your order"), apperrors.ErrForbidden, "not your order"},
		{"not found", http.StatusNotFound, envelopeError("NOT_FOUND", "order missing"), apperrors.ErrNotFound, "order missing"},
		{"unavailable", http.StatusServiceUnavailable, ``, apperrors.ErrServiceUnavail, "failed to fetch orders"},
		{"bad request", http.StatusBadRequest, envelopeError("BAD", "quantity too large"), apperrors.ErrService, "quantity too large"},
		{"server error falls back", http.StatusInternalServerError, `oops`, apperrors.ErrService, "failed to fetch orders"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseResponseError(makeResponse(tt.status, tt.body), "failed to fetch orders")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)

			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}

func TestAsRemoteError_IgnoresOtherErrors(t *testing.T) {
	_, ok := AsRemoteError(errors.New("dial tcp: refused"))
	assert.False(t, ok)
}

func TestIsSuccess(t *testing.T) {
	assert.True(t, IsSuccess(http.StatusOK))
	assert.True(t, IsSuccess(http.StatusNoContent))
	assert.False(t, IsSuccess(http.StatusMultipleChoices))
	assert.False(t, IsSuccess(http.StatusBadRequest))
}
