// Package gateway talks to the remote order and product services.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/tracing"
)

const tracerName = "github.com/utafrali/storefront/internal/gateway"

const authRequiredMessage = "Authentication required. Please login first."

// Authenticator supplies the visitor's credential for remote calls.
type Authenticator interface {
	IsAuthenticated() bool
	CurrentUser() (*domain.User, bool)
	Headers() map[string]string
}

// CircuitOpenFallback reports ServiceUnavailable while a breaker is open.
func CircuitOpenFallback(service string) httpclient.FallbackFunc {
	return func(_ context.Context, _ error) (*http.Response, error) {
		return nil, apperrors.ServiceUnavailable(service + " is temporarily unavailable, please try again later")
	}
}

// operation describes one remote call for error mapping.
type operation struct {
	name         string
	resource     string
	id           string
	fallback     string // message when the service sends none
	forbidden    string // message for 403 without a body
	transition   bool   // 400/409/422 mean the order is in the wrong status
	allowEmpty   bool   // a 2xx without data is an acknowledgement
	requiresAuth bool
}

type remote struct {
	service string
	baseURL string
	client  httpclient.HTTPDoer
	auth    Authenticator
	logger  *slog.Logger
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type list[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

func (r *remote) url(path string) string {
	return strings.TrimRight(r.baseURL, "/") + path
}

// call sends one request and decodes the data field of the response envelope
// into out when out is non-nil.
func (r *remote) call(ctx context.Context, op operation, method, path, contentType string, body []byte, out any) (err error) {
	ctx, span := tracing.Start(ctx, tracerName, r.service+"."+op.name,
		attribute.String("http.method", method),
		attribute.String("storefront.resource_id", op.id),
	)
	defer func() { tracing.End(span, err) }()

	if op.requiresAuth && (r.auth == nil || !r.auth.IsAuthenticated()) {
		return apperrors.Unauthorized(authRequiredMessage)
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.url(path), reader)
	if err != nil {
		return apperrors.Internal(fmt.Errorf("build %s request: %w", op.name, err))
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if r.auth != nil {
		for k, v := range r.auth.Headers() {
			req.Header.Set(k, v)
		}
	}

	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return r.transportError(ctx, op, err)
	}

	if !httpclient.IsSuccess(resp.StatusCode) {
		return r.mapRemote(op, httpclient.ReadRemoteError(resp))
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		r.logger.ErrorContext(ctx, "undecodable response",
			slog.String("service", r.service),
			slog.String("operation", op.name),
			slog.String("error", err.Error()),
		)
		return apperrors.ServiceError(fmt.Sprintf("unexpected response from %s", r.service))
	}
	return nil
}

func (r *remote) transportError(ctx context.Context, op operation, err error) error {
	if re, ok := httpclient.AsRemoteError(err); ok {
		return r.mapRemote(op, re)
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, httpclient.ErrCircuitOpen) {
		return apperrors.ServiceUnavailable(r.service + " is temporarily unavailable, please try again later")
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op.name, ctxErr)
	}

	r.logger.WarnContext(ctx, "remote call failed",
		slog.String("service", r.service),
		slog.String("operation", op.name),
		slog.String("error", err.Error()),
	)
	return apperrors.ServiceUnavailable(r.service + " is unreachable")
}

func (r *remote) mapRemote(op operation, re *httpclient.RemoteError) error {
	switch re.StatusCode {
	case http.StatusForbidden:
		msg := re.Message
		if msg == "" {
			msg = op.forbidden
		}
		if msg == "" {
			msg = "you are not allowed to do this"
		}
		return apperrors.Forbidden(msg)
	case http.StatusNotFound:
		if op.resource != "" && op.id != "" {
			return apperrors.NotFound(op.resource, op.id)
		}
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		if op.transition {
			msg := re.Message
			if msg == "" {
				msg = op.fallback
			}
			return apperrors.RejectedTransition(msg)
		}
	}
	return re.AppError(op.fallback)
}

// probe reports whether the service answers below 500 on its base URL.
func (r *remote) probe(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url(path), http.NoBody)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%s answered %d", r.service, resp.StatusCode)
	}
	return nil
}
