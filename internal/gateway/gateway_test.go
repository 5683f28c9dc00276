package gateway

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httpclient"
)

type fakeAuth struct {
	token string
	user  domain.User
}

func (f fakeAuth) IsAuthenticated() bool { return f.token != "" }

func (f fakeAuth) CurrentUser() (*domain.User, bool) {
	if f.token == "" {
		return nil, false
	}
	u := f.user
	return &u, true
}

func (f fakeAuth) Headers() map[string]string {
	if f.token == "" {
		return map[string]string{}
	}
	return map[string]string{"Authorization": "Bearer " + f.token}
}

var signedIn = fakeAuth{token: "tok-123", user: domain.User{ID: "u-1", Email: "ana@example.com"}}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient() *httpclient.Client {
	return httpclient.New(httpclient.Config{
		Timeout:         5 * time.Second,
		MaxRetries:      0,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    time.Millisecond,
		MaxConnsPerHost: 10,
	})
}

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return server
}

func writeBody(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
