package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pocketbase/pocketbase/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"clientbilling/observability"
)

func TestRequestLogger(t *testing.T) {
	obs, logs := observer.New(zap.DebugLevel)
	mw := RequestLogger(zap.New(obs))

	req := httptest.NewRequest(http.MethodGet, "/projects/p1/bills/b1", nil)
	rec := httptest.NewRecorder()
	e := &core.RequestEvent{}
	e.Request = req
	e.Response = rec

	require.NoError(t, mw(e))

	// downstream handlers see the request-scoped logger
	observability.FromContext(e.Request.Context()).Info("from handler")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "request completed", entries[0].Message)
	assert.Equal(t, "from handler", entries[1].Message)

	fields := entries[1].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/projects/p1/bills/b1", fields["path"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestRequestLogger_UpstreamRequestID(t *testing.T) {
	obs, logs := observer.New(zap.InfoLevel)
	mw := RequestLogger(zap.New(obs))

	e := &core.RequestEvent{}
	e.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	e.Request.Header.Set("X-Request-Id", "req-42")
	e.Response = httptest.NewRecorder()

	require.NoError(t, mw(e))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-42", logs.All()[0].ContextMap()["request_id"])
}

func TestRequestLogger_NilLogger(t *testing.T) {
	mw := RequestLogger(nil)

	e := &core.RequestEvent{}
	e.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	e.Response = httptest.NewRecorder()

	assert.NoError(t, mw(e))
}
