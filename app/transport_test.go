package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestTransportLogsRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	core, logs := observer.New(zap.DebugLevel)
	client := &http.Client{Transport: NewTransport(zap.New(core))}

	res, err := client.Get(srv.URL + "/ping")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusTeapot, res.StatusCode)

	srv.Close()
	_, err = client.Get(srv.URL + "/ping")
	require.Error(t, err)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "HTTP request completed", entries[0].Message)
	assert.Equal(t, int64(http.StatusTeapot), entries[0].ContextMap()["status"])
	assert.Equal(t, "/ping", entries[0].ContextMap()["path"])
	assert.Equal(t, "HTTP request failed", entries[1].Message)
}
