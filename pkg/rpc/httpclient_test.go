package rpc_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-network/gaugewatch/pkg/rpc"
)

func TestHTTPClient_FailsOverOnServerError(t *testing.T) {
	var hosts []string
	client := newTestRPCClientWithOpts(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hosts = append(hosts, r.URL.Host)
		if r.URL.Host == "primary" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}), rpc.Opts{Endpoints: []string{"http://primary", "http://secondary"}})

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, client.GetJSON(context.Background(), "/status", nil, &out))
	assert.True(t, out.OK)
	assert.Equal(t, []string{"primary", "secondary"}, hosts)
}

func TestHTTPClient_ClientErrorIsNotRetriedElsewhere(t *testing.T) {
	var calls int
	client := newTestRPCClientWithOpts(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"description": "chat not found"}`))
	}), rpc.Opts{Endpoints: []string{"http://a", "http://b"}})

	err := client.PostJSON(context.Background(), "/send", map[string]string{"x": "y"}, nil)

	var statusErr *rpc.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
	assert.Contains(t, statusErr.Body, "chat not found")
	assert.Equal(t, 1, calls)
}

func TestHTTPClient_BreakerOpensAfterFailures(t *testing.T) {
	var primaryCalls int
	client := newTestRPCClientWithOpts(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Host, "primary") {
			primaryCalls++
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}), rpc.Opts{Endpoints: []string{"http://primary", "http://secondary"}, BreakerFailures: 2})

	for i := 0; i < 4; i++ {
		require.NoError(t, client.GetJSON(context.Background(), "/x", nil, nil))
	}
	assert.Equal(t, 2, primaryCalls, "primary skipped once its breaker is open")
}

func TestHTTPClient_NoEndpoints(t *testing.T) {
	client := rpc.NewHTTPWithOpts(rpc.Opts{})
	require.ErrorIs(t, client.GetJSON(context.Background(), "/x", nil, nil), rpc.ErrNoEndpoints)
}

func TestHTTPClient_PostJSONSendsBody(t *testing.T) {
	client := newTestRPCClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`{"ok": true, "result": {"message_id": 7}}`))
	}))

	var out struct {
		Result struct {
			MessageID int `json:"message_id"`
		} `json:"result"`
	}
	require.NoError(t, client.PostJSON(context.Background(), "/botX/sendMessage", map[string]any{"chat_id": "1"}, &out))
	assert.Equal(t, 7, out.Result.MessageID)
}
