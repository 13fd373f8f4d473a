package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanpawarit/Chative-Shop-Assistant/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
)

type fakeHandler struct {
	err      error
	session  string
	userInfo contractx.UserInfo
}

func (f *fakeHandler) HandleMessage(ctx context.Context, sessionID, message string, userInfo contractx.UserInfo) (contractx.Response, error) {
	f.session = sessionID
	f.userInfo = userInfo
	if f.err != nil {
		return contractx.Response{}, f.err
	}
	return contractx.Response{
		Message:    "echo: " + message,
		AgentType:  contractx.AgentTypeFAQ,
		Confidence: 0.7,
		Reason:     "LLM路由決策",
	}, nil
}

func TestChatEndpoint(t *testing.T) {
	t.Parallel()

	h := &fakeHandler{}
	srv := httptest.NewServer(NewHandler(h))
	defer srv.Close()

	body := `{"session_id":" web-1 ","message":"退貨政策?","user_info":{"email":"a@b.co"}}`
	resp, err := http.Post(srv.URL+"/v1/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got contractx.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "echo: 退貨政策?", got.Message)
	assert.Equal(t, contractx.AgentTypeFAQ, got.AgentType)
	assert.Equal(t, "web-1", h.session)
	assert.Equal(t, "a@b.co", h.userInfo.Get("email"))
}

func TestChatEndpointRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{name: "invalid json", body: `{"message":`, wantStatus: http.StatusBadRequest},
		{name: "empty message", body: `{"session_id":"s","message":""}`, err: orchestrator.ErrInvalidMessage, wantStatus: http.StatusBadRequest},
		{name: "empty session", body: `{"message":"hi"}`, err: orchestrator.ErrInvalidSession, wantStatus: http.StatusBadRequest},
		{name: "internal failure", body: `{"session_id":"s","message":"hi"}`, err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(tt.body))
			NewHandler(&fakeHandler{err: tt.err}).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var got errorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.NotEmpty(t, got.Error)
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	h := NewHandler(&fakeHandler{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/chat", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, Config{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second}, &fakeHandler{})
	}()
	cancel()
	require.NoError(t, <-done)
}
