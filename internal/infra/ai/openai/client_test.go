package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/triangle-intel/internal/domain/report"
)

func TestWriteReport(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  # Report\n"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", "gpt-4o-mini", srv.URL)
	md, err := c.WriteReport(context.Background(), report.Request{Kind: report.KindMarketEntry, CompanyName: "Acme"}, report.Assessment{})
	require.NoError(t, err)
	assert.Equal(t, "# Report", md)
	assert.Equal(t, "gpt-4o-mini", got["model"])
	assert.EqualValues(t, maxTokens, got["max_tokens"])
}

func TestWriteReportQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", "gpt-4o-mini", srv.URL)
	_, err := c.WriteReport(context.Background(), report.Request{Kind: report.KindMarketEntry}, report.Assessment{})
	assert.ErrorIs(t, err, report.ErrQuotaExceeded)
}

func TestWriteReportServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := NewClient("k", "o3-mini", srv.URL)
	_, err := c.WriteReport(context.Background(), report.Request{Kind: report.KindHSClassification}, report.Assessment{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, report.ErrQuotaExceeded)
}

func TestIsReasoning(t *testing.T) {
	assert.True(t, isReasoning("o3-2025-04-16"))
	assert.True(t, isReasoning("gpt-5-mini"))
	assert.False(t, isReasoning("gpt-4o-mini"))
}
