package docservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_PostsPayloadAndReturnsBytes(t *testing.T) {
	var got RenderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/render", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7 fake"))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	pdf, err := client.Render(context.Background(), RenderRequest{
		Template:    "monthly_report",
		CompanyName: "Acme Coatings",
		Data:        map[string]any{"year": 2026, "month": 8},
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("%PDF-1.7 fake"), pdf)
	assert.Equal(t, "monthly_report", got.Template)
	assert.Equal(t, "Acme Coatings", got.CompanyName)
}

func TestRender_RendererError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unknown template"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	_, err := client.Render(context.Background(), RenderRequest{Template: "bogus"})
	require.Error(t, err)
}

func TestRender_NotConfigured(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.Render(context.Background(), RenderRequest{Template: "monthly_report"})
	require.Error(t, err)
}
