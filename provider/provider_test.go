package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/i18n-genai/i18n-genai/config"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		p       config.Provider
		wantErr string
		missing bool
	}{
		{name: "unknown provider", p: config.Provider{ID: "nope", Model: "m"}, wantErr: "unknown provider"},
		{name: "no model", p: config.Provider{ID: Google, APIKey: "k"}, wantErr: "model is not set"},
		{name: "google without key", p: config.Provider{ID: Google, Model: "m"}, missing: true},
		{name: "groq without key", p: config.Provider{ID: Groq, Model: "m"}, missing: true},
		{name: "custom without url", p: config.Provider{ID: CustomOpenAI, Model: "m"}, wantErr: "base URL"},
		{name: "ollama needs no key", p: config.Provider{ID: Ollama, Model: "llama3"}},
		{name: "google with key", p: config.Provider{ID: Google, Model: "gemini-2.0-flash", APIKey: "k"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := New(tc.p, zerolog.Nop())
			switch {
			case tc.missing:
				assert.ErrorIs(t, err, ErrMissingAPIKey)
			case tc.wantErr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, tc.p.Model, c.Model())
			}
		})
	}
}

func TestGenerateGemini(t *testing.T) {
	var gotPath, gotKey string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"{\"a\": "},{"text":"\"A\"}"}]}}]}`)
	}))
	defer srv.Close()

	c, err := New(config.Provider{ID: Google, Model: "gemini-2.0-flash", APIKey: "secret", BaseURL: srv.URL}, zerolog.Nop())
	require.NoError(t, err)

	text, err := c.Generate(context.Background(), "translate this")
	require.NoError(t, err)
	assert.Equal(t, `{"a": "A"}`, text)
	assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", gotPath)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "translate this", gjson.GetBytes(gotBody, "contents.0.parts.0.text").String())
	assert.Equal(t, "user", gjson.GetBytes(gotBody, "contents.0.role").String())
}

func TestGenerateOpenAIChat(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"bonjour"}}]}`)
	}))
	defer srv.Close()

	c, err := New(config.Provider{ID: CustomOpenAI, Model: "gpt-x", APIKey: "tok", BaseURL: srv.URL + "/v1/"}, zerolog.Nop())
	require.NoError(t, err)

	text, err := c.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "bonjour", text)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "gpt-x", gjson.GetBytes(gotBody, "model").String())
	assert.Equal(t, "hello", gjson.GetBytes(gotBody, "messages.0.content").String())
	assert.False(t, gjson.GetBytes(gotBody, "stream").Bool())
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "server error", status: 500, body: "boom", wantErr: "status 500: boom"},
		{name: "api error body", status: 400, body: `{"error":{"message":"API key not valid"}}`, wantErr: "API key not valid"},
		{name: "error on 200", status: 200, body: `{"error":"quota"}`, wantErr: "API error: quota"},
		{name: "not json", status: 200, body: "<html>", wantErr: "invalid JSON"},
		{name: "blocked", status: 200, body: `{"promptFeedback":{"blockReason":"SAFETY"}}`, wantErr: "SAFETY"},
		{name: "unknown shape", status: 200, body: `{"foo":1}`, wantErr: "could not extract"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			c, err := New(config.Provider{ID: Ollama, Model: "m", BaseURL: srv.URL}, zerolog.Nop())
			require.NoError(t, err)

			_, err = c.Generate(context.Background(), "p")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestGenerateHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"response":"late"}`)
	}))
	defer srv.Close()

	c, err := New(config.Provider{ID: Ollama, Model: "m", BaseURL: srv.URL}, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Generate(ctx, "p")
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestExtractResponseTextPlainResponse(t *testing.T) {
	text, err := extractResponseText([]byte(`{"response":"ok"}`))
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestKnownProviders(t *testing.T) {
	ids := IDs()
	assert.Equal(t, []string{Google, Groq, Ollama, CustomOpenAI}, ids)

	info, ok := Lookup(Groq)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(info.BaseURL, "https://"))
	assert.True(t, info.NeedsKey)
}
