// Package provider talks to the generative-language HTTP APIs used to
// translate keys: Google AI (Gemini generateContent) and OpenAI-compatible
// chat endpoints (Groq, Ollama, any custom server).
//
// A Client sends one prompt per Generate call and returns the model's text.
// It never retries; pacing between calls is the caller's concern.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/i18n-genai/i18n-genai/config"
)

// ErrMissingAPIKey is returned by New when the provider requires a key and
// none was configured.
var ErrMissingAPIKey = errors.New("missing API key")

// Provider IDs.
const (
	Google       = "google"
	Groq         = "groq"
	Ollama       = "ollama"
	CustomOpenAI = "custom-openai"
)

type apiFormat int

const (
	formatOpenAIChat   apiFormat = iota // POST {base}/chat/completions
	formatGeminiNative                  // POST {base}/v1beta/models/{model}:generateContent
)

// Info describes a known provider.
type Info struct {
	ID       string
	Name     string
	BaseURL  string
	Timeout  time.Duration
	NeedsKey bool
	format   apiFormat
}

var known = []Info{
	{ID: Google, Name: "Google AI (Gemini)", BaseURL: "https://generativelanguage.googleapis.com", Timeout: 120 * time.Second, NeedsKey: true, format: formatGeminiNative},
	{ID: Groq, Name: "Groq", BaseURL: "https://api.groq.com/openai/v1", Timeout: 60 * time.Second, NeedsKey: true, format: formatOpenAIChat},
	{ID: Ollama, Name: "Ollama", BaseURL: "http://localhost:11434/v1", Timeout: 120 * time.Second, format: formatOpenAIChat},
	{ID: CustomOpenAI, Name: "Custom OpenAI", Timeout: 60 * time.Second, format: formatOpenAIChat},
}

// Known returns the supported providers.
func Known() []Info {
	out := make([]Info, len(known))
	copy(out, known)
	return out
}

// Lookup returns the provider with the given ID.
func Lookup(id string) (Info, bool) {
	for _, p := range known {
		if p.ID == id {
			return p, true
		}
	}
	return Info{}, false
}

// IDs returns the known provider IDs.
func IDs() []string {
	ids := make([]string, len(known))
	for i, p := range known {
		ids[i] = p.ID
	}
	return ids
}

// Client sends prompts to one configured provider.
type Client struct {
	info    Info
	model   string
	baseURL string
	apiKey  string
	http    *http.Client
	log     zerolog.Logger
}

// New validates p and builds a Client for it.
func New(p config.Provider, logger zerolog.Logger) (*Client, error) {
	info, ok := Lookup(p.ID)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q, use one of: %s", p.ID, strings.Join(IDs(), ", "))
	}
	if strings.TrimSpace(p.Model) == "" {
		return nil, fmt.Errorf("provider %s: model is not set", info.ID)
	}
	if info.NeedsKey && p.APIKey == "" {
		return nil, fmt.Errorf("provider %s: %w", info.ID, ErrMissingAPIKey)
	}

	baseURL := info.BaseURL
	if p.BaseURL != "" {
		baseURL = p.BaseURL
	}
	if baseURL == "" {
		return nil, fmt.Errorf("provider %s: base URL is not set", info.ID)
	}

	timeout := info.Timeout
	if p.TimeoutSeconds > 0 {
		timeout = time.Duration(p.TimeoutSeconds) * time.Second
	}

	return &Client{
		info:    info,
		model:   p.Model,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  p.APIKey,
		http:    makeHTTPClient(p.Proxy, timeout),
		log:     logger.With().Str("provider", info.ID).Str("model", p.Model).Logger(),
	}, nil
}

// Name returns the provider's display name.
func (c *Client) Name() string { return c.info.Name }

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// Generate sends prompt as a single user message and returns the text of
// the first candidate.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	endpoint, headers, body, err := c.buildRequest(prompt)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	c.log.Debug().Str("endpoint", endpoint).Int("bytes", len(body)).Msg("sending request")
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	c.log.Debug().Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("response received")

	if resp.StatusCode != http.StatusOK {
		if msg := errorMessage(respBody); msg != "" {
			return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, msg)
		}
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
	}
	return extractResponseText(respBody)
}

func (c *Client) buildRequest(prompt string) (string, map[string]string, []byte, error) {
	headers := map[string]string{"Content-Type": "application/json"}

	switch c.info.format {
	case formatGeminiNative:
		endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
		if c.apiKey != "" {
			headers["x-goog-api-key"] = c.apiKey
		}
		body, err := buildGeminiRequest(prompt, temperature)
		return endpoint, headers, body, err

	default:
		endpoint := c.baseURL
		if !strings.HasSuffix(endpoint, "/chat/completions") {
			endpoint += "/chat/completions"
		}
		if c.apiKey != "" {
			headers["Authorization"] = "Bearer " + c.apiKey
		}
		body, err := buildOpenAIChatRequest(c.model, prompt, temperature)
		return endpoint, headers, body, err
	}
}

const temperature = 0.3

func buildOpenAIChatRequest(model, prompt string, temperature float64) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model:       model,
		Messages:    []msg{{Role: "user", Content: prompt}},
		Temperature: temperature,
	}
	return json.Marshal(req)
}

func buildGeminiRequest(prompt string, temperature float64) ([]byte, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}
	type genConfig struct {
		Temperature float64 `json:"temperature"`
	}
	req := struct {
		Contents         []content `json:"contents"`
		GenerationConfig genConfig `json:"generationConfig"`
	}{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: genConfig{Temperature: temperature},
	}
	return json.Marshal(req)
}

// extractResponseText returns the model text from an OpenAI chat, Gemini,
// or plain {"response": ...} body.
func extractResponseText(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("invalid JSON response: %s", truncate(string(body), 200))
	}
	if msg := errorMessage(body); msg != "" {
		return "", fmt.Errorf("API error: %s", msg)
	}
	r := gjson.ParseBytes(body)

	if content := r.Get("choices.0.message.content"); content.Type == gjson.String {
		return content.String(), nil
	}

	if parts := r.Get("candidates.0.content.parts.#.text"); parts.IsArray() && len(parts.Array()) > 0 {
		var b strings.Builder
		for _, p := range parts.Array() {
			b.WriteString(p.String())
		}
		return b.String(), nil
	}
	if reason := r.Get("promptFeedback.blockReason"); reason.Exists() {
		return "", fmt.Errorf("prompt blocked: %s", reason.String())
	}
	if reason := r.Get("candidates.0.finishReason"); reason.Exists() {
		return "", fmt.Errorf("empty candidate, finish reason %s", reason.String())
	}

	if resp := r.Get("response"); resp.Type == gjson.String {
		return resp.String(), nil
	}

	return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 500))
}

// errorMessage returns the API error message carried by body, if any.
func errorMessage(body []byte) string {
	e := gjson.GetBytes(body, "error")
	switch {
	case !e.Exists():
		return ""
	case e.Get("message").Exists():
		return e.Get("message").String()
	case e.Type == gjson.String:
		return e.String()
	default:
		return e.Raw
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
