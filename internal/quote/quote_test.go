package quote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func fakeOpenAI(t *testing.T, handler func(w http.ResponseWriter, body capturedRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
			return
		}
		var body capturedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		handler(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
	return string(b)
}

func TestGenerateSuccess(t *testing.T) {
	var got capturedRequest
	srv := fakeOpenAI(t, func(w http.ResponseWriter, body capturedRequest) {
		got = body
		_, _ = w.Write([]byte(completion("  Discipline compounds.\nImpulse costs.  ")))
	})

	g := New(Config{BaseURL: srv.URL + "/v1"})
	res := g.Generate(context.Background(), Request{
		APIKey:        "test-key",
		TodayTotal:    42.5,
		ProjectedYear: 15512.5,
		Feedback:      "Your spending distribution is stable.",
	})

	require.False(t, res.Failed(), res.Err)
	assert.Equal(t, "Discipline compounds. Impulse costs.", res.Text)
	assert.Equal(t, DefaultModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, systemPrompt, got.Messages[0].Content)
	assert.Contains(t, got.Messages[1].Content, "Today's spend: $42.50")
	assert.Contains(t, got.Messages[1].Content, "Projected yearly spend: $15,512.50")
}

func TestGenerateMissingKey(t *testing.T) {
	res := New(Config{}).Generate(context.Background(), Request{TodayTotal: 1})
	assert.Equal(t, Result{Err: missingKeyMessage}, res)
}

func TestGenerateUsesDefaultKeyAndModelOverride(t *testing.T) {
	var model string
	srv := fakeOpenAI(t, func(w http.ResponseWriter, body capturedRequest) {
		model = body.Model
		_, _ = w.Write([]byte(completion("Own your money.")))
	})

	g := New(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
	assert.True(t, g.HasDefaultKey())
	res := g.Generate(context.Background(), Request{Model: "gpt-4o"})
	assert.Equal(t, "Own your money.", res.Text)
	assert.Equal(t, "gpt-4o", model)
}

func TestGenerateRemoteFailure(t *testing.T) {
	srv := fakeOpenAI(t, func(w http.ResponseWriter, _ capturedRequest) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
	})

	res := New(Config{BaseURL: srv.URL + "/v1"}).Generate(context.Background(), Request{APIKey: "test-key"})
	assert.Empty(t, res.Text)
	assert.True(t, strings.HasPrefix(res.Err, "OpenAI request failed: "))
	assert.Contains(t, res.Err, "upstream exploded")
}

func TestGenerateEmptyChoices(t *testing.T) {
	srv := fakeOpenAI(t, func(w http.ResponseWriter, _ capturedRequest) {
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	})

	res := New(Config{BaseURL: srv.URL + "/v1"}).Generate(context.Background(), Request{APIKey: "test-key"})
	assert.Contains(t, res.Err, ErrEmptyCompletion.Error())
}

func TestGenerateBlankContent(t *testing.T) {
	srv := fakeOpenAI(t, func(w http.ResponseWriter, _ capturedRequest) {
		_, _ = w.Write([]byte(completion("  \n\r\n ")))
	})

	res := New(Config{BaseURL: srv.URL + "/v1"}).Generate(context.Background(), Request{APIKey: "test-key"})
	assert.Empty(t, res.Text)
	assert.True(t, res.Failed())
	assert.Contains(t, res.Err, ErrEmptyCompletion.Error())
}

func TestGenerateTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := fakeOpenAI(t, func(w http.ResponseWriter, _ capturedRequest) {
		<-release
	})
	defer close(release)

	g := New(Config{BaseURL: srv.URL + "/v1", Timeout: 50 * time.Millisecond})
	start := time.Now()
	res := g.Generate(context.Background(), Request{APIKey: "test-key"})
	assert.True(t, res.Failed())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(Request{TodayTotal: 0, ProjectedYear: 1234567.891, Feedback: "Warning"})
	assert.True(t, strings.HasPrefix(p, "Create one strong money-discipline quote in English."))
	assert.Contains(t, p, "$1,234,567.89")
	assert.Contains(t, p, "- Max 24 words")
	assert.Contains(t, p, "- Feedback: Warning")
}
