// Package quote asks a chat completion service for a one-line money
// discipline quote. Failures are reported as a message, never as a panic.
package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"moneytracker/internal/core"
)

const (
	DefaultModel   = openai.GPT4oMini
	DefaultTimeout = 20 * time.Second

	systemPrompt      = "You write concise high-impact money quotes."
	missingKeyMessage = "Enter OpenAI API key to generate a rich-mindset quote."
	temperature       = 0.7
)

var ErrEmptyCompletion = errors.New("empty completion")

// Request carries everything the prompt needs. APIKey and Model override the
// generator defaults when set.
type Request struct {
	APIKey        string
	Model         string
	TodayTotal    float64
	ProjectedYear float64
	Feedback      string
}

// Result holds either the quote text or a user facing error message.
type Result struct {
	Text string
	Err  string
}

// Failed reports whether no quote was produced.
func (r Result) Failed() bool {
	return r.Err != ""
}

// Config configures a Generator.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Generator struct {
	cfg Config
}

func New(cfg Config) *Generator {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Generator{cfg: cfg}
}

// HasDefaultKey reports whether a server side key is configured.
func (g *Generator) HasDefaultKey() bool {
	return g.cfg.APIKey != ""
}

// Model returns the default model name.
func (g *Generator) Model() string {
	return g.cfg.Model
}

// Generate requests a quote. It blocks for at most the configured timeout
// and recovers from any panic in the client.
func (g *Generator) Generate(ctx context.Context, req Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Quote generation panicked", "panic", r)
			res = Result{Err: fmt.Sprintf("OpenAI request failed: %v", r)}
		}
	}()

	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		key = g.cfg.APIKey
	}
	if key == "" {
		return Result{Err: missingKeyMessage}
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = g.cfg.Model
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	text, err := g.complete(ctx, key, model, BuildPrompt(req))
	if err != nil {
		slog.WarnContext(ctx, "Quote generation failed", "model", model, "error", err)
		return Result{Err: fmt.Sprintf("OpenAI request failed: %v", err)}
	}
	return Result{Text: text}
}

func (g *Generator) complete(ctx context.Context, key, model, prompt string) (string, error) {
	cfg := openai.DefaultConfig(key)
	if g.cfg.BaseURL != "" {
		cfg.BaseURL = g.cfg.BaseURL
	}
	if g.cfg.HTTPClient != nil {
		cfg.HTTPClient = g.cfg.HTTPClient
	}
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := oneLine(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// BuildPrompt renders the user prompt for req.
func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Create one strong money-discipline quote in English.\n")
	b.WriteString("Context:\n")
	fmt.Fprintf(&b, "- Today's spend: %s\n", core.FormatUSD(req.TodayTotal))
	fmt.Fprintf(&b, "- Projected yearly spend: %s\n", core.FormatUSD(req.ProjectedYear))
	fmt.Fprintf(&b, "- Feedback: %s\n", req.Feedback)
	b.WriteString("\nRules:\n")
	b.WriteString("- Max 24 words\n")
	b.WriteString("- No emojis\n")
	b.WriteString("- Tone: direct, disciplined, premium\n")
	b.WriteString("- Output one line only")
	return b.String()
}

func oneLine(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
