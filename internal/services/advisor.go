// OpenAI-compatible chat completions implementation of [Generator]
package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tcgx/internal/shared"
)

const (
	advisorBaseURL = "http://localhost:1234/v1"
	advisorModel   = "lmstudio-community/Meta-Llama-3-8B-Instruct-GGUF"
	advisorTimeout = 120 * time.Second

	advisorSystemPrompt = "You are a trading card market analyst. Answer in Markdown. " +
		"Be concise and say so when price data is missing."
)

// ChatMessage is a single message in a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /chat/completions.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

// ChatResponse is the subset of the completion response tcgx reads.
type ChatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// AdvisorService implements [Generator] against an OpenAI-compatible endpoint.
type AdvisorService struct {
	api         *APIService
	model       string
	temperature float64
	timeout     time.Duration
	logger      *log.Logger
}

// NewAdvisorService creates a completion client from config. A nil client gets one with the configured timeout.
func NewAdvisorService(cfg shared.AdvisorConfig, client *http.Client, logger *log.Logger) *AdvisorService {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = advisorBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = advisorModel
	}

	timeout := advisorTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	api := NewAPIService(baseURL, client)
	if cfg.APIKey != "" {
		api.WithHeader("Authorization", "Bearer "+cfg.APIKey)
	}

	return &AdvisorService{
		api:         api,
		model:       model,
		temperature: cfg.Temperature,
		timeout:     timeout,
		logger:      logger.WithPrefix("advisor"),
	}
}

// Name returns the name of the service
func (s *AdvisorService) Name() string {
	return "advisor"
}

// Generate sends prompt as a single user message and returns the first choice's content.
//
// Every failure wraps [shared.ErrServiceUnavailable] so callers can show a retry-later message.
func (s *AdvisorService) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt", shared.ErrMissingArgument)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	req := ChatRequest{
		Model: s.model,
		Messages: []ChatMessage{
			{Role: "system", Content: advisorSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: s.temperature,
	}

	resp, err := s.api.PostJSON(ctx, "/chat/completions", req)
	if err != nil {
		return "", fmt.Errorf("%w: advisor: %w", shared.ErrServiceUnavailable, err)
	}

	if !resp.OK() {
		s.logger.Warn("completion request failed", "status", resp.StatusCode, "body", snippet(resp.Body))
		return "", fmt.Errorf("%w: advisor returned status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}

	var completion ChatResponse
	if err := resp.Decode(&completion); err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}

	if completion.Error != nil {
		return "", fmt.Errorf("%w: advisor error: %s", shared.ErrServiceUnavailable, completion.Error.Message)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: advisor returned no completion", shared.ErrServiceUnavailable)
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	s.logger.Debug("completion received", "model", s.model, "duration", time.Since(start), "length", len(content))
	return content, nil
}
