package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"keyboard-ai-backend/internal/config"
)

var (
	// ErrNotConfigured means no provider API key is set
	ErrNotConfigured = errors.New("generation service is not configured")
	// ErrQuotaExceeded means the provider rejected the request with HTTP 429
	ErrQuotaExceeded = errors.New("provider quota exceeded")
)

// GenerationService streams text completions from an OpenAI-compatible
// chat completions endpoint.
type GenerationService struct {
	apiKey     string
	apiURL     string
	model      string
	httpClient *http.Client
}

// NewGenerationService creates a new generation service instance
func NewGenerationService() *GenerationService {
	return &GenerationService{
		apiKey: config.AppConfig.AIAPIKey,
		apiURL: config.AppConfig.AIAPIURL,
		model:  config.AppConfig.AIModel,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute, // covers the whole stream
		},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Generate streams a completion for the prompt, calling onChunk for every
// text fragment as it arrives, and returns the accumulated text. The
// request is bound to ctx, so caller cancellation aborts the upstream
// connection.
func (s *GenerationService) Generate(ctx context.Context, prompt string, onChunk func(string)) (string, error) {
	if s.apiKey == "" {
		return "", ErrNotConfigured
	}

	payload := chatRequest{
		Model:    s.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   true,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", ErrQuotaExceeded
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(body))
	}

	// The body is a server-sent-event stream: "data: {json}" lines with a
	// "data: [DONE]" terminator.
	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			if data == "[DONE]" {
				break
			}
			continue
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Providers interleave comments and keep-alives; skip them
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		content := chunk.Choices[0].Delta.Content
		if content != "" {
			full.WriteString(content)
			if onChunk != nil {
				onChunk(content)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return full.String(), ctx.Err()
		}
		return full.String(), fmt.Errorf("stream read failed: %w", err)
	}

	return full.String(), nil
}
