package services

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"keyboard-ai-backend/internal/config"
	"keyboard-ai-backend/internal/database"
	"keyboard-ai-backend/internal/policy"
	"keyboard-ai-backend/pkg/logging"

	"gorm.io/gorm"
)

// Input-shape limits for tool execution
const (
	MaxInputChars          = 6000
	MaxPreviousResults     = 5
	MaxPreviousResultChars = 2000
	MaxResponseChars       = 5000
)

// ExecuteRequest is a single tool invocation from a device
type ExecuteRequest struct {
	DeviceID        string                 `json:"deviceId"`
	ToolID          string                 `json:"toolId"`
	UserInput       string                 `json:"userInput"`
	PreviousResults []string               `json:"previousResults"`
	Metadata        map[string]interface{} `json:"metadata"`
}

// Event is one element of an execution stream: zero or more chunks, then
// exactly one terminal done or error event.
type Event struct {
	Chunk    string
	Done     bool
	FullText string
	Err      string
}

// GenerateFunc streams a completion for a prompt. Substituted with a fake
// in tests.
type GenerateFunc func(ctx context.Context, prompt string, onChunk func(string)) (string, error)

// ExecutionService runs the tool pipeline: validate, authorize, rate
// check, generate, commit. Credits are only debited after the stream has
// completed successfully, so a device that received no output is never
// charged.
type ExecutionService struct {
	generate  GenerateFunc
	rateLimit *RateLimitService
}

// NewExecutionService creates an execution service backed by the real
// generation client.
func NewExecutionService() *ExecutionService {
	return &ExecutionService{
		generate:  NewGenerationService().Generate,
		rateLimit: NewRateLimitService(),
	}
}

// NewExecutionServiceWithGenerator creates an execution service with a
// custom generator, used by tests.
func NewExecutionServiceWithGenerator(generate GenerateFunc) *ExecutionService {
	return &ExecutionService{
		generate:  generate,
		rateLimit: NewRateLimitService(),
	}
}

// Execute runs the pipeline and forwards stream events through emit. Every
// failure is reported as a terminal error event; a cancelled context ends
// the stream silently (the client is gone) and commits nothing.
func (s *ExecutionService) Execute(ctx context.Context, req ExecuteRequest, emit func(Event)) {
	// Kill switch short-circuits before any store access
	if config.AppConfig.ServiceDisabled {
		emit(Event{Err: CodeServiceUnavailable})
		return
	}

	// Validating
	if code := validateRequest(req); code != "" {
		emit(Event{Err: code})
		return
	}
	tool, ok := GetTool(req.ToolID)
	if !ok {
		emit(Event{Err: CodeMissingFields})
		return
	}
	if code := validateInputShape(tool, req); code != "" {
		emit(Event{Err: code})
		return
	}

	// Authorizing
	device, err := database.GetDeviceByDeviceID(req.DeviceID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			emit(Event{Err: CodeDeviceNotFound})
		} else {
			logging.Errorf("Device lookup failed - device_id: %s, error: %v", req.DeviceID, err)
			emit(Event{Err: CodeServiceUnavailable})
		}
		return
	}
	if !policy.CanConsume(device) {
		emit(Event{Err: CodeNoCredits})
		return
	}

	// RateChecking
	now := time.Now()
	if !s.rateLimit.AllowBurst(req.DeviceID, now) {
		emit(Event{Err: CodeRateLimited})
		return
	}
	if device.IsPro && !s.rateLimit.AllowProDaily(req.DeviceID, now) {
		emit(Event{Err: CodeDailyLimitExceeded})
		return
	}

	// Generating
	prompt := BuildPrompt(tool, req.UserInput, req.PreviousResults)
	genCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var streamed strings.Builder
	truncated := false
	fullText, err := s.generate(genCtx, prompt, func(chunk string) {
		if truncated {
			return
		}
		streamed.WriteString(chunk)
		emit(Event{Chunk: chunk})
		if streamed.Len() >= MaxResponseChars {
			// Runaway output: stop paying for more tokens
			truncated = true
			cancel()
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			// Client disconnected: no terminal event, no commit
			return
		}
		if !truncated {
			switch err {
			case ErrQuotaExceeded:
				emit(Event{Err: CodeAIQuotaExceeded})
			case ErrNotConfigured:
				logging.Errorf("Generation requested without provider API key")
				emit(Event{Err: CodeServiceUnavailable})
			default:
				logging.Errorf("Generation failed - device_id: %s, tool: %s, error: %v", req.DeviceID, req.ToolID, err)
				emit(Event{Err: CodeAIFailed})
			}
			return
		}
		// The cancellation was ours; deliver what was streamed
		fullText = streamed.String()
	}

	// Committing: debit and log only after successful delivery. Failures
	// here are logged and swallowed, the stream already succeeded.
	if !device.IsPro {
		if _, err := database.ConsumeDeviceCredit(req.DeviceID); err != nil {
			logging.Errorf("Credit debit failed after delivery - device_id: %s, error: %v", req.DeviceID, err)
		}
	}
	if err := database.AppendUsageRecord(req.DeviceID, req.ToolID); err != nil {
		logging.Errorf("Usage record write failed - device_id: %s, error: %v", req.DeviceID, err)
	}

	emit(Event{Done: true, FullText: normalizeResult(fullText)})
}

// validateRequest checks required fields
func validateRequest(req ExecuteRequest) string {
	if req.DeviceID == "" || req.ToolID == "" || strings.TrimSpace(req.UserInput) == "" {
		return CodeMissingFields
	}
	return ""
}

// validateInputShape checks the tool's word count rule and the size caps
func validateInputShape(tool Tool, req ExecuteRequest) string {
	if len(req.UserInput) > MaxInputChars {
		return CodeInputTooLong
	}
	if len(req.PreviousResults) > MaxPreviousResults {
		return CodeTooManyPreviousResults
	}
	for _, prev := range req.PreviousResults {
		if len(prev) > MaxPreviousResultChars {
			return CodePreviousResultTooLong
		}
	}

	words := len(strings.Fields(req.UserInput))
	if tool.SingleWord {
		if words != 1 {
			return CodeTooShort
		}
	} else if words < 2 {
		return CodeTooShort
	}
	return ""
}

var resultFieldPattern = regexp.MustCompile(`"result"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// normalizeResult unwraps a {"result": "..."} JSON envelope some models
// emit despite being told not to, and applies the response length cap.
// Unwrapping is best effort: anything unparseable is delivered as-is.
func normalizeResult(text string) string {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	if strings.HasPrefix(trimmed, "{") {
		var envelope struct {
			Result string `json:"result"`
		}
		if err := json.Unmarshal([]byte(trimmed), &envelope); err == nil && envelope.Result != "" {
			text = envelope.Result
		} else if m := resultFieldPattern.FindStringSubmatch(trimmed); m != nil {
			var unquoted string
			if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &unquoted); err == nil {
				text = unquoted
			}
		}
	}

	runes := []rune(text)
	if len(runes) > MaxResponseChars {
		text = string(runes[:MaxResponseChars]) + "…"
	}
	return text
}
