package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"keyboard-ai-backend/internal/config"
	"keyboard-ai-backend/internal/database"
	"keyboard-ai-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func setupTest(t *testing.T) {
	t.Helper()
	config.AppConfig = &config.Config{
		BurstLimit:    15,
		ProDailyLimit: 500,
	}

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Device{}, &models.UsageRecord{}))
	database.DB = db
}

func createDevice(t *testing.T, credits int, isPro bool) *models.Device {
	t.Helper()
	device := &models.Device{DeviceID: "device-1", Credits: credits, IsPro: isPro}
	require.NoError(t, database.DB.Create(device).Error)
	return device
}

// fragmentsGenerator fakes a provider streaming the given fragments
func fragmentsGenerator(fragments ...string) GenerateFunc {
	return func(ctx context.Context, prompt string, onChunk func(string)) (string, error) {
		var full strings.Builder
		for _, f := range fragments {
			full.WriteString(f)
			onChunk(f)
		}
		return full.String(), nil
	}
}

func collectEvents(svc *ExecutionService, req ExecuteRequest) []Event {
	var events []Event
	svc.Execute(context.Background(), req, func(ev Event) {
		events = append(events, ev)
	})
	return events
}

func execRequest(input string) ExecuteRequest {
	return ExecuteRequest{DeviceID: "device-1", ToolID: "rephrase", UserInput: input}
}

func TestExecuteStreamsChunksThenDone(t *testing.T) {
	setupTest(t)
	createDevice(t, 1, false)

	svc := NewExecutionServiceWithGenerator(fragmentsGenerator("Hel", "lo"))
	events := collectEvents(svc, execRequest("hello world"))

	require.Len(t, events, 3)
	assert.Equal(t, "Hel", events[0].Chunk)
	assert.Equal(t, "lo", events[1].Chunk)
	assert.True(t, events[2].Done)
	assert.Equal(t, "Hello", events[2].FullText)
}

func TestExecuteCommitsAfterDelivery(t *testing.T) {
	setupTest(t)
	createDevice(t, 2, false)

	svc := NewExecutionServiceWithGenerator(fragmentsGenerator("ok then"))
	collectEvents(svc, execRequest("hello world"))

	device, err := database.GetDeviceByDeviceID("device-1")
	require.NoError(t, err)
	assert.Equal(t, 1, device.Credits)

	count, err := database.CountUsageSince("device-1", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestExecuteProDeviceIsNotDebited(t *testing.T) {
	setupTest(t)
	createDevice(t, 2, true)

	svc := NewExecutionServiceWithGenerator(fragmentsGenerator("ok then"))
	events := collectEvents(svc, execRequest("hello world"))
	assert.True(t, events[len(events)-1].Done)

	device, err := database.GetDeviceByDeviceID("device-1")
	require.NoError(t, err)
	assert.Equal(t, 2, device.Credits)
}

func TestExecuteFailedGenerationConsumesNothing(t *testing.T) {
	setupTest(t)
	createDevice(t, 2, false)

	svc := NewExecutionServiceWithGenerator(func(ctx context.Context, prompt string, onChunk func(string)) (string, error) {
		return "", errors.New("connection reset")
	})
	events := collectEvents(svc, execRequest("hello world"))

	require.Len(t, events, 1)
	assert.Equal(t, CodeAIFailed, events[0].Err)

	device, err := database.GetDeviceByDeviceID("device-1")
	require.NoError(t, err)
	assert.Equal(t, 2, device.Credits)

	count, err := database.CountUsageSince("device-1", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestExecuteQuotaErrorCode(t *testing.T) {
	setupTest(t)
	createDevice(t, 1, false)

	svc := NewExecutionServiceWithGenerator(func(ctx context.Context, prompt string, onChunk func(string)) (string, error) {
		return "", ErrQuotaExceeded
	})
	events := collectEvents(svc, execRequest("hello world"))
	require.Len(t, events, 1)
	assert.Equal(t, CodeAIQuotaExceeded, events[0].Err)
}

func TestExecuteCancelledClientConsumesNothing(t *testing.T) {
	setupTest(t)
	createDevice(t, 2, false)

	ctx, cancel := context.WithCancel(context.Background())
	svc := NewExecutionServiceWithGenerator(func(genCtx context.Context, prompt string, onChunk func(string)) (string, error) {
		onChunk("par")
		cancel()
		return "par", genCtx.Err()
	})

	var events []Event
	svc.Execute(ctx, execRequest("hello world"), func(ev Event) {
		events = append(events, ev)
	})

	// One chunk got out, then the stream ended without a terminal event
	require.Len(t, events, 1)
	assert.Equal(t, "par", events[0].Chunk)

	device, err := database.GetDeviceByDeviceID("device-1")
	require.NoError(t, err)
	assert.Equal(t, 2, device.Credits)
}

func TestExecuteRunawayOutputTruncatedAndCommitted(t *testing.T) {
	setupTest(t)
	createDevice(t, 2, false)

	// The generator keeps producing until the pipeline cancels its context
	// at the response cap; that cancellation is a successful delivery, not
	// a provider failure
	chunk := strings.Repeat("x", 999)
	svc := NewExecutionServiceWithGenerator(func(genCtx context.Context, prompt string, onChunk func(string)) (string, error) {
		var full strings.Builder
		for {
			if genCtx.Err() != nil {
				return full.String(), genCtx.Err()
			}
			full.WriteString(chunk)
			onChunk(chunk)
		}
	})

	events := collectEvents(svc, execRequest("hello world"))
	require.NotEmpty(t, events)

	terminal := events[len(events)-1]
	assert.True(t, terminal.Done)
	assert.Empty(t, terminal.Err)
	assert.Equal(t, MaxResponseChars+1, len([]rune(terminal.FullText)))
	assert.True(t, strings.HasSuffix(terminal.FullText, "…"))
	for _, ev := range events[:len(events)-1] {
		assert.Equal(t, chunk, ev.Chunk)
	}

	// Delivery succeeded, so the commit runs
	device, err := database.GetDeviceByDeviceID("device-1")
	require.NoError(t, err)
	assert.Equal(t, 1, device.Credits)

	count, err := database.CountUsageSince("device-1", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestExecuteWordCountRules(t *testing.T) {
	setupTest(t)
	createDevice(t, 5, false)
	svc := NewExecutionServiceWithGenerator(fragmentsGenerator("fine"))

	// Generic tool needs at least two words
	events := collectEvents(svc, execRequest("hi"))
	require.Len(t, events, 1)
	assert.Equal(t, CodeTooShort, events[0].Err)

	events = collectEvents(svc, execRequest("hello world"))
	assert.True(t, events[len(events)-1].Done)

	// Single-word tool needs exactly one word
	events = collectEvents(svc, ExecuteRequest{DeviceID: "device-1", ToolID: "synonyms", UserInput: "hello world"})
	require.Len(t, events, 1)
	assert.Equal(t, CodeTooShort, events[0].Err)

	events = collectEvents(svc, ExecuteRequest{DeviceID: "device-1", ToolID: "synonyms", UserInput: "hello"})
	assert.True(t, events[len(events)-1].Done)
}

func TestExecuteInputShapeLimits(t *testing.T) {
	setupTest(t)
	createDevice(t, 5, false)
	svc := NewExecutionServiceWithGenerator(fragmentsGenerator("fine"))

	events := collectEvents(svc, execRequest("a "+strings.Repeat("x", MaxInputChars)))
	assert.Equal(t, CodeInputTooLong, events[0].Err)

	req := execRequest("hello world")
	req.PreviousResults = make([]string, MaxPreviousResults+1)
	events = collectEvents(svc, req)
	assert.Equal(t, CodeTooManyPreviousResults, events[0].Err)

	req = execRequest("hello world")
	req.PreviousResults = []string{strings.Repeat("x", MaxPreviousResultChars+1)}
	events = collectEvents(svc, req)
	assert.Equal(t, CodePreviousResultTooLong, events[0].Err)
}

func TestExecuteUnknownDeviceAndNoCredits(t *testing.T) {
	setupTest(t)
	svc := NewExecutionServiceWithGenerator(fragmentsGenerator("fine"))

	events := collectEvents(svc, execRequest("hello world"))
	assert.Equal(t, CodeDeviceNotFound, events[0].Err)

	createDevice(t, 0, false)
	events = collectEvents(svc, execRequest("hello world"))
	assert.Equal(t, CodeNoCredits, events[0].Err)
}

func TestExecuteBurstLimit(t *testing.T) {
	setupTest(t)
	createDevice(t, 100, false)
	svc := NewExecutionServiceWithGenerator(fragmentsGenerator("fine"))

	for i := 0; i < config.AppConfig.BurstLimit; i++ {
		require.NoError(t, database.AppendUsageRecord("device-1", "rephrase"))
	}

	events := collectEvents(svc, execRequest("hello world"))
	assert.Equal(t, CodeRateLimited, events[0].Err)
}

func TestExecuteProDailyLimit(t *testing.T) {
	setupTest(t)
	config.AppConfig.ProDailyLimit = 3
	createDevice(t, 0, true)
	svc := NewExecutionServiceWithGenerator(fragmentsGenerator("fine"))

	// Old records outside the burst window but inside the daily window
	old := time.Now().Add(-2 * time.Hour)
	for i := 0; i < 3; i++ {
		record := models.UsageRecord{DeviceID: "device-1", ToolID: "rephrase", CreatedAt: old}
		require.NoError(t, database.DB.Create(&record).Error)
	}

	events := collectEvents(svc, execRequest("hello world"))
	assert.Equal(t, CodeDailyLimitExceeded, events[0].Err)
}

func TestExecuteKillSwitchShortCircuits(t *testing.T) {
	setupTest(t)
	config.AppConfig.ServiceDisabled = true

	// No store is touched: a nil database would panic on any lookup
	database.DB = nil

	svc := NewExecutionServiceWithGenerator(fragmentsGenerator("fine"))
	events := collectEvents(svc, execRequest("hello world"))
	require.Len(t, events, 1)
	assert.Equal(t, CodeServiceUnavailable, events[0].Err)
}

func TestExecuteUnknownTool(t *testing.T) {
	setupTest(t)
	createDevice(t, 1, false)
	svc := NewExecutionServiceWithGenerator(fragmentsGenerator("fine"))

	events := collectEvents(svc, ExecuteRequest{DeviceID: "device-1", ToolID: "nope", UserInput: "hello world"})
	require.Len(t, events, 1)
	assert.Equal(t, CodeMissingFields, events[0].Err)
}

func TestNormalizeResultUnwrapsEnvelope(t *testing.T) {
	assert.Equal(t, "plain text", normalizeResult("plain text"))
	assert.Equal(t, "unwrapped", normalizeResult(`{"result": "unwrapped"}`))
	assert.Equal(t, "fenced", normalizeResult("```json\n{\"result\": \"fenced\"}\n```"))

	// Unparseable JSON falls back to the raw text
	raw := `{"result": broken`
	assert.Equal(t, raw, normalizeResult(raw))
}

func TestNormalizeResultTruncates(t *testing.T) {
	long := strings.Repeat("a", MaxResponseChars+100)
	out := normalizeResult(long)
	assert.Equal(t, MaxResponseChars+1, len([]rune(out)))
	assert.True(t, strings.HasSuffix(out, "…"))
}

func TestBuildPromptIncludesPreviousResults(t *testing.T) {
	tool, ok := GetTool("rephrase")
	require.True(t, ok)

	prompt := BuildPrompt(tool, "hello world", []string{"first answer", "second answer"})
	assert.Contains(t, prompt, tool.Instruction)
	assert.Contains(t, prompt, "hello world")
	assert.Contains(t, prompt, fmt.Sprintf("1. %s", "first answer"))
	assert.Contains(t, prompt, fmt.Sprintf("2. %s", "second answer"))

	prompt = BuildPrompt(tool, "hello world", nil)
	assert.NotContains(t, prompt, "already saw")
}
