package services

// Machine-readable error codes delivered to the client, either as the
// terminal event of an execution stream or as the error field of a
// non-streaming response.
const (
	CodeInvalidJSON            = "invalid_json"
	CodeMissingFields          = "missing_fields"
	CodeServiceUnavailable     = "service_unavailable"
	CodeInputTooLong           = "input_too_long"
	CodeTooManyPreviousResults = "too_many_previous_results"
	CodePreviousResultTooLong  = "previous_result_too_long"
	CodeTooShort               = "too_short"
	CodeDeviceNotFound         = "device_not_found"
	CodeNoCredits              = "no_credits"
	CodeRateLimited            = "rate_limited"
	CodeDailyLimitExceeded     = "daily_limit_exceeded"
	CodeAIFailed               = "ai_failed"
	CodeAIQuotaExceeded        = "ai_quota_exceeded"
)
