package errors

// ErrorCode is the stable application error code returned in every error body.
type ErrorCode int

const (
	ErrorCode_HTTP_OK ErrorCode = 200

	// General
	ErrorCode_INTERNAL         ErrorCode = 1000
	ErrorCode_INVALID_ARGUMENT ErrorCode = 1001
	ErrorCode_UNAUTHENTICATED  ErrorCode = 1005
	ErrorCode_FORBIDDEN        ErrorCode = 1006
	ErrorCode_INVALID_PAYLOAD  ErrorCode = 1007

	// Auth
	ErrorCode_AUTH_INVALID_TOKEN ErrorCode = 1100
	ErrorCode_AUTH_TOKEN_EXPIRED ErrorCode = 1101

	// Meetings and pipeline
	ErrorCode_MEETING_NOT_FOUND  ErrorCode = 1200
	ErrorCode_PIPELINE_BUSY      ErrorCode = 1201
	ErrorCode_STEP_CONFLICT      ErrorCode = 1202
	ErrorCode_INVALID_STEP       ErrorCode = 1203
	ErrorCode_UNSUPPORTED_AUDIO  ErrorCode = 1204
	ErrorCode_AUDIO_TOO_LARGE    ErrorCode = 1205
	ErrorCode_STEP_NOT_READY     ErrorCode = 1206
	ErrorCode_QUEUE_FULL         ErrorCode = 1207
	ErrorCode_SUMMARY_NOT_READY  ErrorCode = 1208
	ErrorCode_TASK_NOT_FOUND     ErrorCode = 1300
	ErrorCode_TASK_INVALID_STATE ErrorCode = 1301

	// Integrations
	ErrorCode_INTEGRATION_STORAGE_FAILED ErrorCode = 1400
)

var codeNames = map[ErrorCode]string{
	ErrorCode_HTTP_OK:                    "HTTP_OK",
	ErrorCode_INTERNAL:                   "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:           "INVALID_ARGUMENT",
	ErrorCode_UNAUTHENTICATED:            "UNAUTHENTICATED",
	ErrorCode_FORBIDDEN:                  "FORBIDDEN",
	ErrorCode_INVALID_PAYLOAD:            "INVALID_PAYLOAD",
	ErrorCode_AUTH_INVALID_TOKEN:         "AUTH_INVALID_TOKEN",
	ErrorCode_AUTH_TOKEN_EXPIRED:         "AUTH_TOKEN_EXPIRED",
	ErrorCode_MEETING_NOT_FOUND:          "MEETING_NOT_FOUND",
	ErrorCode_PIPELINE_BUSY:              "PIPELINE_BUSY",
	ErrorCode_STEP_CONFLICT:              "STEP_CONFLICT",
	ErrorCode_INVALID_STEP:               "INVALID_STEP",
	ErrorCode_UNSUPPORTED_AUDIO:          "UNSUPPORTED_AUDIO",
	ErrorCode_AUDIO_TOO_LARGE:            "AUDIO_TOO_LARGE",
	ErrorCode_STEP_NOT_READY:             "STEP_NOT_READY",
	ErrorCode_QUEUE_FULL:                 "QUEUE_FULL",
	ErrorCode_SUMMARY_NOT_READY:          "SUMMARY_NOT_READY",
	ErrorCode_TASK_NOT_FOUND:             "TASK_NOT_FOUND",
	ErrorCode_TASK_INVALID_STATE:         "TASK_INVALID_STATE",
	ErrorCode_INTEGRATION_STORAGE_FAILED: "INTEGRATION_STORAGE_FAILED",
}

// String returns the symbolic name of the code.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}
