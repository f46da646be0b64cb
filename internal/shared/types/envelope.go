package types

import "time"

// ErrorCode categorizes a failed tool invocation
type ErrorCode string

const (
	ErrorHandleNotFound ErrorCode = "HandleNotFound"
	ErrorSourceNotFound ErrorCode = "SourceNotFound"
	ErrorValidation     ErrorCode = "ValidationError"
	ErrorAdapter        ErrorCode = "AdapterFailure"
	ErrorFlush          ErrorCode = "FlushFailure"
	ErrorUnknownTool    ErrorCode = "UnknownTool"
)

// ErrorCodes lists every code an envelope may carry
var ErrorCodes = []ErrorCode{
	ErrorHandleNotFound,
	ErrorSourceNotFound,
	ErrorValidation,
	ErrorAdapter,
	ErrorFlush,
	ErrorUnknownTool,
}

// Envelope is the result of every tool invocation, success or failure.
// Data is never nil; ErrorCode is set exactly when OK is false.
type Envelope struct {
	OK        bool                   `json:"ok"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data"`
	ErrorCode ErrorCode              `json:"error_code,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// Success builds a successful envelope
func Success(message string, data map[string]interface{}) Envelope {
	if data == nil {
		data = map[string]interface{}{}
	}
	return Envelope{
		OK:        true,
		Message:   message,
		Data:      data,
		Timestamp: timestamp(),
	}
}

// Failure builds a failed envelope
func Failure(message string, code ErrorCode) Envelope {
	return Envelope{
		OK:        false,
		Message:   message,
		Data:      map[string]interface{}{},
		ErrorCode: code,
		Timestamp: timestamp(),
	}
}

// Time parses the envelope timestamp
func (e Envelope) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, e.Timestamp)
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
