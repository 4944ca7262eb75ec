package dto

// Envelope wraps every successful response.
type Envelope struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorEnvelope wraps every failed response.
type ErrorEnvelope struct {
	Error   bool           `json:"error"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// OK builds a success envelope.
func OK(message string, data any) Envelope {
	return Envelope{Message: message, Data: data}
}

// Fail builds a failure envelope.
func Fail(code, message string, details map[string]any) ErrorEnvelope {
	return ErrorEnvelope{Error: true, Code: code, Message: message, Details: details}
}
