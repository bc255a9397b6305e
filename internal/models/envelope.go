package models

// Envelope is the uniform result wrapper every operation returns to its
// caller, independent of transport.
type Envelope struct {
	Success    bool        `json:"success"`
	StatusCode int         `json:"status_code"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
}

// OK wraps a successful payload.
func OK(status int, data interface{}) Envelope {
	return Envelope{Success: true, StatusCode: status, Data: data}
}

// Fail wraps a failure with a human-readable message.
func Fail(status int, message string) Envelope {
	return Envelope{Success: false, StatusCode: status, Message: message}
}
