package llm

import "fmt"

// UpstreamError represents a failed call to the generative-text provider
// (network, timeout, non-success status, empty response).
type UpstreamError struct {
	Provider Provider
	Message  string
	Cause    error
}

func (e *UpstreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s call failed: %s: %v", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s call failed: %s", e.Provider, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// MalformedResponseError is returned when no recovery strategy produced parseable JSON.
type MalformedResponseError struct {
	Length  int    // length of the original response text
	Excerpt string // leading excerpt of the response
	Offset  int    // byte offset of the parse failure in the response, -1 if unknown
	Window  string // excerpt centered on Offset
	Cause   error
}

func (e *MalformedResponseError) Error() string {
	msg := fmt.Sprintf("malformed model response (%d chars): no JSON object could be recovered", e.Length)
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" (parse failed near offset %d: %q)", e.Offset, e.Window)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Cause
}
