package submission

import "fmt"

// DecodeError reports a signature answer whose inline-encoded image could
// not be turned into raw bytes. It aborts the entire payload build.
type DecodeError struct {
	QuestionID string
	Reason     string
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding signature for question %s: %s", e.QuestionID, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }
