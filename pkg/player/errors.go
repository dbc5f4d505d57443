// ABOUTME: Player error types
// ABOUTME: Distinguishes decode engine failures from sink and device failures
package player

import "fmt"

// EngineError is a decode engine failure that aborted a session
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("decode engine %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// SinkError is an audio device failure that aborted a session
type SinkError struct {
	Op  string
	Err error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("audio sink %s: %v", e.Op, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}
