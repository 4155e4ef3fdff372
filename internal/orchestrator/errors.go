package orchestrator

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyMessage is returned when the visitor sends a blank message.
var ErrEmptyMessage = errors.New("message is empty")

// MessageTooLongError is returned when the message exceeds the input cap.
type MessageTooLongError struct {
	Max int
}

func (e *MessageTooLongError) Error() string {
	return fmt.Sprintf("message exceeds the %d character limit", e.Max)
}

// RateLimitedError is returned when the session exhausted its request quota.
type RateLimitedError struct {
	ResetIn time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %s", e.ResetIn)
}
