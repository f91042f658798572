// Package usage records synthesis attempts for accounting and auditing.
package usage

import (
	"context"
	"time"
)

// Record is one synthesis attempt.
type Record struct {
	Provider  string
	VoiceID   string
	Language  string
	Chars     int
	Outcome   string // success, error
	Kind      string // error kind, empty on success
	LatencyMs int64
	Timestamp time.Time
}

// Recorder persists usage records.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Nop discards records.
type Nop struct{}

func (Nop) Record(context.Context, Record) error { return nil }
