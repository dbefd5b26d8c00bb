// Package specialist defines the uniform contract every backend specialist
// service implements. The core treats specialist internals as opaque: any
// service answering this contract can be registered, whatever backs it.
package specialist

import (
	"context"
	"time"
)

// Request is a query forwarded to one specialist.
type Request struct {
	Text      string `json:"query"`
	MaxTokens int    `json:"max_tokens,omitempty"`
}

// Response is one specialist's answer. Certainty is self-reported and
// optional; CertaintyReported distinguishes "0" from "not provided".
type Response struct {
	SpecialistID      string
	Text              string
	Certainty         float64
	CertaintyReported bool
	Latency           time.Duration
}

// Client issues queries and health checks against specialist endpoints.
// Implementations must honor context cancellation so abandoned dispatch
// calls stop consuming the specialist's capacity.
type Client interface {
	Query(ctx context.Context, endpoint string, req Request) (Response, error)
	Check(ctx context.Context, endpoint string) error
}
