package ai

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingCredential indicates the backend API key was never configured.
// It is a process-level misconfiguration and must surface before any other
// per-request work is attempted.
var ErrMissingCredential = errors.New("missing model backend credential")

// GatewayError carries the upstream status and body of a failed model call.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("model backend returned status %d", e.StatusCode)
}

// Prompt is the assembled model-facing request. Exactly one concrete variant
// exists per grading call: TextPrompt for text-only input, MultimodalPrompt
// when any image is involved.
type Prompt interface {
	isPrompt()
}

// TextPrompt is a single-turn text conversation for the text generation path.
type TextPrompt struct {
	System string
	User   string
}

func (TextPrompt) isPrompt() {}

// MultimodalPrompt is an ordered sequence of interleaved text and image parts
// for the vision generation path.
type MultimodalPrompt struct {
	System string
	Parts  []Part
}

func (MultimodalPrompt) isPrompt() {}

// Part is one content part of a multimodal user turn. Exactly one of Text or
// Image is set. Image is a data URI or a fetchable URL.
type Part struct {
	Text  string
	Image string
}

// TextPart builds a text content part.
func TextPart(text string) Part { return Part{Text: text} }

// ImagePart builds an image content part.
func ImagePart(ref string) Part { return Part{Image: ref} }

// Generator describes a backend able to turn an assembled prompt into raw
// model text. Implementations own credential attachment and transport
// failure surfacing; they never retry.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}
