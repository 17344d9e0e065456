// Package external contains the clients for the AI services the pipeline
// depends on: text generation, speech-to-text transcription and document
// OCR. Callers use ResilientAIClient, which adds per-service circuit
// breaking, rate limiting and a single retry for transient failures.
package external

import "context"

// TextGenerator produces report prose from a constrained prompt.
type TextGenerator interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Ping(ctx context.Context) error
}

// Transcriber converts consultation audio into text. An empty language
// falls back to the configured default.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error)
	Ping(ctx context.Context) error
}

// DocumentReader extracts text from patient-supplied documents.
type DocumentReader interface {
	ExtractText(ctx context.Context, document []byte, filename string) (string, error)
	Ping(ctx context.Context) error
}
