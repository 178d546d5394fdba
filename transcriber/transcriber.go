// Package transcriber turns an audio payload into refined text with two
// sequential calls to an OpenAI-compatible service: speech-to-text, then a
// chat completion that cleans the raw transcript.
package transcriber

import (
	"context"
)

// SystemPrompt is the fixed refinement instruction.
const SystemPrompt = "You are a high-fidelity dictation cleaner. Detect the language of the " +
	"transcript and answer in that same language. Remove filler words and " +
	"disfluencies (um, uh, eh, like, repeated words). Correct grammar and " +
	"punctuation so the text reads naturally. Never summarize, paraphrase, " +
	"translate, or drop content, and never add commentary. Return only the " +
	"cleaned text."

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
}

type Refiner interface {
	Refine(ctx context.Context, text string) (string, error)
}

// Result is what one pipeline run produces. Both fields are non-empty.
type Result struct {
	Original string `json:"original"`
	Refined  string `json:"refined"`
}
