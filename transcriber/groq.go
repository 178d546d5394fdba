package transcriber

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"vozflow/apperr"
	"vozflow/config"
	"vozflow/encoder"
)

// Groq talks to any OpenAI-compatible endpoint; Groq is the default base
// URL. It implements both Transcriber and Refiner.
type Groq struct {
	client      openai.Client
	sttModel    string
	refineModel string
	temperature float64
	language    string
}

// NewGroq fails with a pipeline error when no API key is configured. A nil
// httpClient gets a traced client.
func NewGroq(cfg config.Config, httpClient *http.Client) (*Groq, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperr.New(apperr.Pipeline, "new client",
			"no API key configured, set GROQ_API_KEY or VOZFLOW_API_KEY")
	}
	if httpClient == nil {
		httpClient = NewTracedClient(nil)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &Groq{
		client:      openai.NewClient(opts...),
		sttModel:    cfg.STTModel,
		refineModel: cfg.RefineModel,
		temperature: cfg.Temperature,
		language:    cfg.Language,
	}, nil
}

func (g *Groq) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), "audio."+format, encoder.ContentType(format)),
		Model: openai.AudioModel(g.sttModel),
	}
	if g.language != "" {
		params.Language = openai.String(g.language)
	}
	resp, err := g.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", describe("transcribe", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (g *Groq) Refine(ctx context.Context, text string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.refineModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemPrompt),
			openai.UserMessage(text),
		},
		Temperature: openai.Float(g.temperature),
	})
	if err != nil {
		return "", describe("refine", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func describe(op string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: status %d: %w", op, apiErr.StatusCode, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
