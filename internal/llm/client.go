// Package llm wraps the model backend: chat completion over stored history,
// audio transcription, and image generation.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stellarlinkco/chatpal/internal/config"
	"github.com/stellarlinkco/chatpal/internal/store"
)

type Client struct {
	api        openai.Client
	model      string
	imageModel string
	audioModel string
	timeout    time.Duration
}

func New(cfg config.ProviderConfig) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("llm: api key required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		api:        openai.NewClient(opts...),
		model:      cfg.Model,
		imageModel: cfg.ImageModel,
		audioModel: cfg.AudioModel,
		timeout:    time.Duration(cfg.TimeoutSec) * time.Second,
	}, nil
}

// Complete runs a chat completion over the conversation history plus the new
// user text. An empty reply is returned as "" without error.
func (c *Client) Complete(ctx context.Context, history []store.Message, text string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	msgs := convertHistory(history)
	msgs = append(msgs, openai.UserMessage(text))

	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: msgs,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

// Transcribe converts an audio file to text.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	transcription, err := c.api.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(c.audioModel),
		File:  f,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return transcription.Text, nil
}

// GenerateImage returns the URL of a generated image.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.api.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(c.imageModel),
		N:      openai.Int(1),
	})
	if err != nil {
		return "", fmt.Errorf("generate image: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("generate image: empty response")
	}
	return resp.Data[0].URL, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func convertHistory(history []store.Message) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	for _, m := range history {
		switch m.Role {
		case store.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case store.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	return msgs
}
