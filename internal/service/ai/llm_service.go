package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/msl-practice/backend/internal/config"
	"github.com/zhouzirui/msl-practice/backend/internal/logger"
)

// ErrEmptyCompletion is returned when the model replies with no content.
var ErrEmptyCompletion = errors.New("model returned empty completion")

// CompletionRequest is one single-turn text generation call.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float32
}

// Completer generates text for a single system + user prompt pair.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Service runs completions through a compiled eino chain.
type Service struct {
	chain compose.Runnable[map[string]any, *schema.Message]
	log   zerolog.Logger
}

var _ Completer = (*Service)(nil)

// NewService creates the chat model from configuration and compiles the chain.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel)
}

// NewServiceWithModel compiles the completion chain around an existing model.
func NewServiceWithModel(ctx context.Context, chatModel model.BaseChatModel) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile completion chain: %w", err)
	}

	return &Service{chain: runnable, log: logger.Component("ai")}, nil
}

// Complete invokes the chain once. There is no retry.
func (s *Service) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	input := map[string]any{
		"system": req.SystemPrompt,
		"query":  req.UserPrompt,
	}

	var modelOpts []model.Option
	if req.MaxTokens > 0 {
		modelOpts = append(modelOpts, model.WithMaxTokens(req.MaxTokens))
	}
	if req.Temperature > 0 {
		modelOpts = append(modelOpts, model.WithTemperature(req.Temperature))
	}

	msg, err := s.chain.Invoke(ctx, input, compose.WithChatModelOption(modelOpts...))
	if err != nil {
		return "", fmt.Errorf("failed to run completion chain: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", ErrEmptyCompletion
	}

	s.log.Debug().Int("length", len(msg.Content)).Int("max_tokens", req.MaxTokens).Msg("completion generated")
	return msg.Content, nil
}
