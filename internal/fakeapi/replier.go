package fakeapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/memoria-app/memoria/internal/model/avatar"
	"github.com/memoria-app/memoria/internal/model/conversation"
)

const historyLimit = 10

// Replier produces the avatar's answer to a user message.
type Replier interface {
	Reply(ctx context.Context, av avatar.Avatar, history []conversation.Message, text string) (string, error)
}

// EchoReplier answers deterministically without a model.
type EchoReplier struct{}

// Reply echoes text back in the avatar's voice.
func (EchoReplier) Reply(_ context.Context, av avatar.Avatar, _ []conversation.Message, text string) (string, error) {
	return fmt.Sprintf("%s: I hear you. You said \"%s\".", av.Name, strings.TrimSpace(text)), nil
}

// ModelReplier runs a chat-model chain seeded with the avatar's profile.
type ModelReplier struct {
	chain  compose.Runnable[map[string]any, *schema.Message]
	logger *zap.Logger
}

// NewModelReplier compiles the prompt + model chain.
func NewModelReplier(ctx context.Context, chatModel model.BaseChatModel, logger *zap.Logger) (*ModelReplier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ModelReplier{chain: runnable, logger: logger}, nil
}

// Reply invokes the chain with the last few turns as history.
func (r *ModelReplier) Reply(ctx context.Context, av avatar.Avatar, history []conversation.Message, text string) (string, error) {
	input := map[string]any{
		"system":  BuildSystemPrompt(av),
		"history": buildHistoryMessages(history),
		"query":   text,
	}

	response, err := r.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run reply chain: %w", err)
	}

	reply := strings.TrimSpace(response.Content)
	if reply == "" {
		return "", fmt.Errorf("model returned an empty reply")
	}

	r.logger.Debug("generated reply", zap.Int64("avatar_id", av.ID), zap.Int("length", len(reply)))
	return reply, nil
}

func buildHistoryMessages(messages []conversation.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > historyLimit {
		startIdx = len(messages) - historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.SenderType {
		case conversation.SenderUser:
			history = append(history, schema.UserMessage(msg.TextContent))
		case conversation.SenderAvatar:
			history = append(history, schema.AssistantMessage(msg.TextContent, nil))
		}
	}

	return history
}
