package fakeapi

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/memoria-app/memoria/internal/model/avatar"
	"github.com/memoria-app/memoria/internal/model/conversation"
)

type recordingModel struct {
	reply    string
	err      error
	received []*schema.Message
}

func (m *recordingModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.received = input
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *recordingModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

var grandpa = avatar.Avatar{
	ID:           42,
	Name:         "Grandpa John",
	Relationship: "grandfather",
	Description:  "Retired fisherman who hums old sea shanties.",
	Gender:       avatar.GenderMale,
	Status:       avatar.StatusReady,
}

func TestModelReplierBuildsPrompt(t *testing.T) {
	ctx := context.Background()
	fake := &recordingModel{reply: "  Ahoy, kiddo!  "}

	replier, err := NewModelReplier(ctx, fake, nil)
	if err != nil {
		t.Fatalf("NewModelReplier err: %v", err)
	}

	history := []conversation.Message{
		{SenderType: conversation.SenderUser, TextContent: "Hi Grandpa"},
		{SenderType: conversation.SenderAvatar, TextContent: "Hello there"},
	}
	got, err := replier.Reply(ctx, grandpa, history, "I miss you")
	if err != nil {
		t.Fatalf("Reply err: %v", err)
	}
	if got != "Ahoy, kiddo!" {
		t.Fatalf("unexpected reply %q", got)
	}

	if len(fake.received) != 4 {
		t.Fatalf("expected system + 2 history + query, got %d messages", len(fake.received))
	}
	if fake.received[0].Role != schema.System || !strings.Contains(fake.received[0].Content, "Grandpa John") {
		t.Fatalf("unexpected system message: %+v", fake.received[0])
	}
	if fake.received[2].Role != schema.Assistant {
		t.Fatalf("avatar history should map to assistant, got %s", fake.received[2].Role)
	}
	last := fake.received[3]
	if last.Role != schema.User || last.Content != "I miss you" {
		t.Fatalf("unexpected query message: %+v", last)
	}
}

func TestModelReplierErrors(t *testing.T) {
	ctx := context.Background()

	failing, err := NewModelReplier(ctx, &recordingModel{err: errors.New("quota exceeded")}, nil)
	if err != nil {
		t.Fatalf("NewModelReplier err: %v", err)
	}
	if _, err := failing.Reply(ctx, grandpa, nil, "hello"); err == nil {
		t.Fatal("expected model error to surface")
	}

	empty, err := NewModelReplier(ctx, &recordingModel{reply: "   "}, nil)
	if err != nil {
		t.Fatalf("NewModelReplier err: %v", err)
	}
	if _, err := empty.Reply(ctx, grandpa, nil, "hello"); err == nil {
		t.Fatal("expected empty reply to be rejected")
	}
}

func TestBuildHistoryMessagesKeepsRecentTurns(t *testing.T) {
	var messages []conversation.Message
	for i := 0; i < 15; i++ {
		messages = append(messages, conversation.Message{SenderType: conversation.SenderUser, TextContent: string(rune('a' + i))})
	}

	history := buildHistoryMessages(messages)
	if len(history) != historyLimit {
		t.Fatalf("expected %d messages, got %d", historyLimit, len(history))
	}
	if history[0].Content != "f" {
		t.Fatalf("expected oldest kept message to be f, got %s", history[0].Content)
	}
}

func TestBuildSystemPromptDefaults(t *testing.T) {
	prompt := BuildSystemPrompt(avatar.Avatar{Name: "Nana"})
	if !strings.Contains(prompt, "someone close to the user") {
		t.Fatalf("missing relationship fallback: %s", prompt)
	}
	if !strings.Contains(prompt, "unspecified") {
		t.Fatalf("missing gender fallback: %s", prompt)
	}
}

func TestEchoReplier(t *testing.T) {
	got, err := EchoReplier{}.Reply(context.Background(), grandpa, nil, " hello ")
	if err != nil {
		t.Fatalf("Reply err: %v", err)
	}
	if got != `Grandpa John: I hear you. You said "hello".` {
		t.Fatalf("unexpected echo %q", got)
	}
}
