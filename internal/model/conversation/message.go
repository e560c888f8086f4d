package conversation

import "time"

// SenderType identifies who authored a message.
type SenderType string

const (
	SenderUser   SenderType = "user"
	SenderAvatar SenderType = "avatar"
)

// Message is a single turn in a conversation.
type Message struct {
	ID          int64      `json:"id,omitempty"`
	SenderType  SenderType `json:"sender_type"`
	TextContent string     `json:"text_content"`
	CreatedAt   time.Time  `json:"created_at"`
}

// SendMessageRequest is the body of POST /conversations/{id}/send_message/.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// Exchange is the atomic pair returned for one sent message.
type Exchange struct {
	UserMessage   Message `json:"user_message"`
	AvatarMessage Message `json:"avatar_message"`
}
