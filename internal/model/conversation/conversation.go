package conversation

import "time"

// Conversation is the single thread linking one user to one avatar.
type Conversation struct {
	ID         int64     `json:"id"`
	AvatarID   int64     `json:"avatar"`
	AvatarName string    `json:"avatar_name,omitempty"`
	Title      string    `json:"title,omitempty"`
	Messages   []Message `json:"messages"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateRequest is the body of POST /conversations/.
type CreateRequest struct {
	AvatarID int64 `json:"avatar"`
}

// FindByAvatar returns the first conversation bound to avatarID.
func FindByAvatar(items []Conversation, avatarID int64) (Conversation, bool) {
	for _, item := range items {
		if item.AvatarID == avatarID {
			return item, true
		}
	}
	return Conversation{}, false
}
