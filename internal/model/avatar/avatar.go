package avatar

import (
	"encoding/json"
	"fmt"
	"time"
)

// Gender of the persona an avatar represents.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Valid reports whether g is one of the accepted values.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	default:
		return false
	}
}

// ParseGender normalises user input, defaulting to GenderOther when empty.
func ParseGender(raw string) (Gender, error) {
	if raw == "" {
		return GenderOther, nil
	}
	g := Gender(raw)
	if !g.Valid() {
		return "", fmt.Errorf("invalid gender %q: want male, female or other", raw)
	}
	return g, nil
}

// Status tracks the two-phase creation of an avatar.
type Status string

const (
	StatusDraft Status = "draft"
	StatusReady Status = "ready"
)

// UnmarshalJSON accepts the legacy "creating" value as a draft.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw {
	case "creating", "":
		*s = StatusDraft
	default:
		*s = Status(raw)
	}
	return nil
}

// Avatar is the persona resource a user converses with.
type Avatar struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Relationship string    `json:"relationship"`
	Description  string    `json:"description"`
	Gender       Gender    `json:"gender"`
	ProfileImage string    `json:"profile_image,omitempty"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Ready reports whether the avatar has been finalized. Draft avatars are never
// usable for chat.
func (a Avatar) Ready() bool {
	return a.Status == StatusReady
}

// Fields are the form values sent when creating an avatar.
type Fields struct {
	Name         string
	Relationship string
	Description  string
	Gender       Gender
}

// Image is an optional profile picture attached to a create request.
type Image struct {
	Filename string
	Data     []byte
}

// FinalizeResponse is returned by POST /avatars/{id}/finalize/. Some backends
// return the avatar directly, others wrap it with a message.
type FinalizeResponse struct {
	Message string  `json:"message,omitempty"`
	Avatar  *Avatar `json:"avatar,omitempty"`
}
