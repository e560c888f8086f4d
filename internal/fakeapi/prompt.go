package fakeapi

import (
	"fmt"
	"strings"

	"github.com/memoria-app/memoria/internal/model/avatar"
)

var contextRules = []string{
	"Stay in character as the person described above; never mention being an AI model",
	"Speak warmly and personally, the way this person would talk to someone they love",
	"Draw on the description for memories and habits, but do not invent painful events",
	"Keep replies short and conversational, a few sentences at most",
}

// BuildSystemPrompt turns an avatar profile into the system prompt.
func BuildSystemPrompt(av avatar.Avatar) string {
	relationship := strings.TrimSpace(av.Relationship)
	if relationship == "" {
		relationship = "someone close to the user"
	}

	description := strings.TrimSpace(av.Description)
	if description == "" {
		description = "No further details were shared."
	}

	return fmt.Sprintf(`You are %s, %s.

Profile:
- Name: %s
- Relationship to the user: %s
- Gender: %s

About %s:
%s

Conversation rules:
- %s`,
		av.Name,
		relationship,
		av.Name,
		relationship,
		genderLabel(av.Gender),
		av.Name,
		description,
		strings.Join(contextRules, "\n- "),
	)
}

func genderLabel(g avatar.Gender) string {
	switch g {
	case avatar.GenderMale:
		return "male"
	case avatar.GenderFemale:
		return "female"
	default:
		return "unspecified"
	}
}
