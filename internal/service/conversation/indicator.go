package conversation

// Indicator is the typing affordance shown while a reply is on its way.
type Indicator struct {
	Visible bool
	Label   string
}

// Indicator derives the typing state from the pending flag.
func (s *Session) Indicator() Indicator {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pending {
		return Indicator{}
	}

	name := "Avatar"
	if s.avatar != nil && s.avatar.Name != "" {
		name = s.avatar.Name
	}
	return Indicator{Visible: true, Label: name + " is typing…"}
}
