package model

// TeamInfo is the team card shown to a participant.
type TeamInfo struct {
	TeamID            int64
	Name              string
	WorkTheme         string
	WorkLink          string
	ParticipantsCount int
}
