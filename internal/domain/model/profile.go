package model

import (
	"strings"
	"time"

	"telegram-contest-bot/internal/domain"
)

// MentorRole is the branch discriminator of the mentor step of registration.
type MentorRole string

const (
	MentorTeacher MentorRole = "teacher"
	MentorParent  MentorRole = "parent"
	MentorOther   MentorRole = "other"
)

// ParentGuardianPost is stored as the mentor post when the mentor is a parent.
const ParentGuardianPost = "Родитель/опекун"

// DefaultTheme is what a participant sees before a theme is chosen.
const DefaultTheme = "Не выбрана"

// ProfileField names a user-editable profile column.
type ProfileField string

const (
	FieldFullName   ProfileField = "full_name"
	FieldSchool     ProfileField = "school"
	FieldPhone      ProfileField = "phone"
	FieldMentorName ProfileField = "mentor_name"
	FieldMentorPost ProfileField = "mentor_post"
)

// EditableFields lists fields in the order the edit menu shows them.
var EditableFields = []ProfileField{FieldFullName, FieldSchool, FieldPhone, FieldMentorName, FieldMentorPost}

// Profile is a registered contest participant.
type Profile struct {
	UserID       int64
	Nickname     string
	FullName     string
	School       string
	Phone        string
	Mail         string
	MentorName   string
	MentorPost   string
	Theme        string
	RegisteredAt time.Time
}

func NewProfile(userID int64, nickname, fullName, school, phone, mail, mentorName, mentorPost string) (*Profile, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidArgument
	}
	for _, v := range []string{fullName, school, phone, mail, mentorName} {
		if strings.TrimSpace(v) == "" {
			return nil, domain.ErrInvalidArgument
		}
	}
	return &Profile{
		UserID:       userID,
		Nickname:     nickname,
		FullName:     fullName,
		School:       school,
		Phone:        phone,
		Mail:         mail,
		MentorName:   mentorName,
		MentorPost:   mentorPost,
		Theme:        DefaultTheme,
		RegisteredAt: time.Now(),
	}, nil
}
