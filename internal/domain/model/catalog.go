package model

import "time"

type Category struct {
	ID    int
	Title string
}

// Theme is a contest topic. CategoryTitle is filled by reads that join the category.
type Theme struct {
	ID            int
	Title         string
	Technique     string
	CategoryID    int
	CategoryTitle string
}

// Label is what gets stored as a team's work theme.
func (t *Theme) Label() string { return t.Title + " " + t.Technique }

type Material struct {
	ID    int
	Title string
	Link  string
}

type News struct {
	ID          int
	Text        string
	Image       string
	PublishedAt time.Time
}
