package repository

import (
	"context"

	"telegram-contest-bot/internal/domain/model"
)

type TeamRepository interface {
	// FindByMember returns domain.ErrNoTeam when the user belongs to no team.
	FindByMember(ctx context.Context, tx Tx, userID int64) (*model.TeamInfo, error)
	UpdateWorkTheme(ctx context.Context, tx Tx, teamID int64, theme string) error
	UpdateWorkLink(ctx context.Context, tx Tx, teamID int64, link string) error

	CreateTeam(ctx context.Context, tx Tx, name string) (int64, error)
	AddMember(ctx context.Context, tx Tx, teamID, userID int64) error
}
