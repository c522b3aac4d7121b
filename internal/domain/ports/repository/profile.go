package repository

import (
	"context"

	"telegram-contest-bot/internal/domain/model"
)

type ProfileRepository interface {
	// FindByUserID returns domain.ErrNotFound when the user never completed registration.
	FindByUserID(ctx context.Context, tx Tx, userID int64) (*model.Profile, error)
	// Register stores the account row and its profile. Calling it twice for the same
	// user overwrites the profile.
	Register(ctx context.Context, tx Tx, p *model.Profile) error
	UpdateField(ctx context.Context, tx Tx, userID int64, field model.ProfileField, value string) error
	ListUserIDs(ctx context.Context, tx Tx) ([]int64, error)
}
