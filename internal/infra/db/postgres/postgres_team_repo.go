package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-contest-bot/internal/domain"
	"telegram-contest-bot/internal/domain/model"
	"telegram-contest-bot/internal/domain/ports/repository"
)

var _ repository.TeamRepository = (*PostgresTeamRepo)(nil)

type PostgresTeamRepo struct {
	pool *pgxpool.Pool
}

func NewTeamRepo(pool *pgxpool.Pool) *PostgresTeamRepo {
	return &PostgresTeamRepo{pool: pool}
}

func (r *PostgresTeamRepo) FindByMember(ctx context.Context, tx repository.Tx, userID int64) (*model.TeamInfo, error) {
	const q = `
SELECT t.id, t.name, t.work_theme, t.work_link,
       (SELECT COUNT(*) FROM team_members c WHERE c.team_id = t.id)
  FROM team_members m
  JOIN teams t ON t.id = m.team_id
 WHERE m.user_id = $1;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	var ti model.TeamInfo
	err = ex.QueryRow(ctx, q, userID).Scan(&ti.TeamID, &ti.Name, &ti.WorkTheme, &ti.WorkLink, &ti.ParticipantsCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNoTeam
	}
	if err != nil {
		return nil, fmt.Errorf("FindByMember: %w", err)
	}
	return &ti, nil
}

// UpdateWorkTheme sets the team theme and mirrors it into the members' profiles.
func (r *PostgresTeamRepo) UpdateWorkTheme(ctx context.Context, tx repository.Tx, teamID int64, theme string) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `UPDATE teams SET work_theme = $2 WHERE id = $1;`, teamID, theme)
	if err != nil {
		return fmt.Errorf("UpdateWorkTheme: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	_, err = ex.Exec(ctx, `
UPDATE active_users SET theme = $2
 WHERE user_id IN (SELECT user_id FROM team_members WHERE team_id = $1);`, teamID, theme)
	if err != nil {
		return fmt.Errorf("UpdateWorkTheme profiles: %w", err)
	}
	return nil
}

func (r *PostgresTeamRepo) UpdateWorkLink(ctx context.Context, tx repository.Tx, teamID int64, link string) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `UPDATE teams SET work_link = $2 WHERE id = $1;`, teamID, link)
	if err != nil {
		return fmt.Errorf("UpdateWorkLink: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresTeamRepo) CreateTeam(ctx context.Context, tx repository.Tx, name string) (int64, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := ex.QueryRow(ctx, `INSERT INTO teams (name) VALUES ($1) RETURNING id;`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("CreateTeam: %w", err)
	}
	return id, nil
}

// AddMember moves userID into teamID; a user belongs to at most one team.
func (r *PostgresTeamRepo) AddMember(ctx context.Context, tx repository.Tx, teamID, userID int64) error {
	const q = `
INSERT INTO team_members (user_id, team_id) VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE SET team_id = EXCLUDED.team_id;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, q, userID, teamID); err != nil {
		return fmt.Errorf("AddMember: %w", err)
	}
	return nil
}
