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

var _ repository.ProfileRepository = (*PostgresProfileRepo)(nil)

type PostgresProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *PostgresProfileRepo {
	return &PostgresProfileRepo{pool: pool}
}

// profileColumns maps editable fields to active_users columns.
var profileColumns = map[model.ProfileField]string{
	model.FieldFullName:   "full_name",
	model.FieldSchool:     "school",
	model.FieldPhone:      "phone",
	model.FieldMentorName: "mentor_name",
	model.FieldMentorPost: "mentor_post",
}

func (r *PostgresProfileRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID int64) (*model.Profile, error) {
	const q = `
SELECT u.user_id, u.nickname, a.full_name, a.school, a.phone, a.mail,
       a.mentor_name, a.mentor_post, a.theme, a.registered_at
  FROM users u
  JOIN active_users a ON a.user_id = u.user_id
 WHERE u.user_id = $1 AND u.reg_status;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	var p model.Profile
	err = ex.QueryRow(ctx, q, userID).Scan(&p.UserID, &p.Nickname, &p.FullName, &p.School, &p.Phone, &p.Mail,
		&p.MentorName, &p.MentorPost, &p.Theme, &p.RegisteredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindByUserID profile: %w", err)
	}
	return &p, nil
}

// Register writes the account row and the profile. Without a transaction
// handle it opens its own, so the two rows are always written together.
func (r *PostgresProfileRepo) Register(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	if tx == nil {
		return r.pool.BeginFunc(ctx, func(t pgx.Tx) error { return r.register(ctx, t, p) })
	}
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	return r.register(ctx, ex, p)
}

func (r *PostgresProfileRepo) register(ctx context.Context, ex executor, p *model.Profile) error {
	const upsertUser = `
INSERT INTO users (user_id, nickname, reg_status)
VALUES ($1, $2, TRUE)
ON CONFLICT (user_id) DO UPDATE
  SET nickname = EXCLUDED.nickname, reg_status = TRUE;`
	const upsertProfile = `
INSERT INTO active_users (user_id, full_name, school, phone, mail, mentor_name, mentor_post, theme, registered_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (user_id) DO UPDATE
  SET full_name   = EXCLUDED.full_name,
      school      = EXCLUDED.school,
      phone       = EXCLUDED.phone,
      mail        = EXCLUDED.mail,
      mentor_name = EXCLUDED.mentor_name,
      mentor_post = EXCLUDED.mentor_post;`
	if _, err := ex.Exec(ctx, upsertUser, p.UserID, p.Nickname); err != nil {
		return fmt.Errorf("Register user: %w", err)
	}
	theme := p.Theme
	if theme == "" {
		theme = model.DefaultTheme
	}
	_, err := ex.Exec(ctx, upsertProfile, p.UserID, p.FullName, p.School, p.Phone, p.Mail,
		p.MentorName, p.MentorPost, theme, p.RegisteredAt)
	if err != nil {
		return fmt.Errorf("Register profile: %w", err)
	}
	return nil
}

func (r *PostgresProfileRepo) UpdateField(ctx context.Context, tx repository.Tx, userID int64, field model.ProfileField, value string) error {
	col, ok := profileColumns[field]
	if !ok {
		return fmt.Errorf("%w: field %q", domain.ErrInvalidArgument, field)
	}
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, `UPDATE active_users SET `+col+` = $2 WHERE user_id = $1;`, userID, value)
	if err != nil {
		return fmt.Errorf("UpdateField %s: %w", field, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresProfileRepo) ListUserIDs(ctx context.Context, tx repository.Tx) ([]int64, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `SELECT user_id FROM users WHERE reg_status ORDER BY user_id;`)
	if err != nil {
		return nil, fmt.Errorf("ListUserIDs: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
