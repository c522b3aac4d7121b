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

var _ repository.CatalogRepository = (*PostgresCatalogRepo)(nil)

type PostgresCatalogRepo struct {
	pool *pgxpool.Pool
}

func NewCatalogRepo(pool *pgxpool.Pool) *PostgresCatalogRepo {
	return &PostgresCatalogRepo{pool: pool}
}

func (r *PostgresCatalogRepo) ThemesByCategory(ctx context.Context, tx repository.Tx, categoryID int) ([]*model.Theme, error) {
	const q = `
SELECT t.id, t.title, t.technique, t.category_id, c.title
  FROM theme t
  JOIN category_theme c ON c.id = t.category_id
 WHERE t.category_id = $1
 ORDER BY t.id;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, categoryID)
	if err != nil {
		return nil, fmt.Errorf("ThemesByCategory: %w", err)
	}
	defer rows.Close()
	var out []*model.Theme
	for rows.Next() {
		var t model.Theme
		if err := rows.Scan(&t.ID, &t.Title, &t.Technique, &t.CategoryID, &t.CategoryTitle); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (r *PostgresCatalogRepo) ThemeByID(ctx context.Context, tx repository.Tx, id int) (*model.Theme, error) {
	const q = `
SELECT t.id, t.title, t.technique, t.category_id, c.title
  FROM theme t
  JOIN category_theme c ON c.id = t.category_id
 WHERE t.id = $1;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	var t model.Theme
	err = ex.QueryRow(ctx, q, id).Scan(&t.ID, &t.Title, &t.Technique, &t.CategoryID, &t.CategoryTitle)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ThemeByID: %w", err)
	}
	return &t, nil
}

func (r *PostgresCatalogRepo) CreateTheme(ctx context.Context, tx repository.Tx, t *model.Theme) (int, error) {
	const q = `INSERT INTO theme (title, technique, category_id) VALUES ($1, $2, $3) RETURNING id;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var id int
	if err := ex.QueryRow(ctx, q, t.Title, t.Technique, t.CategoryID).Scan(&id); err != nil {
		return 0, fmt.Errorf("CreateTheme: %w", err)
	}
	return id, nil
}

func (r *PostgresCatalogRepo) MaterialsPage(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.Material, error) {
	const q = `SELECT id, title, link FROM material ORDER BY id OFFSET $1 LIMIT $2;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("MaterialsPage: %w", err)
	}
	defer rows.Close()
	var out []*model.Material
	for rows.Next() {
		var m model.Material
		if err := rows.Scan(&m.ID, &m.Title, &m.Link); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// NewsPage lists news newest first.
func (r *PostgresCatalogRepo) NewsPage(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.News, error) {
	const q = `
SELECT id, text, image, published_at
  FROM news
 ORDER BY published_at DESC, id DESC
OFFSET $1 LIMIT $2;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("NewsPage: %w", err)
	}
	defer rows.Close()
	var out []*model.News
	for rows.Next() {
		var n model.News
		if err := rows.Scan(&n.ID, &n.Text, &n.Image, &n.PublishedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (r *PostgresCatalogRepo) SaveCategory(ctx context.Context, tx repository.Tx, c *model.Category) error {
	const q = `
INSERT INTO category_theme (id, title) VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title;`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, q, c.ID, c.Title); err != nil {
		return fmt.Errorf("SaveCategory: %w", err)
	}
	// explicit ids leave the serial behind
	_, err = ex.Exec(ctx, `SELECT setval(pg_get_serial_sequence('category_theme', 'id'), (SELECT MAX(id) FROM category_theme));`)
	return err
}

func (r *PostgresCatalogRepo) SaveMaterial(ctx context.Context, tx repository.Tx, m *model.Material) (int, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var id int
	err = ex.QueryRow(ctx, `INSERT INTO material (title, link) VALUES ($1, $2) RETURNING id;`, m.Title, m.Link).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("SaveMaterial: %w", err)
	}
	return id, nil
}

func (r *PostgresCatalogRepo) SaveNews(ctx context.Context, tx repository.Tx, n *model.News) (int, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var id int
	err = ex.QueryRow(ctx, `INSERT INTO news (text, image, published_at) VALUES ($1, $2, $3) RETURNING id;`,
		n.Text, n.Image, n.PublishedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("SaveNews: %w", err)
	}
	return id, nil
}
