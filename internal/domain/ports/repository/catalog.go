package repository

import (
	"context"

	"telegram-contest-bot/internal/domain/model"
)

// CatalogRepository reads the contest catalog. Page methods return an empty
// slice past the end.
type CatalogRepository interface {
	ThemesByCategory(ctx context.Context, tx Tx, categoryID int) ([]*model.Theme, error)
	ThemeByID(ctx context.Context, tx Tx, id int) (*model.Theme, error)
	CreateTheme(ctx context.Context, tx Tx, t *model.Theme) (int, error)
	MaterialsPage(ctx context.Context, tx Tx, offset, limit int) ([]*model.Material, error)
	NewsPage(ctx context.Context, tx Tx, offset, limit int) ([]*model.News, error)

	SaveCategory(ctx context.Context, tx Tx, c *model.Category) error
	SaveMaterial(ctx context.Context, tx Tx, m *model.Material) (int, error)
	SaveNews(ctx context.Context, tx Tx, n *model.News) (int, error)
}
