//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"telegram-contest-bot/internal/domain"
	"telegram-contest-bot/internal/domain/model"
	"telegram-contest-bot/internal/domain/ports/adapter"
	"telegram-contest-bot/internal/domain/ports/repository"
	"telegram-contest-bot/internal/verification"
)

// =============================
// Adapters
// =============================

// ---- Mock TelegramBotAdapter ----

type MockTelegramBot struct {
	mu   sync.Mutex
	Sent []adapter.SendMessageParams

	SendMessageFunc func(ctx context.Context, params adapter.SendMessageParams) error
}

var _ adapter.TelegramBotAdapter = (*MockTelegramBot)(nil)

func (m *MockTelegramBot) SendMessage(ctx context.Context, params adapter.SendMessageParams) error {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, params)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, params)
	return nil
}

// ---- Mock Mailer ----

type MockMailer struct {
	mu   sync.Mutex
	Sent []adapter.MailMessage

	SendFunc func(ctx context.Context, msg adapter.MailMessage) error
}

var _ adapter.Mailer = (*MockMailer)(nil)

func (m *MockMailer) Send(ctx context.Context, msg adapter.MailMessage) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, msg)
	return nil
}

func (m *MockMailer) Last() (adapter.MailMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return adapter.MailMessage{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}

// ---- Mock verification.Registry ----

type MockTokens struct {
	IssueFunc  func(ctx context.Context, userID int64) (string, error)
	VerifyFunc func(ctx context.Context, userID int64, code string) (verification.Result, error)
}

var _ verification.Registry = (*MockTokens)(nil)

func (m *MockTokens) Issue(ctx context.Context, userID int64) (string, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, userID)
	}
	return "code", nil
}

func (m *MockTokens) Verify(ctx context.Context, userID int64, code string) (verification.Result, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, userID, code)
	}
	return verification.Missing, nil
}

// =============================
// Repositories
// =============================

// ---- Mock ProfileRepository ----

type MockProfileRepo struct {
	mu   sync.Mutex
	data map[int64]*model.Profile

	FindByUserIDFunc func(ctx context.Context, tx repository.Tx, userID int64) (*model.Profile, error)
	RegisterFunc     func(ctx context.Context, tx repository.Tx, p *model.Profile) error
	UpdateFieldFunc  func(ctx context.Context, tx repository.Tx, userID int64, field model.ProfileField, value string) error
}

var _ repository.ProfileRepository = (*MockProfileRepo)(nil)

func NewMockProfileRepo() *MockProfileRepo {
	return &MockProfileRepo{data: map[int64]*model.Profile{}}
}

func (r *MockProfileRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID int64) (*model.Profile, error) {
	if r.FindByUserIDFunc != nil {
		return r.FindByUserIDFunc(ctx, tx, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockProfileRepo) Register(ctx context.Context, tx repository.Tx, p *model.Profile) error {
	if r.RegisterFunc != nil {
		if err := r.RegisterFunc(ctx, tx, p); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.UserID] = &cp
	return nil
}

func (r *MockProfileRepo) UpdateField(ctx context.Context, tx repository.Tx, userID int64, field model.ProfileField, value string) error {
	if r.UpdateFieldFunc != nil {
		return r.UpdateFieldFunc(ctx, tx, userID, field, value)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[userID]
	if !ok {
		return domain.ErrNotFound
	}
	switch field {
	case model.FieldFullName:
		p.FullName = value
	case model.FieldSchool:
		p.School = value
	case model.FieldPhone:
		p.Phone = value
	case model.FieldMentorName:
		p.MentorName = value
	case model.FieldMentorPost:
		p.MentorPost = value
	default:
		return domain.ErrInvalidArgument
	}
	return nil
}

func (r *MockProfileRepo) ListUserIDs(ctx context.Context, tx repository.Tx) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.data))
	for id := range r.data {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *MockProfileRepo) Get(userID int64) (*model.Profile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[userID]
	return p, ok
}

// ---- Mock CatalogRepository ----

type MockCatalogRepo struct {
	mu         sync.Mutex
	Themes     []*model.Theme
	Materials  []*model.Material
	News       []*model.News
	Categories map[int]string

	NewsPageFunc    func(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.News, error)
	CreateThemeFunc func(ctx context.Context, tx repository.Tx, t *model.Theme) (int, error)
}

var _ repository.CatalogRepository = (*MockCatalogRepo)(nil)

func NewMockCatalogRepo() *MockCatalogRepo {
	return &MockCatalogRepo{Categories: map[int]string{}}
}

func (r *MockCatalogRepo) ThemesByCategory(ctx context.Context, tx repository.Tx, categoryID int) ([]*model.Theme, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Theme
	for _, t := range r.Themes {
		if t.CategoryID == categoryID {
			cp := *t
			cp.CategoryTitle = r.Categories[categoryID]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockCatalogRepo) ThemeByID(ctx context.Context, tx repository.Tx, id int) (*model.Theme, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.Themes {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockCatalogRepo) CreateTheme(ctx context.Context, tx repository.Tx, t *model.Theme) (int, error) {
	if r.CreateThemeFunc != nil {
		return r.CreateThemeFunc(ctx, tx, t)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	cp.ID = len(r.Themes) + 1
	r.Themes = append(r.Themes, &cp)
	return cp.ID, nil
}

func (r *MockCatalogRepo) MaterialsPage(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.Material, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return window(r.Materials, offset, limit), nil
}

func (r *MockCatalogRepo) NewsPage(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.News, error) {
	if r.NewsPageFunc != nil {
		return r.NewsPageFunc(ctx, tx, offset, limit)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return window(r.News, offset, limit), nil
}

func (r *MockCatalogRepo) SaveCategory(ctx context.Context, tx repository.Tx, c *model.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Categories[c.ID] = c.Title
	return nil
}

func (r *MockCatalogRepo) SaveMaterial(ctx context.Context, tx repository.Tx, m *model.Material) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	cp.ID = len(r.Materials) + 1
	r.Materials = append(r.Materials, &cp)
	return cp.ID, nil
}

func (r *MockCatalogRepo) SaveNews(ctx context.Context, tx repository.Tx, n *model.News) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *n
	cp.ID = len(r.News) + 1
	r.News = append(r.News, &cp)
	return cp.ID, nil
}

func window[T any](items []T, offset, limit int) []T {
	if offset < 0 || offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return append([]T(nil), items[offset:end]...)
}

// ---- Mock TeamRepository ----

type MockTeamRepo struct {
	mu      sync.Mutex
	teams   map[int64]*model.TeamInfo
	members map[int64]int64

	UpdateWorkThemeFunc func(ctx context.Context, tx repository.Tx, teamID int64, theme string) error
}

var _ repository.TeamRepository = (*MockTeamRepo)(nil)

func NewMockTeamRepo() *MockTeamRepo {
	return &MockTeamRepo{teams: map[int64]*model.TeamInfo{}, members: map[int64]int64{}}
}

func (r *MockTeamRepo) FindByMember(ctx context.Context, tx repository.Tx, userID int64) (*model.TeamInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.members[userID]
	if !ok {
		return nil, domain.ErrNoTeam
	}
	cp := *r.teams[id]
	return &cp, nil
}

func (r *MockTeamRepo) UpdateWorkTheme(ctx context.Context, tx repository.Tx, teamID int64, theme string) error {
	if r.UpdateWorkThemeFunc != nil {
		return r.UpdateWorkThemeFunc(ctx, tx, teamID, theme)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[teamID]
	if !ok {
		return domain.ErrNotFound
	}
	t.WorkTheme = theme
	return nil
}

func (r *MockTeamRepo) UpdateWorkLink(ctx context.Context, tx repository.Tx, teamID int64, link string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[teamID]
	if !ok {
		return domain.ErrNotFound
	}
	t.WorkLink = link
	return nil
}

func (r *MockTeamRepo) CreateTeam(ctx context.Context, tx repository.Tx, name string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := int64(len(r.teams) + 1)
	r.teams[id] = &model.TeamInfo{TeamID: id, Name: name}
	return id, nil
}

func (r *MockTeamRepo) AddMember(ctx context.Context, tx repository.Tx, teamID, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[teamID]
	if !ok {
		return domain.ErrNotFound
	}
	r.members[userID] = teamID
	t.ParticipantsCount++
	return nil
}

func (r *MockTeamRepo) Team(id int64) model.TeamInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.teams[id]
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	mu    sync.Mutex
	Calls int

	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
