package usecase

import (
	"context"
	"strings"

	"telegram-contest-bot/internal/conversation"
	"telegram-contest-bot/internal/domain/model"
	"telegram-contest-bot/internal/domain/ports/adapter"
	"telegram-contest-bot/internal/domain/ports/repository"
	"telegram-contest-bot/internal/infra/logging"
	"telegram-contest-bot/internal/pager"
)

// browser is the type-erased view of a pager.Browser used by the shared
// page callbacks.
type browser interface {
	Kind() pager.Kind
	Open(ctx context.Context, userID int64, position int) pager.View
	Resume(ctx context.Context, userID int64) pager.View
	Advance(ctx context.Context, userID int64, dir pager.Direction) pager.View
}

func (b *Bot) initBrowsers(cursors pager.CursorStore) {
	empty, failed := b.t.T("pager.empty"), b.t.T("pager.error")
	size := b.flow.PageSize

	// one news item per page, newest first
	b.news = pager.NewBrowser(pager.Collection[*model.News]{
		Kind: pager.KindNews,
		Fetch: func(ctx context.Context, pos int) ([]*model.News, error) {
			return b.catalog.NewsPage(ctx, repository.NoTX, pos, 1)
		},
		Format:    b.formatNews,
		Controls:  b.newsControls,
		EmptyText: empty,
		ErrorText: failed,
	}, cursors, b.flow.CursorTTL, b.log)

	b.materials = pager.NewBrowser(pager.Collection[*model.Material]{
		Kind: pager.KindMaterials,
		Fetch: func(ctx context.Context, pos int) ([]*model.Material, error) {
			return b.catalog.MaterialsPage(ctx, repository.NoTX, pos*size, size)
		},
		Format:    b.formatMaterials,
		Controls:  b.materialControls,
		EmptyText: empty,
		ErrorText: failed,
	}, cursors, b.flow.CursorTTL, b.log)

	// themes are paged by category id, which starts at 1
	b.themes = pager.NewBrowser(pager.Collection[*model.Theme]{
		Kind:  pager.KindThemes,
		Start: 1,
		Min:   1,
		Fetch: func(ctx context.Context, pos int) ([]*model.Theme, error) {
			return b.catalog.ThemesByCategory(ctx, repository.NoTX, pos)
		},
		Format:    b.formatThemes,
		Controls:  b.themeControls,
		EmptyText: empty,
		ErrorText: failed,
	}, cursors, b.flow.CursorTTL, b.log)

	b.browsers = map[pager.Kind]browser{
		pager.KindNews:      b.news,
		pager.KindMaterials: b.materials,
		pager.KindThemes:    b.themes,
	}
}

func (b *Bot) formatNews(items []*model.News) string {
	n := items[0]
	text := b.t.T("news.item", n.PublishedAt.Format("02.01.2006"), n.Text)
	if n.Image != "" {
		text += "\n\n" + b.t.T("news.image", n.Image)
	}
	return text
}

func (b *Bot) newsControls(_ []*model.News, nav pager.Nav) *adapter.ReplyMarkup {
	rows := [][]adapter.Button{b.navRow(pager.KindNews, nav, nav.Position+1)}
	if b.flow.NewsChannelURL != "" {
		rows = append(rows, []adapter.Button{{Text: b.t.T("news.btn_channel"), URL: b.flow.NewsChannelURL}})
	}
	return inline(rows...)
}

func (b *Bot) formatMaterials(items []*model.Material) string {
	lines := make([]string, 0, len(items))
	for _, m := range items {
		lines = append(lines, b.t.T("materials.item", m.ID, m.Title))
	}
	return strings.Join(lines, "\n\n")
}

func (b *Bot) materialControls(items []*model.Material, nav pager.Nav) *adapter.ReplyMarkup {
	rows := make([][]adapter.Button, 0, len(items)+1)
	for _, m := range items {
		if m.Link != "" {
			rows = append(rows, []adapter.Button{{Text: b.t.T("materials.btn", m.ID), URL: m.Link}})
			continue
		}
		rows = append(rows, []adapter.Button{cb(b.t.T("materials.btn_nolink", m.ID), cbMaterialNoLink+itoa(m.ID))})
	}
	rows = append(rows, b.navRow(pager.KindMaterials, nav, nav.Position+1))
	return inline(rows...)
}

func (b *Bot) formatThemes(items []*model.Theme) string {
	var sb strings.Builder
	sb.WriteString(b.t.T("themes.header", items[0].CategoryTitle))
	for i, th := range items {
		sb.WriteString("\n\n")
		sb.WriteString(b.t.T("themes.item", i+1, th.Title, th.Technique))
	}
	return sb.String()
}

// themeControls offers choice buttons only once the contest is live.
func (b *Bot) themeControls(items []*model.Theme, nav pager.Nav) *adapter.ReplyMarkup {
	var rows [][]adapter.Button
	if b.flow.Production {
		choose := make([]adapter.Button, 0, len(items))
		for i, th := range items {
			choose = append(choose, cb(b.t.T("themes.btn_choose", i+1), cbThemeChoose+itoa(th.ID)))
		}
		rows = append(rows, chunk(choose, 3)...)
	}
	rows = append(rows, b.navRow(pager.KindThemes, nav, nav.Position))
	if b.flow.Production {
		rows = append(rows, []adapter.Button{cb(b.t.T("themes.btn_custom"), cbThemeCustom)})
	}
	return inline(rows...)
}

// viewReply turns a page into a reply. Rendered pages replace the message that
// carried the navigation button; notices are sent as new messages.
func viewReply(v pager.View, edit bool) conversation.Reply {
	r := say(v.Text, v.Markup)
	r.Edit = edit && v.Status == pager.Rendered
	return r
}

func (b *Bot) openNews(ctx context.Context, in *conversation.Input) (conversation.Outcome, error) {
	return b.openPage(ctx, in, b.news, 0)
}

func (b *Bot) openMaterials(ctx context.Context, in *conversation.Input) (conversation.Outcome, error) {
	return b.openPage(ctx, in, b.materials, 0)
}

func (b *Bot) openThemes(ctx context.Context, in *conversation.Input) (conversation.Outcome, error) {
	return b.openPage(ctx, in, b.themes, 1)
}

func (b *Bot) openPage(ctx context.Context, in *conversation.Input, br browser, pos int) (conversation.Outcome, error) {
	v := br.Open(ctx, in.UserID, pos)
	return conversation.Goto(StateAfterRegistration, viewReply(v, false)).ClearScratch(), nil
}

func (b *Bot) browseTransitions() []conversation.Transition {
	var ts []conversation.Transition
	ts = append(ts, each("browse.page", registered, conversation.CallbackPrefix(cbPagePrefix), b.turnPage)...)
	ts = append(ts, each("browse.material_no_link", registered, conversation.CallbackPrefix(cbMaterialNoLink),
		func(context.Context, *conversation.Input) (conversation.Outcome, error) {
			return conversation.Stay(say(b.t.T("materials.no_link"), nil)), nil
		})...)
	return ts
}

// turnPage handles "pg:<kind>:<action>" buttons.
func (b *Bot) turnPage(ctx context.Context, in *conversation.Input) (conversation.Outcome, error) {
	kind, action, ok := strings.Cut(strings.TrimPrefix(in.Event.Payload, cbPagePrefix), ":")
	br, known := b.browsers[pager.Kind(kind)]
	if !ok || !known {
		logging.With(ctx, b.log).Warn().Str("payload", in.Event.Payload).Msg("unknown page callback")
		return conversation.Stay(), nil
	}

	var v pager.View
	switch action {
	case "next":
		v = br.Advance(ctx, in.UserID, pager.Forward)
	case "back":
		v = br.Advance(ctx, in.UserID, pager.Backward)
	case "here":
		v = br.Resume(ctx, in.UserID)
	default:
		logging.With(ctx, b.log).Warn().Str("payload", in.Event.Payload).Msg("unknown page action")
		return conversation.Stay(), nil
	}
	return conversation.Stay(viewReply(v, true)), nil
}
