package usecase

import (
	"strconv"

	"telegram-contest-bot/internal/domain/model"
	"telegram-contest-bot/internal/domain/ports/adapter"
	"telegram-contest-bot/internal/pager"
)

func (b *Bot) menuKeyboard() *adapter.ReplyMarkup {
	return &adapter.ReplyMarkup{Buttons: [][]adapter.Button{
		{{Text: b.t.T("menu.news")}, {Text: b.t.T("menu.materials")}},
		{{Text: b.t.T("menu.theme")}, {Text: b.t.T("menu.work")}},
		{{Text: b.t.T("menu.profile")}},
	}}
}

func (b *Bot) registerKeyboard() *adapter.ReplyMarkup {
	return &adapter.ReplyMarkup{Buttons: [][]adapter.Button{{{Text: b.t.T("menu.register")}}}}
}

func removeKeyboard() *adapter.ReplyMarkup { return &adapter.ReplyMarkup{Remove: true} }

// inline builds an inline keyboard, one row per slice.
func inline(rows ...[]adapter.Button) *adapter.ReplyMarkup {
	var kept [][]adapter.Button
	for _, r := range rows {
		if len(r) > 0 {
			kept = append(kept, r)
		}
	}
	return &adapter.ReplyMarkup{IsInline: true, Buttons: kept}
}

func cb(text, data string) adapter.Button { return adapter.Button{Text: text, Data: data} }

func (b *Bot) roleKeyboard() *adapter.ReplyMarkup {
	return inline(
		[]adapter.Button{cb(b.t.T("reg.role_teacher"), cbRolePrefix+string(model.MentorTeacher))},
		[]adapter.Button{cb(b.t.T("reg.role_parent"), cbRolePrefix+string(model.MentorParent))},
		[]adapter.Button{cb(b.t.T("reg.role_other"), cbRolePrefix+string(model.MentorOther))},
	)
}

func (b *Bot) verifyKeyboard() *adapter.ReplyMarkup {
	return inline([]adapter.Button{
		cb(b.t.T("reg.btn_resend"), cbMailResend),
		cb(b.t.T("reg.btn_change_mail"), cbMailChange),
	})
}

func (b *Bot) editFieldsKeyboard() *adapter.ReplyMarkup {
	rows := make([][]adapter.Button, 0, len(model.EditableFields)+1)
	for _, f := range model.EditableFields {
		rows = append(rows, []adapter.Button{cb(b.t.T("edit.field."+string(f)), cbEditPrefix+string(f))})
	}
	rows = append(rows, []adapter.Button{cb(b.t.T("edit.btn_cancel"), cbEditCancel)})
	return inline(rows...)
}

func pageData(kind pager.Kind, action string) string {
	return cbPagePrefix + string(kind) + ":" + action
}

// navRow renders back / page / next controls for a pager position. label is
// the human page number.
func (b *Bot) navRow(kind pager.Kind, nav pager.Nav, label int) []adapter.Button {
	var row []adapter.Button
	if nav.HasPrev {
		row = append(row, cb(b.t.T("pager.back"), pageData(kind, "back")))
	}
	row = append(row, cb(b.t.T("pager.page", label), pageData(kind, "here")))
	if nav.HasNext {
		row = append(row, cb(b.t.T("pager.next"), pageData(kind, "next")))
	}
	return row
}

func chunk(buttons []adapter.Button, size int) [][]adapter.Button {
	var rows [][]adapter.Button
	for len(buttons) > size {
		rows = append(rows, buttons[:size:size])
		buttons = buttons[size:]
	}
	if len(buttons) > 0 {
		rows = append(rows, buttons)
	}
	return rows
}

func itoa(n int) string { return strconv.Itoa(n) }
