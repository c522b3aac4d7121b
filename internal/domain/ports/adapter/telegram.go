package adapter

import "context"

// Button is one keyboard button. Data is the callback payload of an inline
// button; URL turns an inline button into a link. Reply-keyboard buttons only use Text.
type Button struct {
	Text string
	Data string
	URL  string
}

// ReplyMarkup is a keyboard attached to a message.
// IsInline selects an inline keyboard over a reply keyboard; Remove hides the
// reply keyboard and ignores Buttons.
type ReplyMarkup struct {
	Buttons  [][]Button
	IsInline bool
	Remove   bool
}

type SendMessageParams struct {
	ChatID      int64
	Text        string
	ParseMode   string
	ReplyMarkup *ReplyMarkup
	// EditMessageID, when non-zero, edits that message in place instead of sending a new one.
	EditMessageID int
}

type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, params SendMessageParams) error
}
