//go:build !integration

package conversation_test

import (
	"regexp"
	"testing"

	"telegram-contest-bot/internal/conversation"
)

func TestTextEventNormalises(t *testing.T) {
	ev := conversation.TextEvent("  Зарегистрирова\u0438\u0306ся \n")
	if ev.Kind != conversation.KindText {
		t.Fatalf("kind: %v", ev.Kind)
	}
	if ev.Payload != "Зарегистрирова\u0439ся" {
		t.Fatalf("payload: %q", ev.Payload)
	}
}

func TestEventGuards(t *testing.T) {
	text := conversation.TextEvent
	cb := func(d string) conversation.Event { return conversation.CallbackEvent(d, 10) }

	cases := []struct {
		name  string
		guard conversation.EventGuard
		ev    conversation.Event
		want  bool
	}{
		{"equals folds case", conversation.TextEquals("отмена"), text("ОТМЕНА"), true},
		{"equals any of", conversation.TextEquals("новости", "news"), text("News"), true},
		{"equals rejects callback", conversation.TextEquals("отмена"), cb("отмена"), false},
		{"prefix", conversation.TextPrefix("мой"), text("Мой профиль"), true},
		{"matches", conversation.TextMatches(regexp.MustCompile(`^\d{6}$`)), text("123456"), true},
		{"command plain", conversation.Command("start"), text("/start"), true},
		{"command with bot and args", conversation.Command("start"), text("/start@contest_bot ref"), true},
		{"command other", conversation.Command("start"), text("/menu"), false},
		{"command needs slash", conversation.Command("start"), text("start"), false},
		{"callback equals", conversation.CallbackEquals("reg:yes"), cb("reg:yes"), true},
		{"callback equals rejects text", conversation.CallbackEquals("reg:yes"), text("reg:yes"), false},
		{"callback prefix", conversation.CallbackPrefix("role:"), cb("role:parent"), true},
		{"any callback", conversation.AnyCallback(), cb("x"), true},
		{"any text", conversation.AnyText(), cb("x"), false},
		{"any of", conversation.AnyOf(conversation.CallbackEquals("a"), conversation.TextEquals("b")), text("B"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.guard(tc.ev); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}
