//go:build !integration

package model_test

import (
	"errors"
	"testing"

	"telegram-contest-bot/internal/domain"
	"telegram-contest-bot/internal/domain/model"
)

func TestNewProfile(t *testing.T) {
	t.Run("valid profile gets default theme", func(t *testing.T) {
		p, err := model.NewProfile(42, "nick", "Ivanov Ivan Ivanovich", "School 1", "+79991234567", "a@b.ru", "Petrov Petr Petrovich", "Teacher")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Theme != model.DefaultTheme {
			t.Errorf("expected default theme, got %q", p.Theme)
		}
		if p.RegisteredAt.IsZero() {
			t.Error("expected RegisteredAt to be set")
		}
	})

	t.Run("missing user id", func(t *testing.T) {
		_, err := model.NewProfile(0, "", "a b c", "s", "p", "m", "x y z", "")
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("blank required field", func(t *testing.T) {
		_, err := model.NewProfile(1, "", "a b c", "  ", "p", "m", "x y z", "")
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("mentor post may be empty", func(t *testing.T) {
		if _, err := model.NewProfile(1, "", "a b c", "s", "p", "m", "x y z", ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestThemeLabel(t *testing.T) {
	th := &model.Theme{Title: "Бурлаки", Technique: "3D"}
	if got := th.Label(); got != "Бурлаки 3D" {
		t.Errorf("got %q", got)
	}
}
