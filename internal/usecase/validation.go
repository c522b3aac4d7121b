package usecase

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"telegram-contest-bot/internal/domain"
)

// Length limits of free-text answers.
const (
	MaxSchoolLen    = 100
	MaxMentorPost   = 100
	MaxMailLen      = 100
	MaxThemeTitle   = 100
	MaxThemeTechniq = 100
	MaxLinkLen      = 150
)

var (
	fioPartRe = regexp.MustCompile(`^\p{L}+(?:-\p{L}+)?$`)
	phoneRe   = regexp.MustCompile(`^(?:\+7|8)\d{10}$`)
	mailRe    = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	phoneJunk = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// NormalizeFIO accepts "Фамилия Имя Отчество" (hyphenated parts allowed) and
// returns it with single spaces.
func NormalizeFIO(s string) (string, error) {
	parts := strings.Fields(s)
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: full name needs three parts, got %d", domain.ErrInvalidArgument, len(parts))
	}
	for _, p := range parts {
		if !fioPartRe.MatchString(p) {
			return "", fmt.Errorf("%w: %q is not a name", domain.ErrInvalidArgument, p)
		}
	}
	return strings.Join(parts, " "), nil
}

// NormalizePhone strips spaces, dashes and brackets and checks the
// +7XXXXXXXXXX / 8XXXXXXXXXX format.
func NormalizePhone(s string) (string, error) {
	p := phoneJunk.Replace(strings.TrimSpace(s))
	if !phoneRe.MatchString(p) {
		return "", fmt.Errorf("%w: phone %q", domain.ErrInvalidArgument, s)
	}
	return p, nil
}

func NormalizeMail(s string) (string, error) {
	m := strings.TrimSpace(s)
	if len(m) > MaxMailLen || !mailRe.MatchString(m) {
		return "", fmt.Errorf("%w: mail address", domain.ErrInvalidArgument)
	}
	return m, nil
}

// LimitText returns a validator for non-empty text of at most max runes.
func LimitText(max int) func(string) (string, error) {
	return func(s string) (string, error) {
		t := strings.TrimSpace(s)
		if t == "" || utf8.RuneCountInString(t) > max {
			return "", fmt.Errorf("%w: text must be 1..%d characters", domain.ErrInvalidArgument, max)
		}
		return t, nil
	}
}

// NormalizeLink adds https:// when the scheme is missing and checks the result is a web URL.
func NormalizeLink(s string) (string, error) {
	l := strings.TrimSpace(s)
	if l == "" || strings.ContainsAny(l, " \n\t") {
		return "", fmt.Errorf("%w: link", domain.ErrInvalidArgument)
	}
	lower := strings.ToLower(l)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		l = "https://" + l
	}
	u, err := url.Parse(l)
	if err != nil || u.Host == "" || !strings.Contains(u.Host, ".") || len(l) > MaxLinkLen {
		return "", fmt.Errorf("%w: link %q", domain.ErrInvalidArgument, s)
	}
	return l, nil
}
