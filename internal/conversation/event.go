package conversation

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// EventKind tags an Event as plain text or a button press.
type EventKind int

const (
	KindText EventKind = iota + 1
	KindCallback
)

func (k EventKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindCallback:
		return "callback"
	default:
		return "unknown"
	}
}

// Event is one inbound user event. Payload is the message text for KindText
// and the callback data for KindCallback.
type Event struct {
	Kind    EventKind
	Payload string
	// MessageID is the message the pressed button belongs to; zero for text.
	MessageID int
	Username  string
}

// TextEvent builds a text event. The payload is NFC-normalised and trimmed.
func TextEvent(text string) Event {
	return Event{Kind: KindText, Payload: strings.TrimSpace(norm.NFC.String(text))}
}

func CallbackEvent(data string, messageID int) Event {
	return Event{Kind: KindCallback, Payload: data, MessageID: messageID}
}

// EventGuard decides whether a transition accepts an event.
type EventGuard func(Event) bool

func fold(s string) string {
	// cases.Caser keeps state; one per call keeps guards safe for concurrent use.
	return cases.Fold().String(s)
}

// TextEquals matches text equal to any of words, ignoring case.
func TextEquals(words ...string) EventGuard {
	folded := make([]string, len(words))
	for i, w := range words {
		folded[i] = fold(strings.TrimSpace(w))
	}
	return func(ev Event) bool {
		if ev.Kind != KindText {
			return false
		}
		got := fold(ev.Payload)
		for _, w := range folded {
			if got == w {
				return true
			}
		}
		return false
	}
}

// TextPrefix matches text starting with prefix, ignoring case.
func TextPrefix(prefix string) EventGuard {
	p := fold(prefix)
	return func(ev Event) bool {
		return ev.Kind == KindText && strings.HasPrefix(fold(ev.Payload), p)
	}
}

func TextMatches(re *regexp.Regexp) EventGuard {
	return func(ev Event) bool {
		return ev.Kind == KindText && re.MatchString(ev.Payload)
	}
}

func AnyText() EventGuard {
	return func(ev Event) bool { return ev.Kind == KindText }
}

// Command matches "/name", "/name@bot" and "/name args".
func Command(name string) EventGuard {
	want := "/" + strings.ToLower(name)
	return func(ev Event) bool {
		if ev.Kind != KindText || !strings.HasPrefix(ev.Payload, "/") {
			return false
		}
		head := ev.Payload
		if i := strings.IndexAny(head, " \n"); i >= 0 {
			head = head[:i]
		}
		if i := strings.IndexByte(head, '@'); i >= 0 {
			head = head[:i]
		}
		return strings.ToLower(head) == want
	}
}

func CallbackEquals(data string) EventGuard {
	return func(ev Event) bool { return ev.Kind == KindCallback && ev.Payload == data }
}

func CallbackPrefix(prefix string) EventGuard {
	return func(ev Event) bool {
		return ev.Kind == KindCallback && strings.HasPrefix(ev.Payload, prefix)
	}
}

func AnyCallback() EventGuard {
	return func(ev Event) bool { return ev.Kind == KindCallback }
}

// AnyOf matches when at least one guard does.
func AnyOf(guards ...EventGuard) EventGuard {
	return func(ev Event) bool {
		for _, g := range guards {
			if g(ev) {
				return true
			}
		}
		return false
	}
}
