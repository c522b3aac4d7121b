package conversation

import "telegram-contest-bot/internal/domain/ports/adapter"

// Reply is one outbound message produced by a handler.
type Reply struct {
	Text      string
	Markup    *adapter.ReplyMarkup
	ParseMode string
	// Edit asks to replace the message whose button triggered the event.
	Edit bool
}

func Say(text string, markup *adapter.ReplyMarkup) Reply {
	return Reply{Text: text, Markup: markup}
}

// Outcome is what a handler decides: the next state, the scratch changes and
// the replies. Build it with Stay or Goto.
type Outcome struct {
	next    State
	clear   bool
	ops     []scratchOp
	Replies []Reply
}

// Stay keeps the current state.
func Stay(replies ...Reply) Outcome { return Outcome{Replies: replies} }

func Goto(next State, replies ...Reply) Outcome {
	return Outcome{next: next, Replies: replies}
}

func (o Outcome) With(key, value string) Outcome {
	o.ops = append(o.ops[:len(o.ops):len(o.ops)], scratchOp{key: key, value: value})
	return o
}

func (o Outcome) Without(key string) Outcome {
	o.ops = append(o.ops[:len(o.ops):len(o.ops)], scratchOp{key: key, delete: true})
	return o
}

// ClearScratch wipes the bag before the outcome's own upserts are applied.
func (o Outcome) ClearScratch() Outcome {
	o.clear = true
	return o
}

func (o Outcome) Say(replies ...Reply) Outcome {
	o.Replies = append(o.Replies[:len(o.Replies):len(o.Replies)], replies...)
	return o
}

// Next reports the requested state; ok is false for Stay.
func (o Outcome) Next() (State, bool) { return o.next, !o.next.IsZero() }

func (o Outcome) Clears() bool { return o.clear }

func (o Outcome) applyTo(s *Scratch) {
	if o.clear {
		s.Clear()
	}
	for _, op := range o.ops {
		op.apply(s)
	}
}

// Preview applies the scratch changes to a copy of base. Intended for tests.
func (o Outcome) Preview(base *Scratch) *Scratch {
	c := base.Clone()
	o.applyTo(c)
	return c
}
