//go:build !integration

package conversation_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"telegram-contest-bot/internal/conversation"
	"telegram-contest-bot/internal/domain"
	"telegram-contest-bot/internal/domain/ports/adapter"
)

var (
	stIdle  = conversation.S("main", "idle")
	stName  = conversation.S("form", "name")
	stDone  = conversation.S("form", "done")
	stCount = conversation.S("main", "count")
)

type recordingBot struct {
	mu   sync.Mutex
	sent []adapter.SendMessageParams
	err  error
}

func (b *recordingBot) SendMessage(_ context.Context, p adapter.SendMessageParams) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, p)
	return b.err
}

type failingStore struct {
	*conversation.MemorySessionStore
	loadErr error
	saveErr error
}

func (f *failingStore) Load(ctx context.Context, id int64) (*conversation.Session, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.MemorySessionStore.Load(ctx, id)
}

func (f *failingStore) Save(ctx context.Context, s *conversation.Session) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemorySessionStore.Save(ctx, s)
}

func newTestEngine(t *testing.T, store conversation.SessionStore, bot adapter.TelegramBotAdapter) *conversation.Engine {
	t.Helper()
	reg := conversation.NewRegistry(stIdle, stName, stDone, stCount)
	e, err := conversation.NewEngine(reg, store, conversation.Options{
		Initial:     stIdle,
		FailureText: "failure",
		Bot:         bot,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestEngineRejectsUnregisteredInitial(t *testing.T) {
	reg := conversation.NewRegistry(stIdle)
	_, err := conversation.NewEngine(reg, conversation.NewMemorySessionStore(), conversation.Options{Initial: stName})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestEngineRegisterValidatesGuards(t *testing.T) {
	e := newTestEngine(t, conversation.NewMemorySessionStore(), nil)
	h := func(context.Context, *conversation.Input) (conversation.Outcome, error) {
		return conversation.Stay(), nil
	}

	cases := []conversation.Transition{
		{Name: "", State: conversation.AnyState(), Event: conversation.AnyText(), Handler: h},
		{Name: "no-handler", State: conversation.AnyState(), Event: conversation.AnyText()},
		{Name: "unknown-state", State: conversation.InState(conversation.S("x", "y")), Event: conversation.AnyText(), Handler: h},
		{Name: "unknown-group", State: conversation.InGroup("nope"), Event: conversation.AnyText(), Handler: h},
	}
	for _, tr := range cases {
		if err := e.Register(tr); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("%q: expected ErrInvalidArgument, got %v", tr.Name, err)
		}
	}
}

func TestEngineTransitionsAndScratch(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, conversation.NewMemorySessionStore(), nil)
	e.MustRegister(
		conversation.Transition{
			Name: "start", State: conversation.AnyState(), Event: conversation.Command("start"),
			Handler: func(context.Context, *conversation.Input) (conversation.Outcome, error) {
				return conversation.Goto(stName, conversation.Say("name?", nil)).ClearScratch().With("step", "1"), nil
			},
		},
		conversation.Transition{
			Name: "name", State: conversation.InState(stName), Event: conversation.AnyText(),
			Handler: func(_ context.Context, in *conversation.Input) (conversation.Outcome, error) {
				if in.Scratch.Value("step") != "1" {
					t.Errorf("scratch not carried: %v", in.Scratch.Keys())
				}
				return conversation.Goto(stDone).With("name", in.Event.Payload), nil
			},
		},
	)

	res, err := e.Dispatch(ctx, 7, conversation.TextEvent("/start"))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !res.Matched || res.From != stIdle || res.To != stName || len(res.Replies) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	res, _ = e.Dispatch(ctx, 7, conversation.TextEvent("Ivan"))
	if res.To != stDone || res.Transition != "name" {
		t.Fatalf("unexpected result: %+v", res)
	}

	sess, err := e.Session(ctx, 7)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if sess.State != stDone || sess.Scratch.Value("name") != "Ivan" || sess.Scratch.Value("step") != "1" {
		t.Fatalf("unexpected session: %+v %v", sess.State, sess.Scratch.Keys())
	}

	// restart clears the bag
	_, _ = e.Dispatch(ctx, 7, conversation.TextEvent("/start"))
	sess, _ = e.Session(ctx, 7)
	if sess.Scratch.Len() != 1 {
		t.Fatalf("scratch not cleared: %v", sess.Scratch.Keys())
	}
}

func TestEngineFirstMatchWins(t *testing.T) {
	e := newTestEngine(t, conversation.NewMemorySessionStore(), nil)
	var hit string
	mk := func(name string) conversation.Handler {
		return func(context.Context, *conversation.Input) (conversation.Outcome, error) {
			hit = name
			return conversation.Stay(), nil
		}
	}
	e.MustRegister(
		conversation.Transition{Name: "cancel", State: conversation.AnyState(), Event: conversation.TextEquals("отмена"), Handler: mk("cancel")},
		conversation.Transition{Name: "catch-all", State: conversation.AnyState(), Event: conversation.AnyText(), Handler: mk("catch-all")},
	)
	_, _ = e.Dispatch(context.Background(), 1, conversation.TextEvent("Отмена"))
	if hit != "cancel" {
		t.Fatalf("expected first registered transition, got %q", hit)
	}
	_, _ = e.Dispatch(context.Background(), 1, conversation.TextEvent("hello"))
	if hit != "catch-all" {
		t.Fatalf("got %q", hit)
	}
}

func TestEngineUnmatchedEventIsDropped(t *testing.T) {
	bot := &recordingBot{}
	e := newTestEngine(t, conversation.NewMemorySessionStore(), bot)
	e.MustRegister(conversation.Transition{
		Name: "only-callbacks", State: conversation.AnyState(), Event: conversation.AnyCallback(),
		Handler: func(context.Context, *conversation.Input) (conversation.Outcome, error) {
			return conversation.Goto(stDone), nil
		},
	})

	res, err := e.Handle(context.Background(), 3, conversation.TextEvent("hi"))
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Matched || res.To != stIdle || len(res.Replies) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(bot.sent) != 0 {
		t.Fatalf("unmatched event produced output: %+v", bot.sent)
	}
}

func TestEngineFailuresLeaveStateUnchanged(t *testing.T) {
	boom := errors.New("store down")
	cases := []struct {
		name    string
		handler conversation.Handler
		wantErr error
	}{
		{
			name: "handler error",
			handler: func(context.Context, *conversation.Input) (conversation.Outcome, error) {
				return conversation.Goto(stDone), boom
			},
			wantErr: boom,
		},
		{
			name: "handler panic",
			handler: func(context.Context, *conversation.Input) (conversation.Outcome, error) {
				var m map[string]int
				m["x"] = 1
				return conversation.Goto(stDone), nil
			},
			wantErr: domain.ErrHandlerPanic,
		},
		{
			name: "unregistered next state",
			handler: func(context.Context, *conversation.Input) (conversation.Outcome, error) {
				return conversation.Goto(conversation.S("form", "ghost")), nil
			},
			wantErr: domain.ErrUnregisteredState,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			bot := &recordingBot{}
			e := newTestEngine(t, conversation.NewMemorySessionStore(), bot)
			e.MustRegister(
				conversation.Transition{
					Name: "enter", State: conversation.InState(stIdle), Event: conversation.Command("go"),
					Handler: func(context.Context, *conversation.Input) (conversation.Outcome, error) {
						return conversation.Goto(stName).With("kept", "yes"), nil
					},
				},
				conversation.Transition{
					Name: "step", State: conversation.InState(stName), Event: conversation.AnyText(),
					Handler: func(ctx context.Context, in *conversation.Input) (conversation.Outcome, error) {
						in.Scratch.Set("leak", "1")
						return tc.handler(ctx, in)
					},
				},
			)
			_, _ = e.Dispatch(ctx, 9, conversation.TextEvent("/go"))

			res, err := e.Handle(ctx, 9, conversation.TextEvent("anything"))
			if err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if !errors.Is(res.Err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, res.Err)
			}
			if res.To != stName {
				t.Fatalf("state advanced to %s", res.To)
			}
			if len(bot.sent) != 1 || bot.sent[0].Text != "failure" || bot.sent[0].ChatID != 9 {
				t.Fatalf("expected one failure reply, got %+v", bot.sent)
			}
			sess, _ := e.Session(ctx, 9)
			if sess.State != stName || sess.Scratch.Value("kept") != "yes" {
				t.Fatalf("session changed: %s %v", sess.State, sess.Scratch.Keys())
			}
			if _, ok := sess.Scratch.Get("leak"); ok {
				t.Fatal("handler mutated the stored scratch directly")
			}
		})
	}
}

func TestEngineStoreFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("redis down")
	store := &failingStore{MemorySessionStore: conversation.NewMemorySessionStore()}
	e := newTestEngine(t, store, nil)
	e.MustRegister(conversation.Transition{
		Name: "go", State: conversation.AnyState(), Event: conversation.AnyText(),
		Handler: func(context.Context, *conversation.Input) (conversation.Outcome, error) {
			return conversation.Goto(stDone, conversation.Say("ok", nil)), nil
		},
	})

	store.saveErr = boom
	res, _ := e.Dispatch(ctx, 5, conversation.TextEvent("x"))
	if !errors.Is(res.Err, boom) || res.To != stIdle || res.Replies[0].Text != "failure" {
		t.Fatalf("save failure not surfaced: %+v", res)
	}

	store.saveErr = nil
	store.loadErr = boom
	res, _ = e.Dispatch(ctx, 5, conversation.TextEvent("x"))
	if !errors.Is(res.Err, boom) || res.Matched {
		t.Fatalf("load failure not surfaced: %+v", res)
	}
}

func TestEngineResetsUnknownStoredState(t *testing.T) {
	ctx := context.Background()
	store := conversation.NewMemorySessionStore()
	_ = store.Save(ctx, &conversation.Session{UserID: 4, State: conversation.S("legacy", "step"), Scratch: conversation.NewScratch()})

	e := newTestEngine(t, store, nil)
	sess, err := e.Session(ctx, 4)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if sess.State != stIdle {
		t.Fatalf("expected reset to initial, got %s", sess.State)
	}
}

func TestEngineSerialisesEventsPerUser(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, conversation.NewMemorySessionStore(), nil)
	e.MustRegister(conversation.Transition{
		Name: "inc", State: conversation.AnyState(), Event: conversation.TextEquals("inc"),
		Handler: func(_ context.Context, in *conversation.Input) (conversation.Outcome, error) {
			n, _ := in.Scratch.Int("n")
			time.Sleep(time.Millisecond) // widen the read-modify-write window
			return conversation.Goto(stCount).With("n", strconv.Itoa(n+1)), nil
		},
	})

	const events = 40
	var wg sync.WaitGroup
	for i := 0; i < events; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.Dispatch(ctx, 11, conversation.TextEvent("inc"))
		}()
		// a second user must progress independently
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.Dispatch(ctx, 12, conversation.TextEvent("inc"))
		}()
	}
	wg.Wait()

	for _, id := range []int64{11, 12} {
		sess, _ := e.Session(ctx, id)
		if n, _ := sess.Scratch.Int("n"); n != events {
			t.Fatalf("user %d: lost updates, n=%d", id, n)
		}
	}
}

func TestEngineHandleEditsCallbackMessage(t *testing.T) {
	bot := &recordingBot{}
	e := newTestEngine(t, conversation.NewMemorySessionStore(), bot)
	e.MustRegister(conversation.Transition{
		Name: "page", State: conversation.AnyState(), Event: conversation.CallbackPrefix("page:"),
		Handler: func(context.Context, *conversation.Input) (conversation.Outcome, error) {
			edit := conversation.Say("page 2", &adapter.ReplyMarkup{IsInline: true})
			edit.Edit = true
			return conversation.Stay(edit, conversation.Say("extra", nil)), nil
		},
	})

	if _, err := e.Handle(context.Background(), 8, conversation.CallbackEvent("page:next", 555)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(bot.sent) != 2 {
		t.Fatalf("expected 2 sends, got %d", len(bot.sent))
	}
	if bot.sent[0].EditMessageID != 555 || bot.sent[1].EditMessageID != 0 {
		t.Fatalf("edit target wrong: %+v", bot.sent)
	}

	bot.err = errors.New("telegram down")
	if _, err := e.Handle(context.Background(), 8, conversation.CallbackEvent("page:next", 555)); err == nil {
		t.Fatal("expected delivery error")
	}
}
