package verification

import (
	"context"
	"strings"
	"sync"
	"time"

	"telegram-contest-bot/internal/infra/metrics"
)

// DefaultTTL is how long an issued code stays usable, counted from issue time.
const DefaultTTL = 600 * time.Second

// Result is the outcome of one verification attempt.
type Result int

const (
	// Missing: no code was issued, or it was already used.
	Missing Result = iota
	// Expired: the code outlived the TTL and has been discarded.
	Expired
	// Mismatch: a live code exists but differs; it stays usable.
	Mismatch
	// Matched: the code was right and has been consumed.
	Matched
)

func (r Result) String() string {
	switch r {
	case Missing:
		return "missing"
	case Expired:
		return "expired"
	case Mismatch:
		return "mismatch"
	case Matched:
		return "matched"
	default:
		return "unknown"
	}
}

// OK reports whether the attempt succeeded.
func (r Result) OK() bool { return r == Matched }

// Registry holds at most one live code per user. Issuing overwrites the
// previous code. Matched and expired codes are consumed by Verify; a
// mismatched live code is kept so the user can retry until it expires.
type Registry interface {
	Issue(ctx context.Context, userID int64) (string, error)
	Verify(ctx context.Context, userID int64, code string) (Result, error)
}

type token struct {
	code     string
	issuedAt time.Time
}

// MemoryRegistry is a process-local Registry.
type MemoryRegistry struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	tokens map[int64]token
}

func NewMemoryRegistry(ttl time.Duration) *MemoryRegistry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryRegistry{ttl: ttl, now: time.Now, tokens: make(map[int64]token)}
}

func (r *MemoryRegistry) Issue(_ context.Context, userID int64) (string, error) {
	code, err := NewCode()
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	r.tokens[userID] = token{code: code, issuedAt: r.now()}
	r.mu.Unlock()
	metrics.IncTokenIssued()
	return code, nil
}

func (r *MemoryRegistry) Verify(_ context.Context, userID int64, code string) (Result, error) {
	res := r.verify(userID, strings.TrimSpace(code))
	metrics.IncTokenCheck(res.String())
	return res, nil
}

func (r *MemoryRegistry) verify(userID int64, code string) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	tok, ok := r.tokens[userID]
	if !ok {
		return Missing
	}
	if r.now().Sub(tok.issuedAt) > r.ttl {
		delete(r.tokens, userID)
		return Expired
	}
	if !SameCode(tok.code, code) {
		return Mismatch
	}
	delete(r.tokens, userID)
	return Matched
}

// Check is the boolean form of Verify.
func (r *MemoryRegistry) Check(userID int64, code string) bool {
	res, _ := r.Verify(context.Background(), userID, code)
	return res.OK()
}

// Sweep drops expired codes and returns how many were removed.
func (r *MemoryRegistry) Sweep(_ context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	n := 0
	for id, tok := range r.tokens {
		if now.Sub(tok.issuedAt) > r.ttl {
			delete(r.tokens, id)
			n++
		}
	}
	return n
}

func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}
