package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"telegram-contest-bot/internal/infra/metrics"
	"telegram-contest-bot/internal/verification"

	"github.com/go-redis/redis/v8"
)

var _ verification.Registry = (*TokenRegistry)(nil)

// TokenRegistry stores one verification code per user in a hash holding the
// code digest and the issue time. Verification runs as a single script so
// concurrent attempts cannot both consume a code.
type TokenRegistry struct {
	cli *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewTokenRegistry(c *Client, ttl time.Duration) *TokenRegistry {
	if ttl <= 0 {
		ttl = verification.DefaultTTL
	}
	return &TokenRegistry{cli: c.cli, ttl: ttl, now: time.Now}
}

func (r *TokenRegistry) key(userID int64) string {
	return fmt.Sprintf("verify_code:%d", userID)
}

func digest(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func (r *TokenRegistry) Issue(ctx context.Context, userID int64) (string, error) {
	code, err := verification.NewCode()
	if err != nil {
		return "", err
	}
	key := r.key(userID)
	_, err = r.cli.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, "digest", digest(code), "issued", r.now().UnixMilli())
		// kept past the TTL so a late attempt still reports expiry
		p.PExpire(ctx, key, 2*r.ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}
	metrics.IncTokenIssued()
	return code, nil
}

// Script results map onto verification.Result.
var luaVerify = redis.NewScript(`
local v = redis.call("HMGET", KEYS[1], "digest", "issued")
if not v[1] or not v[2] then
	return 0
end
if tonumber(ARGV[2]) - tonumber(v[2]) > tonumber(ARGV[3]) then
	redis.call("DEL", KEYS[1])
	return 1
end
if v[1] ~= ARGV[1] then
	return 2
end
redis.call("DEL", KEYS[1])
return 3`)

func (r *TokenRegistry) Verify(ctx context.Context, userID int64, code string) (verification.Result, error) {
	n, err := luaVerify.Run(ctx, r.cli, []string{r.key(userID)},
		digest(strings.TrimSpace(code)), r.now().UnixMilli(), r.ttl.Milliseconds()).Int()
	if err != nil {
		return verification.Missing, fmt.Errorf("verify code: %w", err)
	}
	res := verification.Result(n)
	metrics.IncTokenCheck(res.String())
	return res, nil
}
