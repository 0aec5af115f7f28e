package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the claim only if the token still owns it.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ApprovalGuard implements ports.ApprovalGuard with SET NX claims.
type ApprovalGuard struct {
	client *goredis.Client
	prefix string
}

func NewApprovalGuard(client *goredis.Client) *ApprovalGuard {
	return &ApprovalGuard{
		client: client,
		prefix: "purchase-approval:",
	}
}

// Claim atomically takes the approval slot of a purchase under a fresh
// owner token. Returns false if another worker holds it.
func (g *ApprovalGuard) Claim(ctx context.Context, purchaseID uuid.UUID, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	result, err := g.client.SetArgs(ctx, g.prefix+purchaseID.String(), token, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis approval claim: %w", err)
	}
	if result != "OK" {
		return "", false, nil
	}
	return token, true, nil
}

// Release gives the slot back. A claim that expired and was taken by
// someone else is left alone.
func (g *ApprovalGuard) Release(ctx context.Context, purchaseID uuid.UUID, token string) error {
	if err := releaseScript.Run(ctx, g.client, []string{g.prefix + purchaseID.String()}, token).Err(); err != nil {
		return fmt.Errorf("redis approval release: %w", err)
	}
	return nil
}
