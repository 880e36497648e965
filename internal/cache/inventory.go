package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix    = "user:%d"
	GroupKeyPrefix   = "group:%s"
	RevokedKeyPrefix = "blacklist:%s"
	PageKeyPrefix    = "page:"
)

const (
	UserTTL  = 5 * time.Minute
	GroupTTL = 10 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func GroupKey(slug string) string {
	return fmt.Sprintf(GroupKeyPrefix, slug)
}

func RevokedKey(jti string) string {
	return fmt.Sprintf(RevokedKeyPrefix, jti)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateGroup(ctx context.Context, slug string) {
	Invalidate(ctx, GroupKey(slug))
}

// RevokeToken blacklists a session token ID until it would have expired anyway.
func RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if client == nil || jti == "" {
		return nil
	}
	if ttl <= 0 {
		return nil
	}
	return client.Set(ctx, RevokedKey(jti), 1, ttl).Err()
}

// IsTokenRevoked reports whether jti was blacklisted by RevokeToken.
// Lookup errors count as not revoked.
func IsTokenRevoked(ctx context.Context, jti string) bool {
	if client == nil || jti == "" {
		return false
	}
	n, err := client.Exists(ctx, RevokedKey(jti)).Result()
	return err == nil && n > 0
}
