package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	PostKeyPrefix    = "post:%s"
	ProfileKeyPrefix = "profile:%s"
	FeedKey          = "feed:home"
	RevokedKeyPrefix = "blacklist:%s"
)

const (
	// Posts are immutable once written.
	PostTTL    = 30 * time.Minute
	ProfileTTL = 5 * time.Minute
	FeedTTL    = 30 * time.Second
)

func PostKey(postID string) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func ProfileKey(email string) string {
	return fmt.Sprintf(ProfileKeyPrefix, email)
}

func RevokedKey(jti string) string {
	return fmt.Sprintf(RevokedKeyPrefix, jti)
}

func (c *Cache) InvalidateProfile(ctx context.Context, email string) {
	c.Invalidate(ctx, ProfileKey(email))
}

func (c *Cache) InvalidateFeed(ctx context.Context) {
	c.Invalidate(ctx, FeedKey)
}

// RevokeToken blacklists a token ID until it would have expired anyway.
func (c *Cache) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if !c.enabled() {
		return fmt.Errorf("token revocation requires redis")
	}
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, RevokedKey(jti), "1", ttl).Err()
}

// IsRevoked reports whether jti was revoked. Without Redis nothing is revoked.
func (c *Cache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if !c.enabled() || jti == "" {
		return false, nil
	}
	n, err := c.client.Exists(ctx, RevokedKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
