package ratelimit

import "context"

// RateLimiter throttles Slack posts per destination channel. Slack enforces
// roughly one chat.postMessage per second per channel, so the sender waits on
// the limiter before every post.
type RateLimiter interface {
	Allow(ctx context.Context, channel string) (bool, error)
	Wait(ctx context.Context, channel string) error
}
