package middleware

import (
	"context"
	"sync"
	"time"
)

// maxCachedTokens bounds the cache so unauthenticated callers spraying
// random tokens cannot grow it: failures are never cached, and the map is
// swept and, if still full, reset before admitting a new entry.
const maxCachedTokens = 10000

type cachedToken struct {
	claims  *Claims
	staleAt time.Time
}

// CachingValidator memoizes successful validations keyed by the raw token,
// so hot console traffic does not re-verify the same bearer token on every
// request. A token revoked at the provider may still be honored for at most
// ttl after its last successful validation.
type CachingValidator struct {
	inner TokenValidator
	ttl   time.Duration
	now   func() time.Time

	mu     sync.Mutex
	tokens map[string]cachedToken
}

func NewCachingValidator(inner TokenValidator, ttl time.Duration) *CachingValidator {
	return &CachingValidator{
		inner:  inner,
		ttl:    ttl,
		now:    time.Now,
		tokens: make(map[string]cachedToken),
	}
}

func (v *CachingValidator) Validate(ctx context.Context, token string) (*Claims, error) {
	now := v.now()

	v.mu.Lock()
	if entry, ok := v.tokens[token]; ok && now.Before(entry.staleAt) {
		v.mu.Unlock()
		return entry.claims, nil
	}
	v.mu.Unlock()

	claims, err := v.inner.Validate(ctx, token)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	if len(v.tokens) >= maxCachedTokens {
		for k, entry := range v.tokens {
			if !now.Before(entry.staleAt) {
				delete(v.tokens, k)
			}
		}
		if len(v.tokens) >= maxCachedTokens {
			v.tokens = make(map[string]cachedToken)
		}
	}
	v.tokens[token] = cachedToken{claims: claims, staleAt: now.Add(v.ttl)}
	v.mu.Unlock()

	return claims, nil
}
