package middleware

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingValidator records how often each token reaches the inner validator.
type countingValidator struct {
	calls map[string]int
	fail  bool
}

func (v *countingValidator) Validate(_ context.Context, token string) (*Claims, error) {
	if v.calls == nil {
		v.calls = make(map[string]int)
	}
	v.calls[token]++
	if v.fail {
		return nil, fmt.Errorf("bad token")
	}
	return &Claims{Subject: "sub-" + token}, nil
}

func TestCachingValidator_ReusesVerifiedTokens(t *testing.T) {
	inner := &countingValidator{}
	v := NewCachingValidator(inner, time.Minute)

	for range 3 {
		claims, err := v.Validate(context.Background(), "tok-a")
		require.NoError(t, err)
		assert.Equal(t, "sub-tok-a", claims.Subject)
	}
	claims, err := v.Validate(context.Background(), "tok-b")
	require.NoError(t, err)
	assert.Equal(t, "sub-tok-b", claims.Subject)

	assert.Equal(t, 1, inner.calls["tok-a"], "repeat validations served from cache")
	assert.Equal(t, 1, inner.calls["tok-b"])
}

func TestCachingValidator_RevalidatesAfterTTL(t *testing.T) {
	inner := &countingValidator{}
	v := NewCachingValidator(inner, time.Minute)

	clock := time.Now()
	v.now = func() time.Time { return clock }

	_, err := v.Validate(context.Background(), "tok")
	require.NoError(t, err)

	clock = clock.Add(30 * time.Second)
	_, err = v.Validate(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls["tok"], "still inside the TTL")

	clock = clock.Add(31 * time.Second)
	_, err = v.Validate(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls["tok"], "stale entry must be re-verified")
}

func TestCachingValidator_NeverCachesFailures(t *testing.T) {
	inner := &countingValidator{fail: true}
	v := NewCachingValidator(inner, time.Minute)

	for range 2 {
		_, err := v.Validate(context.Background(), "garbage")
		require.Error(t, err)
	}
	assert.Equal(t, 2, inner.calls["garbage"], "failed validations bypass the cache")
}
