package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowConsumesBurst(t *testing.T) {
	l := New()
	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("k", 5, 1), "request %d should pass", i)
	}
	assert.False(t, l.Allow("k", 5, 1))
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := New()
	assert.True(t, l.Allow("a", 1, 1))
	assert.False(t, l.Allow("a", 1, 1))
	assert.True(t, l.Allow("b", 1, 1))
}
