package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckAllowsUpToMax(t *testing.T) {
	l := New(time.Minute, 10)

	for i := 0; i < 10; i++ {
		res := l.Check("sess-1")
		assert.True(t, res.Allowed)
		assert.Equal(t, 9-i, res.Remaining)
	}

	res := l.Check("sess-1")
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Greater(t, res.ResetIn, time.Duration(0))
}

func TestWindowRollsOver(t *testing.T) {
	l := New(time.Minute, 2)
	base := time.Now()
	clock := base
	l.now = func() time.Time { return clock }

	assert.True(t, l.Check("sess-1").Allowed)
	assert.True(t, l.Check("sess-1").Allowed)
	assert.False(t, l.Check("sess-1").Allowed)

	clock = base.Add(61 * time.Second)
	res := l.Check("sess-1")
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(time.Minute, 1)

	assert.True(t, l.Check("sess-1").Allowed)
	assert.False(t, l.Check("sess-1").Allowed)
	assert.True(t, l.Check("sess-2").Allowed)
}

func TestSweep(t *testing.T) {
	l := New(time.Minute, 5)
	base := time.Now()
	clock := base
	l.now = func() time.Time { return clock }

	l.Check("sess-1")
	clock = base.Add(30 * time.Second)
	l.Check("sess-2")

	clock = base.Add(70 * time.Second)
	removed := l.Sweep()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, l.Len())
}
