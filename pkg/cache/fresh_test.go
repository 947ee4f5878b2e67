package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFreshConstructors tests the two entry states
func TestFreshConstructors(t *testing.T) {
	s := Stale("abc")
	assert.False(t, s.IsFresh())
	assert.Equal(t, "abc", s.Value)

	o := Observed("abc")
	assert.True(t, o.IsFresh())
	assert.Equal(t, "abc", o.Value)
}

// TestFreshMark tests re-observation
func TestFreshMark(t *testing.T) {
	s := Stale(42)
	s.MarkFresh()
	assert.True(t, s.IsFresh())
	assert.Equal(t, 42, s.Value)
}
