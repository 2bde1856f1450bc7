package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
)

func TestNewID(t *testing.T) {
	t.Run("PrefixIsLowercased", func(t *testing.T) {
		id := NewID("JOB")
		assert.True(t, strings.HasPrefix(id, "job_"))
		_, err := ulid.ParseStrict(strings.TrimPrefix(id, "job_"))
		assert.NoError(t, err)
	})

	t.Run("IDsAreUnique", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			id := NewID("disc")
			assert.False(t, seen[id], "duplicate id generated: %s", id)
			seen[id] = true
		}
	})

	t.Run("EmptyPrefixPanics", func(t *testing.T) {
		assert.Panics(t, func() { NewID("  ") })
	})
}

func TestIsNotFoundError(t *testing.T) {
	assert.False(t, IsNotFoundError(nil))
	assert.True(t, IsNotFoundError(ErrNotFound))
	assert.False(t, IsNotFoundError(assert.AnError))
	assert.True(t, IsNotFoundError(fmt.Errorf("lookup failed: %w", ErrNotFound)))
	assert.True(t, IsNotFoundError(errors.New("persona Not Found")))
}
