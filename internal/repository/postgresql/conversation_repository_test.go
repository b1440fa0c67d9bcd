package postgresql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextTimestamp(t *testing.T) {
	base := time.Date(2025, 7, 3, 10, 0, 0, 0, time.UTC)

	t.Run("first message uses clock", func(t *testing.T) {
		got := nextTimestamp(nil, base.Add(123*time.Nanosecond))
		assert.Equal(t, base, got)
	})

	t.Run("clock ahead of last", func(t *testing.T) {
		last := base
		got := nextTimestamp(&last, base.Add(time.Second))
		assert.Equal(t, base.Add(time.Second), got)
	})

	t.Run("same instant is bumped", func(t *testing.T) {
		last := base
		got := nextTimestamp(&last, base)
		assert.Equal(t, base.Add(time.Microsecond), got)
	})

	t.Run("clock behind last is bumped", func(t *testing.T) {
		last := base.Add(time.Minute)
		got := nextTimestamp(&last, base)
		assert.True(t, got.After(last))
	})
}

func TestMigrationNamesOrdered(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.sql", names[0])
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}
