package rule

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator_ValidFormat(t *testing.T) {
	id := UUIDv7Generator{}.Generate()

	assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`, id)

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestUUIDv7Generator_Concurrent(t *testing.T) {
	gen := UUIDv7Generator{}
	const goroutines = 100

	ids := make(chan string, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- gen.Generate()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		require.False(t, seen[id], "duplicate id generated")
		seen[id] = true
	}
	assert.Len(t, seen, goroutines)
}

func TestFixedGenerator_Sequential(t *testing.T) {
	gen := NewFixedGenerator("entry-1", "event-1", "event-2")

	assert.Equal(t, "entry-1", gen.Generate())
	assert.Equal(t, "event-1", gen.Generate())
	assert.Equal(t, "event-2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() }, "should panic when all ids exhausted")
}

func TestFixedGenerator_Empty(t *testing.T) {
	gen := NewFixedGenerator()
	assert.Panics(t, func() { gen.Generate() })
}

func TestQuota(t *testing.T) {
	q := newQuota(2)
	require.NoError(t, q.check("a"))
	require.NoError(t, q.check("b"))

	err := q.check("c")
	require.Error(t, err)
	assert.True(t, IsEntriesExceededError(err))

	var ee *EntriesExceededError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "c", ee.Rule)
	assert.Equal(t, 3, ee.Entries)
	assert.Equal(t, 2, ee.Limit)
	assert.Equal(t, "rule c exceeded max entries quota: 3 entries > 2 limit", err.Error())
}
