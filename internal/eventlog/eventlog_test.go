package eventlog

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bingxTerminal/internal/domain"
)

func TestAppendAndEntries(t *testing.T) {
	log := New()
	assert.Zero(t, log.Len())

	first := log.Append("connected", domain.SeveritySuccess)
	second := log.Append("stop loss hit", domain.SeverityError)

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, first.Timestamp.IsZero())

	entries := log.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "connected", entries[0].Message)
	assert.Equal(t, domain.SeveritySuccess, entries[0].Severity)
	assert.Equal(t, "stop loss hit", entries[1].Message)
	assert.False(t, entries[1].Timestamp.Before(entries[0].Timestamp), "append order preserved")
}

func TestEntriesReturnsCopy(t *testing.T) {
	log := New()
	log.Append("original", domain.SeverityInfo)

	entries := log.Entries()
	entries[0].Message = "mutated"

	assert.Equal(t, "original", log.Entries()[0].Message)
}

func TestConcurrentAppend(t *testing.T) {
	log := New()

	var wg sync.WaitGroup
	const writers = 8
	const perWriter = 50
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				log.Append(fmt.Sprintf("writer %d entry %d", n, j), domain.SeverityInfo)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, writers*perWriter, log.Len())

	seen := make(map[string]bool)
	for _, entry := range log.Entries() {
		assert.False(t, seen[entry.ID], "ids must be unique")
		seen[entry.ID] = true
	}
}
