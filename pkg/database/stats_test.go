package database

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsSnapshot(t *testing.T) {
	stats := &Stats{}

	stats.RecordCreated()
	stats.RecordCreated()
	stats.RecordClosed()
	stats.RecordError()

	snapshot := stats.Snapshot()
	assert.Equal(t, int64(2), snapshot.Created)
	assert.Equal(t, int64(1), snapshot.Closed)
	assert.Equal(t, int64(1), snapshot.Errors)
}

func TestStatsConcurrentRecording(t *testing.T) {
	stats := &Stats{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stats.RecordCreated()
			stats.RecordClosed()
		}()
	}
	wg.Wait()

	snapshot := stats.Snapshot()
	assert.Equal(t, int64(50), snapshot.Created)
	assert.Equal(t, int64(50), snapshot.Closed)
}
