package session

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderLifecycle(t *testing.T) {
	r := NewRecorder(t.TempDir())

	require.NoError(t, r.Start())
	assert.True(t, r.Recording())
	assert.ErrorIs(t, r.Start(), ErrAlreadyRecording)

	require.NoError(t, r.WriteChunk([]byte("abcd")))
	require.NoError(t, r.WriteChunk([]byte("ef")))

	sum, ok := r.Stop()
	require.True(t, ok)
	assert.Equal(t, int64(6), sum.Bytes)
	assert.False(t, r.Recording())

	data, err := os.ReadFile(sum.Path)
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(data))
}

func TestRecorderStopIdempotent(t *testing.T) {
	r := NewRecorder(t.TempDir())

	_, ok := r.Stop()
	assert.False(t, ok, "stopping an idle recorder is a no-op")

	require.NoError(t, r.Start())
	_, ok = r.Stop()
	assert.True(t, ok)
	_, ok = r.Stop()
	assert.False(t, ok)
}

func TestRecorderDropsChunksWhenIdle(t *testing.T) {
	r := NewRecorder(t.TempDir())
	assert.NoError(t, r.WriteChunk([]byte("late")), "capture callbacks outlive Stop")
}

func TestRecorderDuration(t *testing.T) {
	r := NewRecorder(t.TempDir())
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	clock := base
	r.now = func() time.Time { return clock }

	require.NoError(t, r.Start())
	clock = base.Add(90 * time.Second)
	assert.Equal(t, 90*time.Second, r.Elapsed())

	sum, ok := r.Stop()
	require.True(t, ok)
	assert.Equal(t, 90*time.Second, sum.Duration)
	assert.Equal(t, time.Duration(0), r.Elapsed())
}
