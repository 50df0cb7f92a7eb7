package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrAlreadyRecording = errors.New("recording already in progress")

// RecordingSummary describes a finished recording.
type RecordingSummary struct {
	Path     string
	Bytes    int64
	Duration time.Duration
}

// Recorder captures the local video feed to a local webm file. Chunks are
// pushed by the media adapter; recording is a local artifact, nothing is
// uploaded.
type Recorder struct {
	mu        sync.Mutex
	dir       string
	file      *os.File
	path      string
	bytes     int64
	startedAt time.Time
	now       func() time.Time
}

func NewRecorder(dir string) *Recorder {
	return &Recorder{dir: dir, now: time.Now}
}

func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file != nil {
		return ErrAlreadyRecording
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create recording dir: %w", err)
	}
	name := fmt.Sprintf("meetkit-rec-%s.webm", r.now().Format("20060102-150405"))
	path := filepath.Join(r.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create recording file: %w", err)
	}
	r.file = f
	r.path = path
	r.bytes = 0
	r.startedAt = r.now()
	log.Info().Str("module", "session.recorder").Str("path", path).Msg("recording started")
	return nil
}

// WriteChunk appends one captured chunk. Chunks arriving while not recording
// are dropped silently; the capture callback outlives Stop by design.
func (r *Recorder) WriteChunk(chunk []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	n, err := r.file.Write(chunk)
	r.bytes += int64(n)
	if err != nil {
		return fmt.Errorf("write recording chunk: %w", err)
	}
	return nil
}

// Stop finalizes the file. Stopping an idle recorder is a no-op and reports
// false; both the UI action and teardown call this.
func (r *Recorder) Stop() (RecordingSummary, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return RecordingSummary{}, false
	}
	if err := r.file.Close(); err != nil {
		log.Error().Err(err).Str("module", "session.recorder").Msg("close recording file")
	}
	sum := RecordingSummary{
		Path:     r.path,
		Bytes:    r.bytes,
		Duration: r.now().Sub(r.startedAt),
	}
	r.file = nil
	log.Info().Str("module", "session.recorder").Str("path", sum.Path).Int64("bytes", sum.Bytes).Msg("recording stopped")
	return sum, true
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file != nil
}

func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return 0
	}
	return r.now().Sub(r.startedAt)
}
