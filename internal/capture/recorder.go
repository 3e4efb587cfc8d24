package capture

import (
	"errors"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mixcap/mixcap/internal/logging"
	"github.com/mixcap/mixcap/internal/media"
)

// Recorder states.
const (
	recStateInactive uint32 = iota
	recStateRecording
	recStateStopped
)

// defaultTimeslice is how often a recording recorder flushes its pending
// bytes as a chunk.
const defaultTimeslice = time.Second

var errRecorderStarted = errors.New("recorder already started")

// Recorder records one stream at one content type, delivering chunks to
// onData. The final flush after Stop runs before onStop fires; onStop
// itself fires asynchronously, mirroring the stop handshake of the
// underlying platform recorders this models.
type Recorder struct {
	stream   *media.Stream
	mimeType string
	onData   func([]byte)
	onStop   func()
	log      *slog.Logger

	state atomic.Uint32
	done  chan struct{}

	mu      sync.Mutex
	pending []byte
}

func newRecorder(stream *media.Stream, mimeType string) *Recorder {
	return &Recorder{
		stream:   stream,
		mimeType: mimeType,
		log:      logging.L("recorder"),
		done:     make(chan struct{}),
	}
}

// Start begins recording: sinks attach to the stream's tracks and the
// timeslice flusher starts. Starting twice is an error.
func (r *Recorder) Start() error {
	if !r.state.CompareAndSwap(recStateInactive, recStateRecording) {
		return errRecorderStarted
	}

	if isAudioMime(r.mimeType) {
		r.attachAudio()
	} else {
		r.attachVideo()
	}

	go r.flushLoop()
	return nil
}

func (r *Recorder) attachAudio() {
	tracks := r.stream.GetAudioTracks()
	if len(tracks) == 0 {
		return
	}
	settings := tracks[0].Settings()
	rate, channels := settings.SampleRate, settings.Channels
	if rate <= 0 {
		rate = 48000
	}
	if channels <= 0 {
		channels = 2
	}

	// The header goes out with the first sample, not at start: a channel
	// that never produced audio must stay absent from the result rather
	// than yield a header-only payload.
	var headerOnce sync.Once
	header := wavStreamHeader(rate, channels)

	for _, t := range tracks {
		t.AddSink(func(s media.Sample) {
			if r.state.Load() != recStateRecording {
				return
			}
			headerOnce.Do(func() { r.append(header) })
			r.append(s.Data)
		})
	}
}

func (r *Recorder) attachVideo() {
	for _, t := range r.stream.GetVideoTracks() {
		t.AddFrameSink(func(frame *image.RGBA, _ time.Time) {
			if r.state.Load() != recStateRecording {
				return
			}
			chunk, err := encodeFrame(frame)
			if err != nil {
				r.log.Warn("Frame encode failed", logging.KeyError, err)
				return
			}
			r.append(chunk)
		})
	}
}

func (r *Recorder) append(data []byte) {
	r.mu.Lock()
	r.pending = append(r.pending, data...)
	r.mu.Unlock()
}

func (r *Recorder) flushLoop() {
	ticker := time.NewTicker(defaultTimeslice)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.flush()
		}
	}
}

func (r *Recorder) flush() {
	r.mu.Lock()
	chunk := r.pending
	r.pending = nil
	r.mu.Unlock()
	if len(chunk) > 0 && r.onData != nil {
		r.onData(chunk)
	}
}

// Stop halts recording, flushes the final chunk and fires onStop
// asynchronously. Stopping an already stopped recorder is a no-op.
func (r *Recorder) Stop() error {
	prev := r.state.Swap(recStateStopped)
	if prev != recStateRecording {
		// never started or already stopped; nothing to flush, no stop event
		return nil
	}
	close(r.done)
	r.flush()
	if r.onStop != nil {
		go r.onStop()
	}
	return nil
}
