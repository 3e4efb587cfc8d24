package capture

import (
	"log/slog"
	"sync"

	"github.com/mixcap/mixcap/internal/device"
	"github.com/mixcap/mixcap/internal/logging"
	"github.com/mixcap/mixcap/internal/media"
)

// Session is one active capture: its raw streams, the derived combined
// stream, the per-channel recorders and chunk buffers, and the audio graphs
// that must be closed on teardown. A session's recorders and streams stop
// together; no recorder outlives the session's teardown.
type Session struct {
	id      string
	opts    Options
	hooks   Hooks
	store   *Store
	devices *device.Manager
	blobs   *BlobStore
	log     *slog.Logger

	mu          sync.Mutex
	screen      *media.Stream
	camera      *media.Stream
	micAudio    *media.Stream
	systemAudio *media.Stream
	combined    *media.Stream
	canvas      *canvasCapture
	graphs      []*mixGraph
	recorders   []*Recorder
	chunks      map[Channel]*chunkBuffer

	done        chan struct{}
	stopOnce    sync.Once
	resultOnce  sync.Once
	stoppedOnce sync.Once
}

func newSession(id string, opts Options, hooks Hooks, svc *Service) *Session {
	chunks := make(map[Channel]*chunkBuffer, len(allChannels))
	for _, ch := range allChannels {
		chunks[ch] = &chunkBuffer{}
	}
	return &Session{
		id:      id,
		opts:    opts,
		hooks:   hooks,
		store:   svc.store,
		devices: svc.devices,
		blobs:   svc.blobs,
		log:     svc.log,
		chunks:  chunks,
		done:    make(chan struct{}),
	}
}

// ID returns the capture id.
func (s *Session) ID() string { return s.id }

// setup acquires all requested sources, builds the combined stream and
// instantiates the recorders. Individual acquisition failures degrade
// channels to absent; setup itself never fails.
func (s *Session) setup(svc *Service) {
	s.acquireScreen()
	s.acquireCamera()

	micStreams := s.acquireAudioStreams()
	micMixed, micGraph := mixStreams(micStreams)

	s.mu.Lock()
	s.micAudio = micMixed
	if micGraph != nil {
		s.graphs = append(s.graphs, micGraph)
	}
	screen, camera, systemAudio := s.screen, s.camera, s.systemAudio
	s.mu.Unlock()

	// second mix feeds the combined stream: microphones plus system audio
	combinedMixed, combinedGraph := mixStreams([]*media.Stream{micMixed, systemAudio})

	var combined *media.Stream
	var canvas *canvasCapture
	switch {
	case screen != nil && camera != nil:
		combined, canvas = newCompositor(s.id, s.store, s.done, screen, camera, combinedMixed, s.opts, s.log)
	case screen != nil || camera != nil:
		visual := screen
		if visual == nil {
			visual = camera
		}
		combined = combineStreams(visual, combinedMixed)
	default:
		combined = combinedMixed
	}

	s.mu.Lock()
	s.combined = combined
	s.canvas = canvas
	if combinedGraph != nil {
		s.graphs = append(s.graphs, combinedGraph)
	}
	s.mu.Unlock()

	s.setupRecorders()

	// screen share ending, by track or by whole stream, stops the session.
	// Registered after recorder setup so a source that died during
	// acquisition still tears down cleanly.
	if screen != nil {
		screen.OnInactive(func() { svc.StopCapture(s.id) })
		if vts := screen.GetVideoTracks(); len(vts) > 0 {
			vts[0].OnEnded(func() { svc.StopCapture(s.id) })
		}
	}
}

// setupRecorders creates one recorder per non-nil channel stream. The
// combined recorder additionally owns result delivery: its stop completion
// halts the canvas stream and assembles the bundle, because chunk flushing
// is asynchronous relative to the stop request.
func (s *Session) setupRecorders() {
	videoCT := s.opts.ContentType
	if videoCT == "" {
		videoCT = DefaultContentType
	}
	audioCT := s.opts.effectiveAudioContentType()

	s.mu.Lock()
	defer s.mu.Unlock()

	add := func(stream *media.Stream, ch Channel, contentType string) *Recorder {
		if stream == nil {
			return nil
		}
		rec := newRecorder(stream, contentType)
		buf := s.chunks[ch]
		rec.onData = buf.append
		s.recorders = append(s.recorders, rec)
		return rec
	}

	add(s.screen, ChannelScreen, videoCT)
	add(s.systemAudio, ChannelSystemAudio, audioCT)
	add(s.camera, ChannelCamera, videoCT)
	add(s.micAudio, ChannelMicAudio, audioCT)

	if rec := add(s.combined, ChannelCombined, s.opts.EffectiveContentType()); rec != nil {
		canvas := s.canvas
		rec.onStop = func() {
			if canvas != nil {
				canvas.stream.Stop()
			}
			s.deliverResult()
		}
	}
}

// startRecorders starts every recorder. All recorders are in the recording
// state before this returns. A stop that raced in during setup wins: the
// recorders are stopped again and resources released.
func (s *Session) startRecorders() {
	s.mu.Lock()
	recs := make([]*Recorder, len(s.recorders))
	copy(recs, s.recorders)
	s.mu.Unlock()

	if s.isStopped() {
		s.releaseResources()
		return
	}

	for _, rec := range recs {
		if err := rec.Start(); err != nil {
			s.log.Warn("Recorder start failed", logging.KeyCaptureID, s.id, logging.KeyError, err)
		}
	}

	if s.isStopped() {
		for _, rec := range recs {
			_ = rec.Stop()
		}
		s.releaseResources()
	}
}

func (s *Session) isStopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// stop tears the session down: recorders first so their final chunks flush,
// then streams, then audio graphs. Recorder stop failures are swallowed so
// one recorder cannot block its siblings.
func (s *Session) stop() {
	s.stopOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		recs := make([]*Recorder, len(s.recorders))
		copy(recs, s.recorders)
		s.mu.Unlock()

		for _, rec := range recs {
			if err := rec.Stop(); err != nil {
				s.log.Warn("Recorder stop failed", logging.KeyCaptureID, s.id, logging.KeyError, err)
			}
		}

		s.releaseResources()
		s.log.Info("Capture stopped", logging.KeyCaptureID, s.id)
	})
}

// releaseResources stops all streams and closes the audio graphs. Safe to
// call repeatedly: track stops and graph closes are idempotent.
func (s *Session) releaseResources() {
	s.mu.Lock()
	streams := []*media.Stream{s.screen, s.camera, s.micAudio, s.systemAudio, s.combined}
	if s.canvas != nil {
		streams = append(streams, s.canvas.stream)
	}
	graphs := make([]*mixGraph, len(s.graphs))
	copy(graphs, s.graphs)
	s.mu.Unlock()

	for _, stream := range streams {
		if stream != nil {
			stream.Stop()
		}
	}
	for _, g := range graphs {
		g.Close()
	}
}

// deliverResult assembles and delivers the bundle, at most once.
func (s *Session) deliverResult() {
	s.resultOnce.Do(func() {
		result := assembleResult(s.id, s.opts, s.chunks, s.blobs)
		if s.hooks.OnResult != nil {
			s.hooks.OnResult(result)
		}
	})
}

// fireStopped emits the stopped notification, at most once. This is
// distinct from, and earlier than, result delivery.
func (s *Session) fireStopped() {
	s.stoppedOnce.Do(func() {
		if s.hooks.OnStopped != nil {
			s.hooks.OnStopped(s.id)
		}
	})
}
