package media

import (
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
)

// Kind distinguishes audio from video tracks.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// ReadyState mirrors the live/ended lifecycle of a track.
type ReadyState string

const (
	ReadyStateLive  ReadyState = "live"
	ReadyStateEnded ReadyState = "ended"
)

// Sample is the unit of recorded media flowing through tracks: encoded or
// raw payload bytes plus timing.
type Sample = pionmedia.Sample

// Settings describes the format a track's source produces.
type Settings struct {
	DeviceID   string
	Width      int
	Height     int
	FrameRate  float64
	SampleRate int
	Channels   int
}

// SampleSink receives audio samples pushed into a track.
type SampleSink func(Sample)

// FrameSink receives decoded video frames pushed into a track.
type FrameSink func(frame *image.RGBA, ts time.Time)

// Track is a single audio or video source. Sources push samples/frames in,
// any number of sinks (recorders, compositors, previews) fan out.
type Track struct {
	id       string
	kind     Kind
	label    string
	settings Settings

	mu         sync.Mutex
	enabled    bool
	muted      bool
	state      ReadyState
	sinks      []SampleSink
	frameSinks []FrameSink
	onEnded    []func()

	stopHook func()
}

func newTrack(kind Kind, label string, settings Settings, stopHook func()) *Track {
	return &Track{
		id:       uuid.NewString(),
		kind:     kind,
		label:    label,
		settings: settings,
		enabled:  true,
		state:    ReadyStateLive,
		stopHook: stopHook,
	}
}

// NewVideoTrack creates a live video track. stopHook, if non-nil, is invoked
// once when the track is stopped so the source can halt its pump.
func NewVideoTrack(label string, settings Settings, stopHook func()) *Track {
	return newTrack(KindVideo, label, settings, stopHook)
}

// NewAudioTrack creates a live audio track carrying s16le PCM samples.
func NewAudioTrack(label string, settings Settings, stopHook func()) *Track {
	return newTrack(KindAudio, label, settings, stopHook)
}

func (t *Track) ID() string         { return t.id }
func (t *Track) Kind() Kind         { return t.kind }
func (t *Track) Label() string      { return t.label }
func (t *Track) Settings() Settings { return t.settings }

func (t *Track) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *Track) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()
}

func (t *Track) Muted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.muted
}

func (t *Track) ReadyState() ReadyState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// AddSink registers a sample sink. Sinks are never removed; they stop
// receiving data once the track ends.
func (t *Track) AddSink(sink SampleSink) {
	t.mu.Lock()
	t.sinks = append(t.sinks, sink)
	t.mu.Unlock()
}

// AddFrameSink registers a video frame sink.
func (t *Track) AddFrameSink(sink FrameSink) {
	t.mu.Lock()
	t.frameSinks = append(t.frameSinks, sink)
	t.mu.Unlock()
}

// WriteSample fans a sample out to all sinks. Dropped when the track is
// ended or disabled.
func (t *Track) WriteSample(s Sample) {
	t.mu.Lock()
	if t.state != ReadyStateLive || !t.enabled {
		t.mu.Unlock()
		return
	}
	sinks := make([]SampleSink, len(t.sinks))
	copy(sinks, t.sinks)
	t.mu.Unlock()

	for _, sink := range sinks {
		sink(s)
	}
}

// WriteFrame fans a video frame out to all frame sinks. The frame must not
// be mutated by the caller after the write returns; sinks that keep it past
// their return must copy it.
func (t *Track) WriteFrame(frame *image.RGBA, ts time.Time) {
	t.mu.Lock()
	if t.state != ReadyStateLive || !t.enabled {
		t.mu.Unlock()
		return
	}
	sinks := make([]FrameSink, len(t.frameSinks))
	copy(sinks, t.frameSinks)
	t.mu.Unlock()

	for _, sink := range sinks {
		sink(frame, ts)
	}
}

// OnEnded registers a handler fired when the track stops. A handler
// registered after the track already ended fires immediately, so late
// listeners cannot miss the transition.
func (t *Track) OnEnded(fn func()) {
	t.mu.Lock()
	if t.state == ReadyStateEnded {
		t.mu.Unlock()
		fn()
		return
	}
	t.onEnded = append(t.onEnded, fn)
	t.mu.Unlock()
}

// Stop ends the track, halts its source and fires ended handlers. Safe to
// call multiple times, including from within an ended handler: teardown
// paths triggered by a track ending stop their streams, which stop this
// track again.
func (t *Track) Stop() {
	t.mu.Lock()
	if t.state == ReadyStateEnded {
		t.mu.Unlock()
		return
	}
	t.state = ReadyStateEnded
	handlers := t.onEnded
	t.onEnded = nil
	hook := t.stopHook
	t.mu.Unlock()

	if hook != nil {
		hook()
	}
	for _, fn := range handlers {
		fn()
	}
}
