package capture

import (
	"bytes"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/mixcap/mixcap/internal/media"
)

type chunkCollector struct {
	mu     sync.Mutex
	chunks [][]byte
}

func (c *chunkCollector) add(data []byte) {
	c.mu.Lock()
	c.chunks = append(c.chunks, data)
	c.mu.Unlock()
}

func (c *chunkCollector) all() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []byte
	for _, chunk := range c.chunks {
		out = append(out, chunk...)
	}
	return out
}

func TestRecorderAudioEmitsWAVHeaderThenPCM(t *testing.T) {
	track := media.NewAudioTrack("mic", media.Settings{SampleRate: 48000, Channels: 2}, nil)
	stream := media.NewStream(track)

	var got chunkCollector
	stopped := make(chan struct{})
	r := newRecorder(stream, "audio/webm")
	r.onData = got.add
	r.onStop = func() { close(stopped) }

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	pcm := s16ToBytes([]int16{100, -100, 200, -200})
	track.WriteSample(media.Sample{Data: pcm, Timestamp: time.Now()})

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("onStop never fired")
	}

	data := got.all()
	if len(data) != 44+len(pcm) {
		t.Fatalf("recorded %d bytes, want %d", len(data), 44+len(pcm))
	}
	if !bytes.HasPrefix(data, []byte("RIFF")) {
		t.Error("output does not start with a RIFF header")
	}
	if !bytes.Equal(data[44:], pcm) {
		t.Error("PCM payload does not follow the header")
	}
}

func TestRecorderVideoEncodesFrames(t *testing.T) {
	track := media.NewVideoTrack("screen", media.Settings{Width: 64, Height: 48}, nil)
	stream := media.NewStream(track)

	var got chunkCollector
	r := newRecorder(stream, "video/webm; codecs=vp9")
	r.onData = got.add

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	track.WriteFrame(image.NewRGBA(image.Rect(0, 0, 64, 48)), time.Now())
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	data := got.all()
	if len(data) == 0 {
		t.Fatal("no encoded output")
	}
	// JPEG SOI marker
	if data[0] != 0xFF || data[1] != 0xD8 {
		t.Errorf("chunk does not start with a JPEG marker: % x", data[:2])
	}
}

func TestRecorderAudioSilentChannelEmitsNothing(t *testing.T) {
	track := media.NewAudioTrack("mic", media.Settings{SampleRate: 48000, Channels: 2}, nil)
	stream := media.NewStream(track)

	var got chunkCollector
	r := newRecorder(stream, "audio/webm")
	r.onData = got.add

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if data := got.all(); len(data) != 0 {
		t.Errorf("silent recorder emitted %d bytes, want none", len(data))
	}
}

func TestRecorderStartTwice(t *testing.T) {
	r := newRecorder(media.NewStream(), "audio/webm")
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop()
	if err := r.Start(); err == nil {
		t.Error("second Start succeeded")
	}
}

func TestRecorderStopBeforeStart(t *testing.T) {
	stopFired := false
	r := newRecorder(media.NewStream(), "audio/webm")
	r.onStop = func() { stopFired = true }

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if stopFired {
		t.Error("onStop fired for a recorder that never started")
	}
	if err := r.Start(); err == nil {
		t.Error("Start succeeded after Stop")
	}
}

func TestRecorderStopIdempotent(t *testing.T) {
	stops := 0
	var mu sync.Mutex
	r := newRecorder(media.NewStream(media.NewAudioTrack("mic", media.Settings{}, nil)), "audio/webm")
	r.onStop = func() {
		mu.Lock()
		stops++
		mu.Unlock()
	}

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.Stop()
	r.Stop()
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if stops != 1 {
		t.Errorf("onStop fired %d times, want 1", stops)
	}
}

func TestRecorderIgnoresDataAfterStop(t *testing.T) {
	track := media.NewAudioTrack("mic", media.Settings{SampleRate: 48000, Channels: 2}, nil)
	stream := media.NewStream(track)

	var got chunkCollector
	r := newRecorder(stream, "audio/webm")
	r.onData = got.add

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.Stop()
	before := len(got.all())

	track.WriteSample(media.Sample{Data: s16ToBytes([]int16{1, 2, 3, 4})})
	r.flush()
	if after := len(got.all()); after != before {
		t.Errorf("recorded %d extra bytes after stop", after-before)
	}
}
