package media

import (
	"image"
	"testing"
	"time"
)

func TestTrackStopIdempotent(t *testing.T) {
	hookCalls := 0
	track := NewVideoTrack("cam", Settings{Width: 640, Height: 480}, func() { hookCalls++ })

	endedCalls := 0
	track.OnEnded(func() { endedCalls++ })

	track.Stop()
	track.Stop()

	if hookCalls != 1 {
		t.Errorf("stop hook ran %d times, want 1", hookCalls)
	}
	if endedCalls != 1 {
		t.Errorf("ended handler ran %d times, want 1", endedCalls)
	}
	if track.ReadyState() != ReadyStateEnded {
		t.Errorf("ready state = %s, want ended", track.ReadyState())
	}
}

func TestTrackOnEndedAfterStopFiresImmediately(t *testing.T) {
	track := NewAudioTrack("mic", Settings{SampleRate: 48000, Channels: 2}, nil)
	track.Stop()

	fired := false
	track.OnEnded(func() { fired = true })
	if !fired {
		t.Error("handler registered after stop did not fire")
	}
}

func TestTrackDropsWritesWhenEnded(t *testing.T) {
	track := NewVideoTrack("cam", Settings{}, nil)
	frames := 0
	track.AddFrameSink(func(*image.RGBA, time.Time) { frames++ })

	frame := image.NewRGBA(image.Rect(0, 0, 4, 4))
	track.WriteFrame(frame, time.Now())
	track.Stop()
	track.WriteFrame(frame, time.Now())

	if frames != 1 {
		t.Errorf("sink received %d frames, want 1", frames)
	}
}

func TestStreamInactiveFiresOnceWhenAllTracksEnd(t *testing.T) {
	a := NewVideoTrack("a", Settings{}, nil)
	b := NewAudioTrack("b", Settings{}, nil)
	stream := NewStream(a, b)

	inactive := 0
	stream.OnInactive(func() { inactive++ })

	a.Stop()
	if inactive != 0 {
		t.Fatal("inactive fired while a track is still live")
	}
	b.Stop()
	if inactive != 1 {
		t.Errorf("inactive fired %d times, want 1", inactive)
	}

	// stopping again must not re-fire
	stream.Stop()
	if inactive != 1 {
		t.Errorf("inactive re-fired, got %d", inactive)
	}
}

func TestStreamKindFilters(t *testing.T) {
	v := NewVideoTrack("v", Settings{}, nil)
	a := NewAudioTrack("a", Settings{}, nil)
	stream := NewStream(v, a)

	if got := len(stream.GetVideoTracks()); got != 1 {
		t.Errorf("video tracks = %d, want 1", got)
	}
	if got := len(stream.GetAudioTracks()); got != 1 {
		t.Errorf("audio tracks = %d, want 1", got)
	}

	stream.RemoveTrack(v)
	if got := len(stream.GetVideoTracks()); got != 0 {
		t.Errorf("video tracks after remove = %d, want 0", got)
	}
	if v.ReadyState() != ReadyStateLive {
		t.Error("RemoveTrack stopped the track")
	}
}
