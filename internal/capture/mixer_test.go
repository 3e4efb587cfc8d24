package capture

import (
	"testing"
	"time"

	"github.com/mixcap/mixcap/internal/media"
)

func audioSample(values ...int16) media.Sample {
	return media.Sample{
		Data:      s16ToBytes(values),
		Timestamp: time.Now(),
	}
}

func TestMixStreamsNoInputs(t *testing.T) {
	stream, graph := mixStreams(nil)
	if stream != nil || graph != nil {
		t.Fatal("expected no stream and no graph for zero inputs")
	}
	// closing a never-created graph must be safe
	graph.Close()

	videoOnly := media.NewStream(media.NewVideoTrack("v", media.Settings{}, nil))
	stream, graph = mixStreams([]*media.Stream{nil, videoOnly})
	if stream != nil || graph != nil {
		t.Fatal("expected no graph when inputs carry no audio tracks")
	}
}

func TestMixSingleInputPassesThrough(t *testing.T) {
	in := media.NewAudioTrack("mic", media.Settings{SampleRate: 48000, Channels: 2}, nil)
	stream, graph := mixStreams([]*media.Stream{media.NewStream(in)})
	if stream == nil || graph == nil {
		t.Fatal("expected a mixed stream")
	}
	defer graph.Close()

	var got []int16
	stream.GetAudioTracks()[0].AddSink(func(s media.Sample) {
		got = append(got, bytesToS16(s.Data)...)
	})

	in.WriteSample(audioSample(100, -200, 300, -400))
	want := []int16{100, -200, 300, -400}
	if len(got) != len(want) {
		t.Fatalf("mixed %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestMixTwoInputsAlignsAndSaturates(t *testing.T) {
	a := media.NewAudioTrack("a", media.Settings{SampleRate: 48000, Channels: 1}, nil)
	b := media.NewAudioTrack("b", media.Settings{SampleRate: 48000, Channels: 1}, nil)
	stream, graph := mixStreams([]*media.Stream{media.NewStream(a), media.NewStream(b)})
	defer graph.Close()

	var got []int16
	stream.GetAudioTracks()[0].AddSink(func(s media.Sample) {
		got = append(got, bytesToS16(s.Data)...)
	})

	// nothing should come out until both queues have data
	a.WriteSample(audioSample(1000, 30000, -30000))
	if len(got) != 0 {
		t.Fatalf("mixer emitted %d samples with one input starved", len(got))
	}

	b.WriteSample(audioSample(2000, 30000, -30000))
	want := []int16{3000, 32767, -32768}
	if len(got) != len(want) {
		t.Fatalf("mixed %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestMixSurvivesInputEnding(t *testing.T) {
	a := media.NewAudioTrack("a", media.Settings{SampleRate: 48000, Channels: 1}, nil)
	b := media.NewAudioTrack("b", media.Settings{SampleRate: 48000, Channels: 1}, nil)
	stream, graph := mixStreams([]*media.Stream{media.NewStream(a), media.NewStream(b)})
	defer graph.Close()

	var got []int16
	stream.GetAudioTracks()[0].AddSink(func(s media.Sample) {
		got = append(got, bytesToS16(s.Data)...)
	})

	// one microphone unplugs with nothing queued; the other keeps talking
	a.Stop()
	b.WriteSample(audioSample(10, 20))
	b.WriteSample(audioSample(30))

	want := []int16{10, 20, 30}
	if len(got) != len(want) {
		t.Fatalf("mixed %d samples after an input ended, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestMixDrainsEndedInputResidual(t *testing.T) {
	a := media.NewAudioTrack("a", media.Settings{SampleRate: 48000, Channels: 1}, nil)
	b := media.NewAudioTrack("b", media.Settings{SampleRate: 48000, Channels: 1}, nil)
	stream, graph := mixStreams([]*media.Stream{media.NewStream(a), media.NewStream(b)})
	defer graph.Close()

	var got []int16
	stream.GetAudioTracks()[0].AddSink(func(s media.Sample) {
		got = append(got, bytesToS16(s.Data)...)
	})

	// a queued one sample before ending; it still mixes into the output
	a.WriteSample(audioSample(100))
	a.Stop()
	b.WriteSample(audioSample(1, 2, 3))

	want := []int16{101, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("mixed %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestMixGraphCloseIdempotent(t *testing.T) {
	in := media.NewAudioTrack("mic", media.Settings{}, nil)
	stream, graph := mixStreams([]*media.Stream{media.NewStream(in)})

	graph.Close()
	graph.Close()

	if stream.GetAudioTracks()[0].ReadyState() != media.ReadyStateEnded {
		t.Error("mixed track still live after close")
	}

	// writes after close are dropped, not a panic
	in.WriteSample(audioSample(1, 2))
}
