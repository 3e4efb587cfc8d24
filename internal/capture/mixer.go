package capture

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/mixcap/mixcap/internal/media"
)

// mixGraph routes any number of input audio tracks into one mixed output
// track, the way a shared audio-processing graph feeds a common
// destination. Inputs are s16le PCM; samples are aligned per input queue
// and saturate-summed once every input has data.
type mixGraph struct {
	mu         sync.Mutex
	closed     bool
	queues     [][]int16
	ended      []bool
	out        *media.Track
	sampleRate int
	channels   int
}

// mixStreams mixes the audio tracks of the given streams into a single
// stream. Zero inputs yield no stream and no graph; that is not an error.
// The returned graph must be closed exactly once during session teardown;
// Close is a no-op on a nil or already closed graph.
func mixStreams(streams []*media.Stream) (*media.Stream, *mixGraph) {
	var inputs []*media.Track
	for _, s := range streams {
		if s == nil {
			continue
		}
		inputs = append(inputs, s.GetAudioTracks()...)
	}
	if len(inputs) == 0 {
		return nil, nil
	}

	settings := inputs[0].Settings()
	if settings.SampleRate <= 0 {
		settings.SampleRate = 48000
	}
	if settings.Channels <= 0 {
		settings.Channels = 2
	}

	g := &mixGraph{
		sampleRate: settings.SampleRate,
		channels:   settings.Channels,
	}
	g.out = media.NewAudioTrack("mixed", media.Settings{
		SampleRate: settings.SampleRate,
		Channels:   settings.Channels,
	}, nil)

	for _, t := range inputs {
		g.addInput(t)
	}

	return media.NewStream(g.out), g
}

func (g *mixGraph) addInput(t *media.Track) {
	g.mu.Lock()
	idx := len(g.queues)
	g.queues = append(g.queues, nil)
	g.ended = append(g.ended, false)
	g.mu.Unlock()

	t.AddSink(func(s media.Sample) {
		g.push(idx, s)
	})
	// an ended input must stop pinning the queue alignment, or the
	// surviving inputs go silent
	t.OnEnded(func() {
		g.markEnded(idx)
	})
}

func (g *mixGraph) push(idx int, s media.Sample) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.queues[idx] = append(g.queues[idx], bytesToS16(s.Data)...)
	g.emit(s.Timestamp)
}

func (g *mixGraph) markEnded(idx int) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.ended[idx] = true
	// samples held back waiting on this input can flow now
	g.emit(time.Now())
}

// emit mixes as many samples as every contributing queue can supply and
// writes them out. Ended inputs contribute until drained, then drop out of
// the alignment; the rounds repeat so a queue draining dry in one round
// unblocks the survivors' backlog in the next. Called with g.mu held;
// releases it.
func (g *mixGraph) emit(ts time.Time) {
	var mixed []int16
	for {
		n := -1
		for i, q := range g.queues {
			if g.ended[i] && len(q) == 0 {
				continue
			}
			if n < 0 || len(q) < n {
				n = len(q)
			}
		}
		if n <= 0 {
			break
		}

		round := make([]int16, n)
		for qi, q := range g.queues {
			m := n
			if len(q) < m {
				m = len(q)
			}
			for i := 0; i < m; i++ {
				v := int32(round[i]) + int32(q[i])
				if v > 32767 {
					v = 32767
				} else if v < -32768 {
					v = -32768
				}
				round[i] = int16(v)
			}
			g.queues[qi] = q[m:]
		}
		mixed = append(mixed, round...)
	}

	rate, channels := g.sampleRate, g.channels
	out := g.out
	g.mu.Unlock()

	if len(mixed) == 0 {
		return
	}
	frames := len(mixed) / channels
	out.WriteSample(media.Sample{
		Data:      s16ToBytes(mixed),
		Timestamp: ts,
		Duration:  time.Duration(frames) * time.Second / time.Duration(rate),
	})
}

// Close tears the graph down. Closing twice, or a graph that was never
// created, is a no-op.
func (g *mixGraph) Close() {
	if g == nil {
		return
	}
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.queues = nil
	out := g.out
	g.mu.Unlock()

	out.Stop()
}

func bytesToS16(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}

func s16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}
