package capture

import "sync"

// Channel is one logical recording target. Each non-empty channel gets its
// own recorder and chunk buffer.
type Channel int

const (
	ChannelScreen Channel = iota
	ChannelSystemAudio
	ChannelCamera
	ChannelMicAudio
	ChannelCombined
)

var allChannels = [...]Channel{
	ChannelScreen,
	ChannelSystemAudio,
	ChannelCamera,
	ChannelMicAudio,
	ChannelCombined,
}

func (c Channel) String() string {
	switch c {
	case ChannelScreen:
		return "screen"
	case ChannelSystemAudio:
		return "systemAudio"
	case ChannelCamera:
		return "camera"
	case ChannelMicAudio:
		return "audio"
	case ChannelCombined:
		return "combined"
	default:
		return "unknown"
	}
}

// chunkBuffer accumulates the recorded chunks of one channel.
type chunkBuffer struct {
	mu    sync.Mutex
	parts [][]byte
}

func (b *chunkBuffer) append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	b.mu.Lock()
	b.parts = append(b.parts, chunk)
	b.mu.Unlock()
}

func (b *chunkBuffer) concat() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.parts) == 0 {
		return nil
	}
	size := 0
	for _, p := range b.parts {
		size += len(p)
	}
	out := make([]byte, 0, size)
	for _, p := range b.parts {
		out = append(out, p...)
	}
	return out
}

func (b *chunkBuffer) empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.parts) == 0
}
