package capture

import (
	"github.com/mixcap/mixcap/internal/media"
)

// combineStreams assembles the combined stream when only one visual source
// exists: the visual's video tracks plus the mixed audio's audio tracks.
// Audio tracks already on the visual stream are stopped, not carried over,
// so the mix stays the only audio path.
func combineStreams(visual, audio *media.Stream) *media.Stream {
	combined := media.NewStream()
	if visual != nil {
		for _, t := range visual.GetVideoTracks() {
			combined.AddTrack(t)
		}
		for _, t := range visual.GetAudioTracks() {
			t.Stop()
		}
	}
	if audio != nil {
		for _, t := range audio.GetAudioTracks() {
			combined.AddTrack(t)
		}
	}
	return combined
}
