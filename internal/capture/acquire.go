package capture

import (
	"github.com/mixcap/mixcap/internal/device"
	"github.com/mixcap/mixcap/internal/logging"
	"github.com/mixcap/mixcap/internal/media"
)

// acquireScreen obtains the display stream, preferring a staged source when
// the options reference one (no second permission prompt). The raw display
// stream is split: video tracks become the screen stream, audio tracks
// become the system-audio stream. Failure leaves both absent; it never
// aborts the session.
func (s *Session) acquireScreen() {
	if !s.opts.CaptureScreen {
		return
	}

	var raw *media.Stream
	if s.opts.ScreenSource != nil {
		if staged := s.store.TakeStaged(s.opts.ScreenSource.ID); staged != nil {
			raw = staged.Stream
		}
	}
	if raw == nil {
		var err error
		raw, err = s.devices.Open(device.KindDisplayInput, s.opts.CaptureMedia.pruned())
		if err != nil {
			s.log.Warn("System capture unavailable", logging.KeyCaptureID, s.id, logging.KeyError, err)
			return
		}
	}

	if vts := raw.GetVideoTracks(); len(vts) > 0 {
		screen := media.NewStream()
		for _, t := range vts {
			screen.AddTrack(t)
		}
		s.screen = screen
	}
	if ats := raw.GetAudioTracks(); len(ats) > 0 {
		system := media.NewStream()
		for _, t := range ats {
			system.AddTrack(t)
		}
		s.systemAudio = system
	}
}

// acquireCamera obtains the camera stream. Failure degrades the camera
// channel to absent.
func (s *Session) acquireCamera() {
	if s.opts.VideoDevice == nil {
		return
	}
	stream, err := s.devices.Open(device.KindVideoInput, s.opts.VideoDevice.normalize())
	if err != nil {
		s.log.Warn("Camera unavailable", logging.KeyCaptureID, s.id, logging.KeyError, err)
		return
	}
	s.camera = stream
}

// acquireAudioStreams opens every requested microphone. A single failing
// device is logged and skipped; it never blocks the other devices.
func (s *Session) acquireAudioStreams() []*media.Stream {
	var streams []*media.Stream
	for _, sel := range s.opts.AudioDevices {
		stream, err := s.devices.Open(device.KindAudioInput, sel.normalize())
		if err != nil {
			s.log.Warn("Audio device unavailable",
				logging.KeyCaptureID, s.id,
				"deviceId", sel.DeviceID,
				logging.KeyError, err,
			)
			continue
		}
		streams = append(streams, stream)
	}
	return streams
}
