package capture

import (
	"log/slog"

	"github.com/mixcap/mixcap/internal/device"
	"github.com/mixcap/mixcap/internal/logging"
	"github.com/mixcap/mixcap/internal/media"
)

// Hooks are the two outward notification points of a capture. Each fires at
// most once per session: OnStopped as soon as a stop is accepted, OnResult
// once every recorder has flushed and the bundle is assembled.
type Hooks struct {
	OnResult  func(Result)
	OnStopped func(captureID string)
}

// SourceDescriptor describes a staged source's primary track.
type SourceDescriptor struct {
	ID         string `json:"id" yaml:"id"`
	Label      string `json:"label" yaml:"label"`
	Kind       string `json:"kind" yaml:"kind"`
	DeviceID   string `json:"deviceId" yaml:"deviceId"`
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Muted      bool   `json:"muted" yaml:"muted"`
	ReadyState string `json:"readyState" yaml:"readyState"`
}

// PreviewOptions selects the source to stage. A video or audio device id
// requests that device; otherwise display capture is requested. FrameSink,
// if set, receives the staged source's video frames for preview rendering.
type PreviewOptions struct {
	Video     *device.Constraints
	Audio     *device.Constraints
	FrameSink media.FrameSink
}

// Service is the capture subsystem's inbound surface. Each Service owns its
// registry and blob table.
type Service struct {
	store   *Store
	devices *device.Manager
	blobs   *BlobStore
	log     *slog.Logger
}

// NewService creates a capture service over the given device registry.
func NewService(devices *device.Manager) *Service {
	return &Service{
		store:   NewStore(),
		devices: devices,
		blobs:   NewBlobStore(),
		log:     logging.L("capture"),
	}
}

// Blobs exposes the transient payload table so callers can resolve and
// revoke playback URLs.
func (s *Service) Blobs() *BlobStore { return s.blobs }

// Devices lists all registered input devices.
func (s *Service) Devices() []device.Info { return s.devices.Enumerate() }

// AudioInputDevices lists audio inputs only.
func (s *Service) AudioInputDevices() []device.Info { return s.devices.AudioInputs() }

// VideoInputDevices lists video inputs only.
func (s *Service) VideoInputDevices() []device.Info { return s.devices.VideoInputs() }

// SelectCaptureSource acquires a source ahead of time and stages it for a
// later start request. The returned descriptor identifies the staged
// source; ok is false when acquisition failed, the only caller-visible
// failure in this subsystem.
func (s *Service) SelectCaptureSource(opts PreviewOptions) (SourceDescriptor, bool) {
	var (
		stream *media.Stream
		err    error
	)
	switch {
	case opts.Video != nil && opts.Video.DeviceID != "":
		stream, err = s.devices.Open(device.KindVideoInput, normalizeConstraints(*opts.Video))
	case opts.Audio != nil && opts.Audio.DeviceID != "":
		stream, err = s.devices.Open(device.KindAudioInput, normalizeConstraints(*opts.Audio))
	default:
		stream, err = s.devices.Open(device.KindDisplayInput, DisplayMediaOptions{Video: opts.Video, Audio: opts.Audio}.pruned())
	}
	if err != nil {
		s.log.Warn("Source selection failed", logging.KeyError, err)
		return SourceDescriptor{}, false
	}

	track := primaryTrack(stream)
	if track == nil {
		stream.Stop()
		return SourceDescriptor{}, false
	}

	if opts.FrameSink != nil && track.Kind() == media.KindVideo {
		track.AddFrameSink(opts.FrameSink)
	}

	desc := SourceDescriptor{
		ID:         track.ID(),
		Label:      track.Label(),
		Kind:       string(track.Kind()),
		DeviceID:   track.Settings().DeviceID,
		Enabled:    track.Enabled(),
		Muted:      track.Muted(),
		ReadyState: string(track.ReadyState()),
	}
	s.store.Stage(track.ID(), &StagedSource{Stream: stream, Descriptor: desc})
	return desc, true
}

// StopPreview releases a staged source. Unknown track ids are a no-op.
func (s *Service) StopPreview(trackID string) {
	if staged := s.store.TakeStaged(trackID); staged != nil {
		staged.Stream.Stop()
	}
}

// StartCapture creates a session, acquires all requested sources, starts
// the recorders and returns the capture id. Acquisition failures degrade
// channels; StartCapture itself always returns an id. The session is
// registered before setup, so a stop arriving mid-setup is honored.
func (s *Service) StartCapture(opts Options, hooks Hooks) string {
	id := s.store.NextID()
	sess := newSession(id, opts, hooks, s)
	s.store.InsertSession(sess)

	sess.setup(s)
	sess.startRecorders()

	s.log.Info("Capture started",
		logging.KeyCaptureID, id,
		"contentType", opts.EffectiveContentType(),
		"screen", opts.CaptureScreen,
		"camera", opts.VideoDevice != nil,
		"audioDevices", len(opts.AudioDevices),
	)
	return id
}

// StopCapture stops a session by id: the session leaves the registry, the
// stopped notification fires, then recorders and streams tear down. The
// result bundle follows once the combined recorder finishes flushing.
// Unknown ids are a silent no-op.
func (s *Service) StopCapture(id string) {
	sess := s.store.RemoveSession(id)
	if sess == nil {
		return
	}
	sess.fireStopped()
	sess.stop()
}

func primaryTrack(stream *media.Stream) *media.Track {
	if vts := stream.GetVideoTracks(); len(vts) > 0 {
		return vts[0]
	}
	if ts := stream.GetTracks(); len(ts) > 0 {
		return ts[0]
	}
	return nil
}

func normalizeConstraints(c device.Constraints) device.Constraints {
	if c.DeviceID == "default" {
		c.DeviceID = ""
	}
	return c
}
