package device

import (
	"errors"

	"github.com/mixcap/mixcap/internal/media"
)

// Kind categorizes input devices the way device enumeration reports them.
type Kind string

const (
	KindAudioInput   Kind = "audioinput"
	KindVideoInput   Kind = "videoinput"
	KindDisplayInput Kind = "displayinput"
)

// Info describes an enumerable input device.
type Info struct {
	DeviceID string `json:"deviceId" yaml:"deviceId"`
	GroupID  string `json:"groupId,omitempty" yaml:"groupId,omitempty"`
	Kind     Kind   `json:"kind" yaml:"kind"`
	Label    string `json:"label" yaml:"label"`
}

// Constraints narrows what a driver should produce. Zero values mean "driver
// default". WithAudio asks display drivers to also capture system audio when
// the platform supports loopback.
type Constraints struct {
	DeviceID   string
	Width      int
	Height     int
	FrameRate  float64
	SampleRate int
	Channels   int
	WithAudio  bool
}

// Driver produces media streams for one device.
type Driver interface {
	Info() Info
	Open(c Constraints) (*media.Stream, error)
}

// ErrNoDevice is returned when no registered driver matches a request.
var ErrNoDevice = errors.New("no matching device")
