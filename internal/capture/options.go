package capture

import (
	"github.com/mixcap/mixcap/internal/device"
)

// Defaults applied when the caller leaves content types or frame rate unset.
const (
	DefaultContentType      = "video/webm; codecs=vp9"
	DefaultAudioContentType = "audio/webm"
	DefaultFrameRate        = 30
)

// OverlaySource selects which visual source is drawn as the overlay during
// picture-in-picture compositing.
type OverlaySource string

const (
	// OverlaySourceCaptureScreen draws the screen as the overlay on top of
	// the camera.
	OverlaySourceCaptureScreen OverlaySource = "CaptureScreen"
	// OverlaySourceVideoDevice draws the camera as the overlay on top of the
	// screen.
	OverlaySourceVideoDevice OverlaySource = "VideoDevice"
)

// OverlayAnchor names a fixed overlay placement on the canvas.
type OverlayAnchor string

const (
	AnchorCenter       OverlayAnchor = "Center"
	AnchorCenterLeft   OverlayAnchor = "CenterLeft"
	AnchorCenterRight  OverlayAnchor = "CenterRight"
	AnchorTopCenter    OverlayAnchor = "TopCenter"
	AnchorTopLeft      OverlayAnchor = "TopLeft"
	AnchorTopRight     OverlayAnchor = "TopRight"
	AnchorBottomCenter OverlayAnchor = "BottomCenter"
	AnchorBottomLeft   OverlayAnchor = "BottomLeft"
	AnchorBottomRight  OverlayAnchor = "BottomRight"
	AnchorCustom       OverlayAnchor = "Custom"
)

// Dimension is a css-like length: "50%", "320px" or "320".
type Dimension struct {
	CSSValue string `json:"cssValue" yaml:"cssValue"`
}

// OverlaySize sizes the overlay, per axis percentage-of-canvas or absolute.
type OverlaySize struct {
	Width  Dimension `json:"width" yaml:"width"`
	Height Dimension `json:"height" yaml:"height"`
}

// OverlayOffset is a custom overlay origin, per axis percentage or absolute.
type OverlayOffset struct {
	Left Dimension `json:"left" yaml:"left"`
	Top  Dimension `json:"top" yaml:"top"`
}

// DeviceSelector references an input device either by bare id or by a
// constraints object carrying the id.
type DeviceSelector struct {
	DeviceID    string              `json:"deviceId,omitempty" yaml:"deviceId,omitempty"`
	Constraints *device.Constraints `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// normalize resolves the selector into driver constraints. The "default"
// device sentinel becomes "no explicit device", letting the driver pick.
func (s DeviceSelector) normalize() device.Constraints {
	var c device.Constraints
	if s.Constraints != nil {
		c = *s.Constraints
	}
	if s.DeviceID != "" {
		c.DeviceID = s.DeviceID
	}
	if c.DeviceID == "default" {
		c.DeviceID = ""
	}
	return c
}

// SourceRef references a previously staged source by its primary track id.
type SourceRef struct {
	ID string `json:"id" yaml:"id"`
}

// DisplayMediaOptions carries the display capture request. Nil sections are
// stripped before the request reaches a driver; drivers reject explicit
// null-valued constraint fields.
type DisplayMediaOptions struct {
	Video *device.Constraints `json:"video,omitempty" yaml:"video,omitempty"`
	Audio *device.Constraints `json:"audio,omitempty" yaml:"audio,omitempty"`
}

// pruned flattens the request into driver constraints, dropping nil
// sections.
func (o DisplayMediaOptions) pruned() device.Constraints {
	var c device.Constraints
	if o.Video != nil {
		c = *o.Video
	}
	if c.DeviceID == "default" {
		c.DeviceID = ""
	}
	c.WithAudio = o.Audio != nil
	return c
}

// Options configures one capture session.
type Options struct {
	ContentType           string              `json:"contentType,omitempty" yaml:"contentType,omitempty"`
	AudioContentType      string              `json:"audioContentType,omitempty" yaml:"audioContentType,omitempty"`
	CaptureScreen         bool                `json:"captureScreen" yaml:"captureScreen"`
	ScreenSource          *SourceRef          `json:"screenSource,omitempty" yaml:"screenSource,omitempty"`
	CaptureMedia          DisplayMediaOptions `json:"captureMediaOptions,omitempty" yaml:"captureMediaOptions,omitempty"`
	VideoDevice           *DeviceSelector     `json:"videoDevice,omitempty" yaml:"videoDevice,omitempty"`
	AudioDevices          []DeviceSelector    `json:"audioDevices,omitempty" yaml:"audioDevices,omitempty"`
	FrameRate             int                 `json:"frameRate,omitempty" yaml:"frameRate,omitempty"`
	OverlaySource         OverlaySource       `json:"overlaySource,omitempty" yaml:"overlaySource,omitempty"`
	OverlayPosition       OverlayAnchor       `json:"overlayPosition,omitempty" yaml:"overlayPosition,omitempty"`
	OverlayCustomPosition *OverlayOffset      `json:"overlayCustomPosition,omitempty" yaml:"overlayCustomPosition,omitempty"`
	OverlaySize           *OverlaySize        `json:"overlaySize,omitempty" yaml:"overlaySize,omitempty"`
}

// wantsVideo reports whether any part of the options requests a visual
// source.
func (o Options) wantsVideo() bool {
	if o.CaptureScreen || o.VideoDevice != nil {
		return true
	}
	return o.CaptureMedia.Video != nil && o.CaptureMedia.Video.DeviceID != ""
}

// EffectiveContentType resolves the content type recorded to the combined
// channel. Audio-only captures degrade to the audio content type.
func (o Options) EffectiveContentType() string {
	ct := o.ContentType
	if ct == "" {
		ct = DefaultContentType
	}
	if !o.wantsVideo() {
		return o.effectiveAudioContentType()
	}
	return ct
}

func (o Options) effectiveAudioContentType() string {
	if o.AudioContentType == "" {
		return DefaultAudioContentType
	}
	return o.AudioContentType
}

func (o Options) effectiveFrameRate() int {
	if o.FrameRate <= 0 {
		return DefaultFrameRate
	}
	return o.FrameRate
}
