package device

import (
	"encoding/binary"
	"image"
	"image/color"
	"image/draw"
	"math"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mixcap/mixcap/internal/media"
)

// testCardDriver renders a synthetic test pattern: black background, the
// label in the middle and a moving marker block so recordings visibly
// advance. Useful for previews and environments without a real camera.
type testCardDriver struct {
	id    string
	label string
	w, h  int
}

// NewTestCard returns a synthetic video input driver.
func NewTestCard(id, label string) Driver {
	return &testCardDriver{id: id, label: label, w: 640, h: 480}
}

func (d *testCardDriver) Info() Info {
	return Info{DeviceID: d.id, Kind: KindVideoInput, Label: d.label}
}

func (d *testCardDriver) Open(c Constraints) (*media.Stream, error) {
	fps := c.FrameRate
	if fps <= 0 {
		fps = defaultScreenFPS
	}
	w, h := d.w, d.h
	if c.Width > 0 {
		w = c.Width
	}
	if c.Height > 0 {
		h = c.Height
	}

	done := make(chan struct{})
	track := media.NewVideoTrack(d.label, media.Settings{
		DeviceID:  d.id,
		Width:     w,
		Height:    h,
		FrameRate: fps,
	}, func() { close(done) })

	go func() {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / fps))
		defer ticker.Stop()
		n := 0
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				frame := media.GetFrame(w, h)
				d.render(frame, n)
				track.WriteFrame(frame, time.Now())
				media.PutFrame(frame)
				n++
			}
		}
	}()

	return media.NewStream(track), nil
}

func (d *testCardDriver) render(frame *image.RGBA, n int) {
	b := frame.Bounds()
	draw.Draw(frame, b, image.NewUniform(color.Black), image.Point{}, draw.Src)

	// moving marker along the top edge
	x := (n * 4) % (b.Dx() - 16)
	draw.Draw(frame, image.Rect(x, 8, x+16, 24), image.NewUniform(color.White), image.Point{}, draw.Src)

	drawer := font.Drawer{
		Dst:  frame,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
	}
	width := drawer.MeasureString(d.label)
	drawer.Dot = fixed.P(b.Dx()/2, b.Dy()/2).Sub(fixed.Point26_6{X: width / 2})
	drawer.DrawString(d.label)
}

// toneDriver produces a sine tone as s16le PCM, for testing audio paths
// without a microphone.
type toneDriver struct {
	id    string
	label string
	freq  float64
}

// NewTone returns a synthetic audio input driver emitting a sine tone.
func NewTone(id, label string, freq float64) Driver {
	if freq <= 0 {
		freq = 440
	}
	return &toneDriver{id: id, label: label, freq: freq}
}

func (d *toneDriver) Info() Info {
	return Info{DeviceID: d.id, Kind: KindAudioInput, Label: d.label}
}

const (
	toneSampleRate = 48000
	toneChannels   = 2
	toneChunk      = 20 * time.Millisecond
)

func (d *toneDriver) Open(c Constraints) (*media.Stream, error) {
	rate := toneSampleRate
	if c.SampleRate > 0 {
		rate = c.SampleRate
	}
	channels := toneChannels
	if c.Channels > 0 {
		channels = c.Channels
	}

	done := make(chan struct{})
	track := media.NewAudioTrack(d.label, media.Settings{
		DeviceID:   d.id,
		SampleRate: rate,
		Channels:   channels,
	}, func() { close(done) })

	go func() {
		ticker := time.NewTicker(toneChunk)
		defer ticker.Stop()
		samplesPerChunk := rate * int(toneChunk) / int(time.Second)
		phase := 0.0
		step := 2 * math.Pi * d.freq / float64(rate)
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				data := make([]byte, samplesPerChunk*channels*2)
				for i := 0; i < samplesPerChunk; i++ {
					v := int16(math.Sin(phase) * 0.25 * math.MaxInt16)
					phase += step
					for ch := 0; ch < channels; ch++ {
						binary.LittleEndian.PutUint16(data[(i*channels+ch)*2:], uint16(v))
					}
				}
				track.WriteSample(media.Sample{
					Data:      data,
					Timestamp: time.Now(),
					Duration:  toneChunk,
				})
			}
		}
	}()

	return media.NewStream(track), nil
}
