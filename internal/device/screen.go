package device

import (
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/kbinani/screenshot"

	"github.com/mixcap/mixcap/internal/logging"
	"github.com/mixcap/mixcap/internal/media"
)

const defaultScreenFPS = 30

// screenDriver captures one display as a video stream.
type screenDriver struct {
	display int
	bounds  image.Rectangle
	log     *slog.Logger
}

// RegisterScreens registers one display driver per active display and
// returns how many were found.
func RegisterScreens(m *Manager) int {
	n := screenshot.NumActiveDisplays()
	for i := 0; i < n; i++ {
		m.Register(&screenDriver{
			display: i,
			bounds:  screenshot.GetDisplayBounds(i),
			log:     logging.L("device"),
		})
	}
	return n
}

func (d *screenDriver) Info() Info {
	return Info{
		DeviceID: fmt.Sprintf("screen:%d", d.display),
		Kind:     KindDisplayInput,
		Label:    fmt.Sprintf("Display %d (%dx%d)", d.display, d.bounds.Dx(), d.bounds.Dy()),
	}
}

func (d *screenDriver) Open(c Constraints) (*media.Stream, error) {
	fps := c.FrameRate
	if fps <= 0 {
		fps = defaultScreenFPS
	}

	done := make(chan struct{})
	track := media.NewVideoTrack(d.Info().Label, media.Settings{
		DeviceID:  d.Info().DeviceID,
		Width:     d.bounds.Dx(),
		Height:    d.bounds.Dy(),
		FrameRate: fps,
	}, func() { close(done) })

	go d.pump(track, fps, done)

	// System audio loopback is not available through the screenshot backend;
	// the stream carries video only even when WithAudio is set.
	return media.NewStream(track), nil
}

func (d *screenDriver) pump(track *media.Track, fps float64, done chan struct{}) {
	interval := time.Duration(float64(time.Second) / fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			img, err := screenshot.CaptureRect(d.bounds)
			if err != nil {
				d.log.Debug("Display grab failed", "display", d.display, logging.KeyError, err)
				continue
			}
			track.WriteFrame(img, time.Now())
		}
	}
}
