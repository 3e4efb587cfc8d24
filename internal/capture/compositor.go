package capture

import (
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/mixcap/mixcap/internal/logging"
	"github.com/mixcap/mixcap/internal/media"
)

// animationTick paces the render loop. Draws are rate-limited separately by
// the configured frame rate; the loop cadence itself stays fixed and frames
// are skipped, not rescheduled.
const animationTick = 16 * time.Millisecond

// overlayInset is the margin from the canvas edges for all non-center
// anchors.
const overlayInset = 20

// frameHolder keeps the most recent frame of one source, standing in for
// the hidden playback element each source plays into.
type frameHolder struct {
	mu    sync.RWMutex
	frame *image.RGBA
}

func (h *frameHolder) set(frame *image.RGBA, _ time.Time) {
	h.mu.Lock()
	b := frame.Bounds()
	if h.frame == nil || h.frame.Bounds() != b {
		h.frame = image.NewRGBA(b)
	}
	copy(h.frame.Pix, frame.Pix)
	h.mu.Unlock()
}

// canvasCapture describes an active picture-in-picture composite: the
// drawing surface, the stream captured from it and the per-source frame
// holders feeding the draw loop.
type canvasCapture struct {
	canvas  *image.RGBA
	stream  *media.Stream
	track   *media.Track
	main    *frameHolder
	overlay *frameHolder
}

// newCompositor produces a composite stream from two visual streams. The
// canvas is sized to the screen stream's native resolution; both sources
// feed holders, and a render loop draws main full-surface with the overlay
// at its computed rectangle. The loop exits when the session's done channel
// closes or when the session is no longer present in the store.
func newCompositor(id string, store *Store, done <-chan struct{}, screen, camera, mixed *media.Stream, opts Options, log *slog.Logger) (*media.Stream, *canvasCapture) {
	screenTrack := screen.GetVideoTracks()[0]
	w, h := screenTrack.Settings().Width, screenTrack.Settings().Height
	if w <= 0 || h <= 0 {
		w, h = 1280, 720
	}

	useVideoDeviceAsOverlay := opts.OverlaySource == OverlaySourceVideoDevice
	mainStream, overlayStream := camera, screen
	if useVideoDeviceAsOverlay {
		mainStream, overlayStream = screen, camera
	}

	fps := opts.effectiveFrameRate()
	cc := &canvasCapture{
		canvas:  image.NewRGBA(image.Rect(0, 0, w, h)),
		main:    &frameHolder{},
		overlay: &frameHolder{},
	}
	cc.track = media.NewVideoTrack("composite", media.Settings{
		Width:     w,
		Height:    h,
		FrameRate: float64(fps),
	}, nil)

	if ts := mainStream.GetVideoTracks(); len(ts) > 0 {
		ts[0].AddFrameSink(cc.main.set)
	}
	if ts := overlayStream.GetVideoTracks(); len(ts) > 0 {
		ts[0].AddFrameSink(cc.overlay.set)
	}

	go cc.renderLoop(id, store, done, opts, fps, log)

	cc.stream = media.NewStream(cc.track)
	if mixed != nil {
		for _, t := range mixed.GetAudioTracks() {
			cc.stream.AddTrack(t)
		}
	}
	return cc.stream, cc
}

func (cc *canvasCapture) renderLoop(id string, store *Store, done <-chan struct{}, opts Options, fps int, log *slog.Logger) {
	frameInterval := time.Second / time.Duration(fps)
	ticker := time.NewTicker(animationTick)
	defer ticker.Stop()

	var lastDraw time.Time
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			if !store.HasSession(id) {
				log.Debug("Render loop exiting, session gone", logging.KeyCaptureID, id)
				return
			}
			if !lastDraw.IsZero() && now.Sub(lastDraw) < frameInterval {
				continue
			}
			lastDraw = now
			cc.draw(opts)

			out := media.CloneFrame(cc.canvas)
			cc.track.WriteFrame(out, now)
			media.PutFrame(out)
		}
	}
}

func (cc *canvasCapture) draw(opts Options) {
	b := cc.canvas.Bounds()

	cc.main.mu.RLock()
	if cc.main.frame != nil {
		xdraw.ApproxBiLinear.Scale(cc.canvas, b, cc.main.frame, cc.main.frame.Bounds(), xdraw.Src, nil)
	}
	cc.main.mu.RUnlock()

	rect := overlayRect(opts, b.Dx(), b.Dy())

	cc.overlay.mu.RLock()
	if cc.overlay.frame != nil {
		xdraw.ApproxBiLinear.Scale(cc.canvas, rect, cc.overlay.frame, cc.overlay.frame.Bounds(), xdraw.Src, nil)
	}
	cc.overlay.mu.RUnlock()
}

// overlayRect resolves the overlay rectangle from the size and position
// specs. Unparsable specs fall back to 20% of canvas width with a 16:9
// derived height, anchored bottom-right.
func overlayRect(opts Options, cw, ch int) image.Rectangle {
	ow, oh, err := overlaySize(opts.OverlaySize, float64(cw), float64(ch))
	if err != nil {
		ow = float64(cw) * 0.2
		oh = float64(cw) * 0.2 * 9 / 16
	}

	var x, y float64
	if opts.OverlayPosition == AnchorCustom && opts.OverlayCustomPosition != nil {
		var errX, errY error
		x, errX = parseCSS(opts.OverlayCustomPosition.Left, float64(cw))
		y, errY = parseCSS(opts.OverlayCustomPosition.Top, float64(ch))
		if errX != nil || errY != nil {
			x = overlayInset
			y = float64(ch) - oh - overlayInset
		}
	} else {
		x, y = anchorOrigin(opts.OverlayPosition, float64(cw), float64(ch), ow, oh)
	}

	return image.Rect(int(x), int(y), int(x+ow), int(y+oh))
}

func overlaySize(size *OverlaySize, cw, ch float64) (float64, float64, error) {
	if size == nil {
		return 0, 0, fmt.Errorf("no overlay size")
	}
	w, err := parseCSS(size.Width, cw)
	if err != nil {
		return 0, 0, err
	}
	h, err := parseCSS(size.Height, ch)
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}

func anchorOrigin(anchor OverlayAnchor, cw, ch, ow, oh float64) (float64, float64) {
	switch anchor {
	case AnchorCenter:
		return (cw - ow) / 2, (ch - oh) / 2
	case AnchorCenterLeft:
		return overlayInset, (ch - oh) / 2
	case AnchorCenterRight:
		return cw - ow - overlayInset, (ch - oh) / 2
	case AnchorTopCenter:
		return (cw - ow) / 2, overlayInset
	case AnchorTopLeft:
		return overlayInset, overlayInset
	case AnchorTopRight:
		return cw - ow - overlayInset, overlayInset
	case AnchorBottomCenter:
		return (cw - ow) / 2, ch - oh - overlayInset
	case AnchorBottomLeft:
		return overlayInset, ch - oh - overlayInset
	default: // BottomRight
		return cw - ow - overlayInset, ch - oh - overlayInset
	}
}

// parseCSS resolves a css-like value against a base: "50%" is relative,
// "320px" and "320" are absolute.
func parseCSS(d Dimension, base float64) (float64, error) {
	raw := strings.TrimSpace(d.CSSValue)
	if raw == "" {
		return 0, fmt.Errorf("empty css value")
	}
	if strings.HasSuffix(raw, "%") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
		if err != nil {
			return 0, err
		}
		return base * v / 100, nil
	}
	raw = strings.TrimSuffix(raw, "px")
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}
