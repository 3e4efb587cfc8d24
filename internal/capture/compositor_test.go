package capture

import (
	"image"
	"testing"
)

func overlaySizePx(w, h string) *OverlaySize {
	return &OverlaySize{
		Width:  Dimension{CSSValue: w},
		Height: Dimension{CSSValue: h},
	}
}

func TestOverlayRectAnchors(t *testing.T) {
	// 1000x800 canvas, 200x100 overlay, 20px inset
	base := Options{OverlaySize: overlaySizePx("200px", "100px")}

	cases := []struct {
		anchor OverlayAnchor
		want   image.Rectangle
	}{
		{AnchorTopLeft, image.Rect(20, 20, 220, 120)},
		{AnchorTopCenter, image.Rect(400, 20, 600, 120)},
		{AnchorTopRight, image.Rect(780, 20, 980, 120)},
		{AnchorCenterLeft, image.Rect(20, 350, 220, 450)},
		{AnchorCenter, image.Rect(400, 350, 600, 450)},
		{AnchorCenterRight, image.Rect(780, 350, 980, 450)},
		{AnchorBottomLeft, image.Rect(20, 680, 220, 780)},
		{AnchorBottomCenter, image.Rect(400, 680, 600, 780)},
		{AnchorBottomRight, image.Rect(780, 680, 980, 780)},
	}
	for _, tc := range cases {
		opts := base
		opts.OverlayPosition = tc.anchor
		if got := overlayRect(opts, 1000, 800); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.anchor, got, tc.want)
		}
	}
}

func TestOverlayRectCustomPercent(t *testing.T) {
	opts := Options{
		OverlayPosition: AnchorCustom,
		OverlaySize:     overlaySizePx("200", "100"),
		OverlayCustomPosition: &OverlayOffset{
			Left: Dimension{CSSValue: "50%"},
			Top:  Dimension{CSSValue: "50%"},
		},
	}
	want := image.Rect(500, 400, 700, 500)
	if got := overlayRect(opts, 1000, 800); got != want {
		t.Errorf("custom 50%%/50%%: got %v, want %v", got, want)
	}
}

func TestOverlayRectCustomFallback(t *testing.T) {
	opts := Options{
		OverlayPosition: AnchorCustom,
		OverlaySize:     overlaySizePx("200px", "100px"),
		OverlayCustomPosition: &OverlayOffset{
			Left: Dimension{CSSValue: "garbage"},
			Top:  Dimension{CSSValue: "50%"},
		},
	}
	// unparsable custom position falls back to bottom-left-ish defaults
	want := image.Rect(20, 680, 220, 780)
	if got := overlayRect(opts, 1000, 800); got != want {
		t.Errorf("custom fallback: got %v, want %v", got, want)
	}
}

func TestOverlayRectSizeFallback(t *testing.T) {
	// no size spec: 20% of canvas width, 16:9 height, bottom-right
	got := overlayRect(Options{}, 1000, 800)
	// ow=200, oh=112.5 -> int truncation
	want := image.Rect(780, 667, 980, 780)
	if got != want {
		t.Errorf("default size: got %v, want %v", got, want)
	}
}

func TestParseCSS(t *testing.T) {
	cases := []struct {
		raw  string
		base float64
		want float64
		ok   bool
	}{
		{"50%", 1000, 500, true},
		{"320px", 1000, 320, true},
		{"320", 1000, 320, true},
		{" 25% ", 400, 100, true},
		{"", 1000, 0, false},
		{"abc", 1000, 0, false},
	}
	for _, tc := range cases {
		got, err := parseCSS(Dimension{CSSValue: tc.raw}, tc.base)
		if (err == nil) != tc.ok {
			t.Errorf("parseCSS(%q): err = %v, ok = %v", tc.raw, err, tc.ok)
			continue
		}
		if tc.ok && got != tc.want {
			t.Errorf("parseCSS(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
