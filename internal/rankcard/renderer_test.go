package rankcard

import (
	"bytes"
	"context"
	"image/png"
	"testing"
)

func TestRenderPNGDecodes(t *testing.T) {
	r := NewRenderer()
	data, err := r.RenderPNG(context.Background(), Card{Name: "tester", Level: 2, Experience: 147})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a decodable PNG: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != cardWidth || b.Dy() != cardHeight {
		t.Fatalf("unexpected dimensions: %dx%d", b.Dx(), b.Dy())
	}
}

func TestBackdropRatioClamped(t *testing.T) {
	r := NewRenderer()
	// experience far past the threshold must not break the bar geometry
	if _, err := r.RenderPNG(context.Background(), Card{Name: "x", Level: 1, Experience: 9999}); err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	if _, err := r.RenderPNG(context.Background(), Card{Name: "x", Level: 0, Experience: 0}); err != nil {
		t.Fatalf("RenderPNG with zero level: %v", err)
	}
}
