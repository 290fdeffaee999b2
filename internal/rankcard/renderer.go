package rankcard

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Card is the profile data drawn onto a rank card.
type Card struct {
	Name       string
	Level      int
	Experience int
}

type Renderer struct{}

func NewRenderer() *Renderer { return &Renderer{} }

const (
	cardWidth  = 420
	cardHeight = 140

	barX      = 24
	barY      = 96
	barWidth  = cardWidth - barX*2
	barHeight = 14
)

// RenderPNG draws the card as a PNG image: an SVG backdrop with the XP
// progress bar, then text overlaid with a bitmap face.
func (r *Renderer) RenderPNG(ctx context.Context, card Card) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	threshold := card.Level * 100
	ratio := 0.0
	if threshold > 0 {
		ratio = float64(card.Experience) / float64(threshold)
	}
	if ratio > 1 {
		ratio = 1
	}
	if ratio < 0 {
		ratio = 0
	}

	img, err := rasterBackdrop(buildBackdropSVG(ratio))
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(card.Name)
	if name == "" {
		name = "someone"
	}
	drawLabel(img, 24, 38, fmt.Sprintf("Kurimuzon Profile - %s", name), color.White)
	drawLabel(img, 24, 66, fmt.Sprintf("Level: %d", card.Level), color.RGBA{R: 220, G: 120, B: 140, A: 255})
	drawLabel(img, 140, 66, fmt.Sprintf("XP: %d / %d", card.Experience, threshold), color.RGBA{R: 200, G: 200, B: 210, A: 255})

	var out bytes.Buffer
	if err := png.Encode(&out, img); err != nil {
		return nil, fmt.Errorf("encode card png: %w", err)
	}
	return out.Bytes(), nil
}

func buildBackdropSVG(ratio float64) []byte {
	fillWidth := int(float64(barWidth) * ratio)
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		cardWidth, cardHeight, cardWidth, cardHeight)
	// panel
	fmt.Fprintf(&b, `<rect x="0" y="0" width="%d" height="%d" rx="16" style="fill:#1d1f27"/>`, cardWidth, cardHeight)
	fmt.Fprintf(&b, `<rect x="0" y="0" width="8" height="%d" rx="4" style="fill:#a4133c"/>`, cardHeight)
	// progress track and fill
	fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="%d" rx="7" style="fill:#2c2f3a"/>`, barX, barY, barWidth, barHeight)
	if fillWidth > 0 {
		fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="%d" rx="7" style="fill:#c9184a"/>`, barX, barY, fillWidth, barHeight)
	}
	b.WriteString(`</svg>`)
	return []byte(b.String())
}

func rasterBackdrop(svg []byte) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("parse card svg: %w", err)
	}
	icon.SetTarget(0, 0, cardWidth, cardHeight)

	img := image.NewRGBA(image.Rect(0, 0, cardWidth, cardHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(cardWidth, cardHeight, img, img.Bounds())
	raster := rasterx.NewDasher(cardWidth, cardHeight, scanner)
	icon.Draw(raster, 1.0)
	return img, nil
}

func drawLabel(img *image.RGBA, x, y int, text string, col color.Color) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
