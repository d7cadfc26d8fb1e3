package legend

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// WritePNG rasterises the legend. oksvg does not render <text>, so labels
// are drawn onto the image with a bitmap face after the shapes.
func WritePNG(w io.Writer, lg Legend) error {
	var buf bytes.Buffer
	labels := drawShapes(&buf, lg, false)

	icon, err := oksvg.ReadIconStream(&buf)
	if err != nil {
		return fmt.Errorf("parsing legend svg: %w", err)
	}

	width, height := Width, Height(lg)
	icon.SetTarget(0, 0, float64(width), float64(height))

	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, rgba, rgba.Bounds())
	raster := rasterx.NewDasher(width, height, scanner)
	icon.Draw(raster, 1.0)

	drawLabels(rgba, labels)

	if err := png.Encode(w, rgba); err != nil {
		return fmt.Errorf("encoding legend png: %w", err)
	}
	return nil
}

func drawLabels(dst *image.RGBA, labels []label) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
	}
	for _, l := range labels {
		d.Dot = fixed.P(l.X, l.Y)
		d.DrawString(l.Text)
		if l.Bold {
			// Overstrike one pixel right.
			d.Dot = fixed.P(l.X+1, l.Y)
			d.DrawString(l.Text)
		}
	}
}
