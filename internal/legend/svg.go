package legend

import (
	"bytes"
	"fmt"
	"io"
	"math"

	svg "github.com/ajstarks/svgo"

	"github.com/joeblew999/plat-geoview/internal/style"
)

// Layout of the rendered legend, in pixels.
const (
	Width     = 320
	padding   = 10
	rowHeight = 48
	titleY    = 14
	swatchY   = 32
	labelW    = 56
	barW      = 110
	barH      = 10
)

// label is text placed on the legend. The SVG writer emits it as <text>;
// the PNG writer draws it over the rasterised shapes.
type label struct {
	X, Y int
	Text string
	Bold bool
}

// Height returns the canvas height for lg.
func Height(lg Legend) int {
	if lg.Empty() {
		return rowHeight
	}
	return 2*padding + len(lg.Entries)*rowHeight
}

// WriteSVG renders lg as a standalone SVG document.
func WriteSVG(w io.Writer, lg Legend) error {
	var buf bytes.Buffer
	drawShapes(&buf, lg, true)
	_, err := buf.WriteTo(w)
	return err
}

// drawShapes writes the SVG. When withText is false the labels are only
// returned, for raster output that draws text itself.
func drawShapes(w io.Writer, lg Legend, withText bool) []label {
	canvas := svg.New(w)
	h := Height(lg)
	canvas.Start(Width, h)
	canvas.Rect(0, 0, Width, h, "fill:white")

	var labels []label
	if lg.Empty() {
		labels = append(labels, label{X: padding, Y: rowHeight / 2, Text: "No layers selected"})
	}
	for i, e := range lg.Entries {
		top := padding + i*rowHeight
		labels = append(labels, label{X: padding, Y: top + titleY, Text: e.Title, Bold: true})
		labels = append(labels, drawEntry(canvas, e, top+swatchY)...)
	}

	if withText {
		for _, l := range labels {
			s := "font-family:sans-serif;font-size:11px;fill:black"
			if l.Bold {
				s += ";font-weight:bold"
			}
			canvas.Text(l.X, l.Y, l.Text, s)
		}
	}
	canvas.End()
	return labels
}

// drawEntry draws one row's swatches centred on cy and returns its labels.
func drawEntry(canvas *svg.SVG, e Row, cy int) []label {
	x := padding
	if !e.Graded() {
		drawConstant(canvas, e, x, cy)
		return nil
	}

	labels := []label{{X: x, Y: cy + 4, Text: e.MinLabel}}
	x += labelW
	switch e.Kind {
	case style.Polygon:
		drawFillBar(canvas, e.Swatches, x, cy)
		x += barW
	case style.Line:
		drawWidthRamp(canvas, e.Swatches, x, cy)
		x += barW
	case style.Point:
		x = drawPoints(canvas, e.Swatches, x, cy)
	}
	labels = append(labels, label{X: x + 6, Y: cy + 4, Text: e.MaxLabel})
	return labels
}

func drawConstant(canvas *svg.SVG, e Row, x, cy int) {
	if len(e.Swatches) == 0 {
		return
	}
	v := e.Swatches[0].Visual
	switch e.Kind {
	case style.Polygon:
		canvas.Rect(x, cy-barH/2, 2*barH, barH, fillStyle(v))
	case style.Line:
		canvas.Line(x, cy, x+3*barH, cy, strokeStyle(v))
	case style.Point:
		canvas.Circle(x+barH, cy, radius(v), fillStyle(v))
	}
}

// drawFillBar lays the polygon fill stops side by side.
func drawFillBar(canvas *svg.SVG, sw []Swatch, x, cy int) {
	if len(sw) == 0 {
		return
	}
	step := barW / len(sw)
	for i, s := range sw {
		canvas.Rect(x+i*step, cy-barH/2, step, barH, "stroke:none;"+fill(s.Visual))
	}
	canvas.Rect(x, cy-barH/2, step*len(sw), barH, "fill:none;"+stroke(sw[0].Visual))
}

// drawWidthRamp draws one segment per line stop at its resolved width.
func drawWidthRamp(canvas *svg.SVG, sw []Swatch, x, cy int) {
	if len(sw) == 0 {
		return
	}
	step := barW / len(sw)
	for i, s := range sw {
		canvas.Line(x+i*step, cy, x+(i+1)*step, cy, strokeStyle(s.Visual)+";stroke-linecap:butt")
	}
}

// drawPoints draws the min and max point samples and returns the x past them.
func drawPoints(canvas *svg.SVG, sw []Swatch, x, cy int) int {
	for _, s := range sw {
		r := radius(s.Visual)
		canvas.Circle(x+r, cy, r, fillStyle(s.Visual))
		x += 2*r + 6
	}
	return x
}

func radius(v style.Visual) int {
	return int(math.Max(1, math.Round(v.Radius)))
}

func fill(v style.Visual) string {
	if v.Fill == nil {
		return "fill:none"
	}
	return "fill:" + v.Fill.Hex()
}

func stroke(v style.Visual) string {
	if v.Stroke == nil {
		return "stroke:none"
	}
	return fmt.Sprintf("stroke:%s;stroke-width:%g", v.Stroke.Color.Hex(), v.Stroke.Width)
}

func fillStyle(v style.Visual) string {
	if v.Kind == style.Point {
		return fill(v) + ";stroke:black;stroke-width:0.5"
	}
	return fill(v) + ";" + stroke(v)
}

func strokeStyle(v style.Visual) string {
	return "fill:none;" + stroke(v)
}
