// Package compose lays rasterized statement pages out two-per-sheet on a
// fixed-size white canvas and writes the result as a paginated PDF.
package compose

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// A4Pixels returns the A4 canvas size in pixels at the given DPI.
func A4Pixels(dpi int) image.Point {
	return image.Point{X: int(8.27 * float64(dpi)), Y: int(11.7 * float64(dpi))}
}

// Placement is the computed geometry for one source page within its half of
// the canvas. Scaled is nil when the page fits unscaled; otherwise it holds
// the aspect-preserving target size.
type Placement struct {
	X, Y   int
	Scaled *image.Point
}

// PlacementFor computes where a source page of size src goes on a canvas,
// in the upper or lower half. A page overflowing its half-canvas is scaled
// down by the larger of the width and height ratios; offsets keep the
// whitespace above and below the pair proportional whether or not scaling
// happened. All division truncates.
func PlacementFor(src, canvas image.Point, upper bool) Placement {
	widthRatio := float64(src.X) / float64(canvas.X)
	heightRatio := float64(src.Y) / float64(canvas.Y) * 2

	if widthRatio <= 1 && heightRatio <= 1 {
		x := (canvas.X - src.X) / 2
		y := (canvas.Y - src.Y) / 4
		if !upper {
			y = (canvas.Y-src.Y)/2 + src.Y
		}
		return Placement{X: x, Y: y}
	}

	var scaled image.Point
	if widthRatio > heightRatio {
		scaled = image.Point{X: canvas.X, Y: int(float64(src.Y) / widthRatio)}
	} else {
		scaled = image.Point{X: int(float64(src.X) / heightRatio), Y: canvas.Y / 2}
	}
	x := (canvas.X - scaled.X) / 2
	y := (canvas.Y - 2*scaled.Y) / 4
	if !upper {
		y = (canvas.Y-2*scaled.Y)/2 + scaled.Y
	}
	return Placement{X: x, Y: y, Scaled: &scaled}
}

// Compose places the pages two at a time onto white canvases: page 2k in
// the upper half and page 2k+1 in the lower half of canvas k. An odd final
// page leaves its canvas's lower half blank.
func Compose(pages []image.Image, canvas image.Point) []image.Image {
	var sheets []image.Image
	for i := 0; i < len(pages); i += 2 {
		sheet := image.NewRGBA(image.Rect(0, 0, canvas.X, canvas.Y))
		draw.Draw(sheet, sheet.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

		place(sheet, pages[i], canvas, true)
		if i+1 < len(pages) {
			place(sheet, pages[i+1], canvas, false)
		}
		sheets = append(sheets, sheet)
	}
	return sheets
}

func place(sheet *image.RGBA, page image.Image, canvas image.Point, upper bool) {
	b := page.Bounds()
	p := PlacementFor(b.Size(), canvas, upper)
	if p.Scaled == nil {
		target := image.Rect(p.X, p.Y, p.X+b.Dx(), p.Y+b.Dy())
		draw.Draw(sheet, target, page, b.Min, draw.Over)
		return
	}
	target := image.Rect(p.X, p.Y, p.X+p.Scaled.X, p.Y+p.Scaled.Y)
	xdraw.CatmullRom.Scale(sheet, target, page, b, xdraw.Over, nil)
}
