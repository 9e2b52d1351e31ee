// Package plot renders the SNR-vs-brightness curve as a PNG image. It is a
// deliberately small renderer: scatter points on a log-scaled SNR axis,
// decade ticks, an optional detection-threshold line. Persisting the image
// is the caller's job.
package plot

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/signalsfoundry/hawki-etc/core"
)

// ErrNoData indicates there is nothing to plot: no points, or no point with
// a positive SNR to place on the log axis.
var ErrNoData = errors.New("no plottable curve points")

// Options controls the rendering. Zero values pick the defaults below.
type Options struct {
	Width  int // pixels, default 800
	Height int // pixels, default 600
	// Threshold draws a dashed horizontal line at this SNR when positive.
	Threshold float64
	Title     string
}

const (
	defaultWidth  = 800
	defaultHeight = 600

	marginLeft   = 70
	marginRight  = 20
	marginTop    = 40
	marginBottom = 50
)

var (
	colBackground = color.RGBA{255, 255, 255, 255}
	colAxis       = color.RGBA{0, 0, 0, 255}
	colGrid       = color.RGBA{210, 210, 210, 255}
	colPoint      = color.RGBA{20, 20, 20, 255}
	colThreshold  = color.RGBA{200, 30, 30, 255}
)

// RenderCurve draws the curve into a fresh RGBA image. Points with
// non-positive SNR cannot be placed on the log axis and are skipped; if none
// remain the render fails with ErrNoData.
func RenderCurve(points []core.CurvePoint, opts Options) (*image.RGBA, error) {
	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}
	height := opts.Height
	if height <= 0 {
		height = defaultHeight
	}

	plottable := make([]core.CurvePoint, 0, len(points))
	for _, p := range points {
		if p.SNR > 0 {
			plottable = append(plottable, p)
		}
	}
	if len(plottable) == 0 {
		return nil, ErrNoData
	}

	magMin, magMax := plottable[0].Magnitude, plottable[0].Magnitude
	logMin, logMax := math.Log10(plottable[0].SNR), math.Log10(plottable[0].SNR)
	for _, p := range plottable[1:] {
		magMin = math.Min(magMin, p.Magnitude)
		magMax = math.Max(magMax, p.Magnitude)
		logMin = math.Min(logMin, math.Log10(p.SNR))
		logMax = math.Max(logMax, math.Log10(p.SNR))
	}
	if opts.Threshold > 0 {
		logMin = math.Min(logMin, math.Log10(opts.Threshold))
		logMax = math.Max(logMax, math.Log10(opts.Threshold))
	}
	// Degenerate spans still need a drawable range.
	if magMax == magMin {
		magMax = magMin + 1
	}
	if logMax == logMin {
		logMax = logMin + 1
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{colBackground}, image.Point{}, draw.Src)

	plotW := width - marginLeft - marginRight
	plotH := height - marginTop - marginBottom

	xFor := func(mag float64) int {
		return marginLeft + int(float64(plotW)*(mag-magMin)/(magMax-magMin))
	}
	yFor := func(snr float64) int {
		frac := (math.Log10(snr) - logMin) / (logMax - logMin)
		return marginTop + plotH - int(float64(plotH)*frac)
	}

	drawGridAndTicks(img, magMin, magMax, logMin, logMax, xFor, yFor, width, height)

	// Axes.
	hLine(img, marginLeft, width-marginRight, height-marginBottom, colAxis)
	vLine(img, marginLeft, marginTop, height-marginBottom, colAxis)

	if opts.Threshold > 0 {
		y := yFor(opts.Threshold)
		for x := marginLeft; x < width-marginRight; x += 8 {
			hLine(img, x, min(x+4, width-marginRight), y, colThreshold)
		}
		drawLabel(img, width-marginRight-70, y-4, fmt.Sprintf("SNR=%g", opts.Threshold), colThreshold)
	}

	for _, p := range plottable {
		drawDot(img, xFor(p.Magnitude), yFor(p.SNR), colPoint)
	}

	title := opts.Title
	if title == "" {
		title = "SNR vs. star brightness"
	}
	drawLabel(img, marginLeft, marginTop-15, title, colAxis)
	drawLabel(img, width/2-60, height-15, "Brightness (mag)", colAxis)
	drawLabel(img, 8, marginTop-15, "SNR", colAxis)

	return img, nil
}

func drawGridAndTicks(img *image.RGBA, magMin, magMax, logMin, logMax float64, xFor func(float64) int, yFor func(float64) int, width, height int) {
	// Vertical grid: whole magnitudes, labels every second one.
	for mag := math.Ceil(magMin); mag <= magMax; mag++ {
		x := xFor(mag)
		vLine(img, x, marginTop, height-marginBottom, colGrid)
		if int(mag)%2 == 0 {
			drawLabel(img, x-8, height-marginBottom+16, fmt.Sprintf("%g", mag), colAxis)
		}
	}

	// Horizontal grid: SNR decades.
	for exp := math.Ceil(logMin); exp <= logMax; exp++ {
		y := yFor(math.Pow(10, exp))
		hLine(img, marginLeft, width-marginRight, y, colGrid)
		drawLabel(img, 10, y+4, fmt.Sprintf("1e%d", int(exp)), colAxis)
	}
}

func drawDot(img *image.RGBA, cx, cy int, c color.RGBA) {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx*dx+dy*dy <= 2 {
				setInBounds(img, cx+dx, cy+dy, c)
			}
		}
	}
}

func hLine(img *image.RGBA, x0, x1, y int, c color.RGBA) {
	for x := x0; x <= x1; x++ {
		setInBounds(img, x, y, c)
	}
}

func vLine(img *image.RGBA, x, y0, y1 int, c color.RGBA) {
	for y := y0; y <= y1; y++ {
		setInBounds(img, x, y, c)
	}
}

func setInBounds(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

func drawLabel(img *image.RGBA, x, y int, text string, c color.RGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
