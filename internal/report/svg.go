package report

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/san-kum/pendulab/internal/dynamo"
	"github.com/san-kum/pendulab/internal/experiment"
)

const (
	DefaultSVGWidth  = 800
	DefaultSVGHeight = 480
)

var palette = []string{"#00d7af", "#ff5f87", "#ffaf00", "#5fafff", "#af87ff", "#d7d7d7"}

// Series is one named polyline of a figure.
type Series struct {
	Name string
	X, Y []float64
}

// ErrorSeries pairs every run's log10 angle error with the report times.
func ErrorSeries(times []float64, runs []experiment.Run) []Series {
	out := make([]Series, 0, len(runs))
	for _, r := range runs {
		y := make([]float64, len(r.AngleError))
		for i, e := range r.AngleError {
			y[i] = logOrNaN(e)
		}
		out = append(out, Series{Name: Label(r.Scheme, r.Dt), X: times, Y: y})
	}
	return out
}

// SweepSeries gives log10 max error against log10 dt for every scheme.
func SweepSeries(results []experiment.SweepResult) []Series {
	out := make([]Series, 0, len(results))
	for _, r := range results {
		s := Series{Name: r.Scheme.String(), X: make([]float64, len(r.Dts)), Y: make([]float64, len(r.Dts))}
		for i, dt := range r.Dts {
			s.X[i] = logOrNaN(dt)
			if i < len(r.MaxErrors) {
				s.Y[i] = logOrNaN(r.MaxErrors[i])
			} else {
				s.Y[i] = math.NaN()
			}
		}
		out = append(out, s)
	}
	return out
}

func logOrNaN(v float64) float64 {
	if !(v > 0) || math.IsInf(v, 0) {
		return math.NaN()
	}
	return math.Log10(v)
}

// WriteSVG draws series as polylines on a shared frame, with a legend in
// the top left corner. Non-finite points break the line.
func WriteSVG(w io.Writer, title string, series []Series, width, height int) error {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		if len(s.X) != len(s.Y) {
			return fmt.Errorf("%w: series %s has %d x and %d y", dynamo.ErrDimensionMismatch, s.Name, len(s.X), len(s.Y))
		}
		for i := range s.X {
			if !finite(s.X[i]) || !finite(s.Y[i]) {
				continue
			}
			minX, maxX = math.Min(minX, s.X[i]), math.Max(maxX, s.X[i])
			minY, maxY = math.Min(minY, s.Y[i]), math.Max(maxY, s.Y[i])
		}
	}
	if math.IsInf(minX, 1) {
		return fmt.Errorf("%w: nothing finite to draw", dynamo.ErrDimensionMismatch)
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
	fmt.Fprintf(bw, `<text x="%d" y="20" fill="#d7d7d7" font-family="monospace" font-size="14" text-anchor="middle">%s</text>
`, width/2, escape(title))
	fmt.Fprintf(bw, `<text x="4" y="%d" fill="#808080" font-family="monospace" font-size="10">[%.3g, %.3g] × [%.3g, %.3g]</text>
`, height-4, minX, maxX, minY, maxY)

	for k, s := range series {
		color := palette[k%len(palette)]

		var d strings.Builder
		pen := false
		for i := range s.X {
			if !finite(s.X[i]) || !finite(s.Y[i]) {
				pen = false
				continue
			}
			x := (s.X[i] - minX) / rangeX * float64(width)
			y := float64(height) - (s.Y[i]-minY)/rangeY*float64(height)
			if pen {
				fmt.Fprintf(&d, " L%.1f,%.1f", x, y)
			} else {
				if d.Len() > 0 {
					d.WriteByte(' ')
				}
				fmt.Fprintf(&d, "M%.1f,%.1f", x, y)
				pen = true
			}
		}
		if d.Len() > 0 {
			fmt.Fprintf(bw, `<path fill="none" stroke="%s" stroke-width="1.5" d="%s"/>
`, color, d.String())
		}
		fmt.Fprintf(bw, `<text x="10" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 40+16*k, color, escape(s.Name))
	}

	bw.WriteString("</svg>\n")
	return bw.Flush()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func escape(s string) string {
	var sb strings.Builder
	if err := xml.EscapeText(&sb, []byte(s)); err != nil {
		return ""
	}
	return sb.String()
}
