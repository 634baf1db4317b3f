package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/pendulab/internal/dynamo"
)

// PhasePoint is one (θ, ω) sample.
type PhasePoint struct{ X, Y float64 }

// PhasePortrait2D holds data for a 2D phase space plot
type PhasePortrait2D struct {
	XIndex, YIndex int
	Points         []PhasePoint
}

// NewPhasePortrait projects a trajectory onto two state components.
// Non-finite rows are skipped.
func NewPhasePortrait(tr dynamo.Trajectory, xIdx, yIdx int) (*PhasePortrait2D, error) {
	if xIdx < 0 || yIdx < 0 || xIdx >= dynamo.StateDim || yIdx >= dynamo.StateDim {
		return nil, fmt.Errorf("%w: components %d and %d", dynamo.ErrDimensionMismatch, xIdx, yIdx)
	}

	portrait := &PhasePortrait2D{
		XIndex: xIdx,
		YIndex: yIdx,
		Points: make([]PhasePoint, 0, len(tr)),
	}
	for _, x := range tr {
		if len(x) != dynamo.StateDim || !x.IsValid() {
			continue
		}
		portrait.Points = append(portrait.Points, PhasePoint{X: x[xIdx], Y: x[yIdx]})
	}
	return portrait, nil
}

// ASCII renders the portrait on a width×height character canvas with the
// axes drawn where they cross the visible area.
func (portrait *PhasePortrait2D) ASCII(width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y
	for _, p := range portrait.Points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	// 10% padding
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

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// Crossings returns the linearly interpolated times at which series passes
// upward through threshold.
func Crossings(times, series []float64, threshold float64) ([]float64, error) {
	if len(times) != len(series) {
		return nil, fmt.Errorf("%w: %d times, %d samples", dynamo.ErrDimensionMismatch, len(times), len(series))
	}

	var out []float64
	for i := 1; i < len(series); i++ {
		prev, curr := series[i-1], series[i]
		if !(prev < threshold && curr >= threshold) {
			continue
		}
		frac := (threshold - prev) / (curr - prev)
		if math.IsNaN(frac) || math.IsInf(frac, 0) {
			frac = 0.5
		}
		out = append(out, times[i-1]+frac*(times[i]-times[i-1]))
	}
	return out, nil
}

// EstimatePeriod returns the mean spacing of upward zero crossings.
func EstimatePeriod(times, series []float64) (float64, error) {
	cross, err := Crossings(times, series, 0)
	if err != nil {
		return 0, err
	}
	if len(cross) < 2 {
		return 0, fmt.Errorf("%w: %d upward zero crossings", ErrInsufficientData, len(cross))
	}
	return (cross[len(cross)-1] - cross[0]) / float64(len(cross)-1), nil
}
