package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/ctrlkit/internal/dynamo"
)

type Point struct{ X, Y float64 }

// PhasePortrait holds two state variables of a trajectory.
type PhasePortrait struct {
	XIndex, YIndex int
	Points         []Point
}

// NewPhasePortrait extracts states xIdx and yIdx from a simulation result.
func NewPhasePortrait(result *dynamo.Result, xIdx, yIdx int) (*PhasePortrait, error) {
	if result == nil || len(result.States) == 0 {
		return nil, fmt.Errorf("analysis: empty trajectory")
	}
	dim := len(result.States[0])
	if xIdx < 0 || yIdx < 0 || xIdx >= dim || yIdx >= dim {
		return nil, fmt.Errorf("state indices (%d, %d) for %d states: %w", xIdx, yIdx, dim, dynamo.ErrDimensionMismatch)
	}

	portrait := &PhasePortrait{
		XIndex: xIdx,
		YIndex: yIdx,
		Points: make([]Point, len(result.States)),
	}
	for i, x := range result.States {
		portrait.Points[i] = Point{X: x[xIdx], Y: x[yIdx]}
	}
	return portrait, nil
}

func (p *PhasePortrait) bounds() (minX, maxX, minY, maxY float64) {
	minX, maxX = p.Points[0].X, p.Points[0].X
	minY, maxY = p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX = min(minX, pt.X)
		maxX = max(maxX, pt.X)
		minY = min(minY, pt.Y)
		maxY = max(maxY, pt.Y)
	}
	return
}

// ASCII draws the portrait on a width x height character grid with axes
// through the origin when it is in view.
func (p *PhasePortrait) ASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX, minY, maxY := p.bounds()

	// pad by 10%
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

	col := func(x float64) int { return int((x - minX) / rangeX * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-minY)/rangeY*float64(height-1)) }

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	if minX <= 0 && maxX >= 0 {
		c := col(0)
		for r := range canvas {
			canvas[r][c] = '│'
		}
	}
	if minY <= 0 && maxY >= 0 {
		r := row(0)
		for c := range canvas[r] {
			if canvas[r][c] == '│' {
				canvas[r][c] = '┼'
			} else {
				canvas[r][c] = '─'
			}
		}
	}

	for _, pt := range p.Points {
		r, c := row(pt.Y), col(pt.X)
		if r >= 0 && r < height && c >= 0 && c < width {
			canvas[r][c] = '•'
		}
	}

	start := p.Points[0]
	if r, c := row(start.Y), col(start.X); r >= 0 && r < height && c >= 0 && c < width {
		canvas[r][c] = 'o'
	}

	var sb strings.Builder
	for _, line := range canvas {
		sb.WriteString(string(line))
		sb.WriteRune('\n')
	}
	return sb.String()
}
