package analysis

import (
	"strings"
)

type Point struct{ X, Y float64 }

// PhasePortrait holds data for a 2D phase space plot.
type PhasePortrait struct {
	XLabel, YLabel string
	Points         []Point
}

// HeightPhase pairs each recorded height with the vertical velocity at the
// same sample. A bouncing ball traces nested arcs that shrink with every
// lossy impact.
func HeightPhase(positions, velocities [][3]float64) *PhasePortrait {
	n := min(len(positions), len(velocities))
	p := &PhasePortrait{
		XLabel: "height",
		YLabel: "vertical velocity",
		Points: make([]Point, n),
	}
	for i := 0; i < n; i++ {
		p.Points[i] = Point{X: positions[i][1], Y: velocities[i][1]}
	}
	return p
}

// ImpactMap plots each rebound speed against the next one. A constant
// restitution puts every point on the line y = e*x.
func ImpactMap(impacts []Impact) *PhasePortrait {
	p := &PhasePortrait{XLabel: "rebound n", YLabel: "rebound n+1"}
	for i := 1; i < len(impacts); i++ {
		p.Points = append(p.Points, Point{X: impacts[i-1].SpeedOut, Y: impacts[i].SpeedOut})
	}
	return p
}

// PhasePortraitToASCII converts phase portrait to ASCII art
func PhasePortraitToASCII(portrait *PhasePortrait, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y
	for _, p := range portrait.Points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

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
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	// axes, where they cross the visible area
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
	if portrait.XLabel != "" {
		sb.WriteString(portrait.XLabel + " → · " + portrait.YLabel + " ↑\n")
	}
	return sb.String()
}
