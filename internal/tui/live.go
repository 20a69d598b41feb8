package tui

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/san-kum/bouncer/internal/sim"
)

const (
	width       = 70
	height      = 20
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

type point struct{ x, y int }

// LiveRenderer is a sim.Observer that redraws a side view of the ball, x
// across and y up, at most frameRate times per second.
type LiveRenderer struct {
	out       io.Writer
	scene     string
	frameRate int
	lastFrame time.Time
	canvas    [][]rune
	trail     []point

	// world units visible across the canvas and up from the ground
	spanX, spanY float64
}

func NewLiveRenderer(out io.Writer, scene string, frameRate int, spanX, spanY float64) *LiveRenderer {
	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
	}
	return &LiveRenderer{
		out:       out,
		scene:     scene,
		frameRate: frameRate,
		canvas:    canvas,
		trail:     make([]point, 0, 50),
		spanX:     spanX,
		spanY:     spanY,
	}
}

func (r *LiveRenderer) OnStep(s sim.Sample) {
	if r.frameRate > 0 {
		if time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
			return
		}
		r.lastFrame = time.Now()
	}

	r.clear()
	r.drawGround()
	r.drawBall(s)
	r.render(s)
}

func (r *LiveRenderer) clear() {
	for y := range r.canvas {
		for x := range r.canvas[y] {
			r.canvas[y][x] = ' '
		}
	}
}

func (r *LiveRenderer) set(x, y int, c rune) {
	if x >= 0 && x < width && y >= 0 && y < height {
		r.canvas[y][x] = c
	}
}

// toScreen maps world x and y to a cell; the ground sits on the bottom row.
func (r *LiveRenderer) toScreen(x, y float64) point {
	sx := width/2 + int(math.Round(x/r.spanX*float64(width)))
	sy := height - 2 - int(math.Round(y/r.spanY*float64(height-2)))
	return point{sx, sy}
}

func (r *LiveRenderer) drawGround() {
	for x := 0; x < width; x++ {
		r.set(x, height-1, '=')
	}
}

func (r *LiveRenderer) drawBall(s sim.Sample) {
	p := r.toScreen(s.Position.X(), s.Position.Y())

	r.trail = append(r.trail, p)
	if len(r.trail) > 40 {
		r.trail = r.trail[1:]
	}
	for i, pt := range r.trail {
		if i < len(r.trail)/2 {
			r.set(pt.x, pt.y, '.')
		} else {
			r.set(pt.x, pt.y, 'o')
		}
	}
	r.set(p.x, p.y, 'O')
}

func (r *LiveRenderer) Frame() string {
	var b strings.Builder
	for _, row := range r.canvas {
		b.WriteString(string(row))
		b.WriteString("\n")
	}
	return b.String()
}

func (r *LiveRenderer) render(s sim.Sample) {
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(fmt.Sprintf("  %s  t=%.2fs  step=%d\n", r.scene, s.Time, s.Step))
	b.WriteString("  " + strings.Repeat("-", width) + "\n")

	for _, row := range r.canvas {
		b.WriteString("  ")
		b.WriteString(string(row))
		b.WriteString("\n")
	}

	b.WriteString("  " + strings.Repeat("-", width) + "\n")
	b.WriteString(fmt.Sprintf("  y=%.3f vy=%.3f |v|=%.3f contacts=%d\n",
		s.Position.Y(), s.Velocity.Y(), s.Velocity.Len(), s.Stats.Contacts))

	fmt.Fprint(r.out, b.String())
}

func (r *LiveRenderer) Start() { fmt.Fprint(r.out, hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Fprint(r.out, showCursor) }
