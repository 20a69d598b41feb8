// Package viz renders the bouncing-ball scene in the terminal.
//
// The package provides:
//
//   - [Model]: a Bubble Tea viewer that steps a simulation live
//   - [Menu]: preset picker that launches the viewer
//   - [Canvas]: Braille-based pixel canvas used for the wireframe view
//   - [HeightPlot]: asciigraph plot of the ball height over time
//   - Theme selection with built-in color schemes
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Rebuild the scene
//	T     - Cycle color themes
//	G     - Toggle GIF recording
//	?     - Show help overlay
//	[]    - Time travel (rewind/forward)
//	arrows/hjkl - Orbit camera, +/- zoom
package viz
