package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/bouncer/internal/config"
	"github.com/san-kum/bouncer/internal/sim"
)

// ExportData is a whole run in a single JSON document.
type ExportData struct {
	RunMetadata
	Times      []float64    `json:"times"`
	Positions  [][3]float64 `json:"positions"`
	Velocities [][3]float64 `json:"velocities"`
}

func ExportJSON(path, scene string, cfg *config.Config, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, scene, cfg, result)
}

func WriteJSON(w io.Writer, scene string, cfg *config.Config, result *sim.Result) error {
	data := ExportData{
		RunMetadata: newMetadata("", scene, cfg, result),
		Times:       result.Times,
		Positions:   result.Positions,
		Velocities:  result.Velocities,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
