package world

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// ErrMissingKey is matched by every MissingKeyError.
var ErrMissingKey = errors.New("missing required key")

// MissingKeyError reports a required key absent from a world definition file.
type MissingKeyError struct {
	Key  string
	File string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("required key %q missing from the world definition file %q", e.Key, e.File)
}

// Is lets errors.Is match ErrMissingKey.
func (e *MissingKeyError) Is(target error) bool {
	return target == ErrMissingKey
}

// Cell is one grid cell of a world definition.
type Cell struct {
	Coord     Coord
	Terrain   Terrain
	Elevation float64 // km
	Period    Period
}

// Definition is a complete world layout: dimensions and one Cell per position,
// stored row-major (index x + y*Width).
type Definition struct {
	Width  int
	Height int
	Cells  []Cell
}

// NewDefinition returns a width×height definition filled with sea.
func NewDefinition(width, height int) *Definition {
	d := &Definition{Width: width, Height: height, Cells: make([]Cell, width*height)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			d.Cells[x+y*width] = Cell{Coord: Coord{X: x, Y: y}, Terrain: TerrainSea}
		}
	}
	return d
}

// Uniform returns a width×height definition where every cell has the given
// terrain, zero elevation, and period agri1.
func Uniform(width, height int, t Terrain) *Definition {
	d := NewDefinition(width, height)
	for i := range d.Cells {
		d.Cells[i].Terrain = t
	}
	return d
}

// Get returns the cell at c, or nil if out of bounds.
func (d *Definition) Get(c Coord) *Cell {
	if !InBounds(c, d.Width, d.Height) {
		return nil
	}
	return &d.Cells[Index(c, d.Width)]
}

// Set overwrites the cell at cell.Coord.
func (d *Definition) Set(cell Cell) error {
	if !InBounds(cell.Coord, d.Width, d.Height) {
		return fmt.Errorf("cell (%d,%d) outside %dx%d world", cell.Coord.X, cell.Coord.Y, d.Width, d.Height)
	}
	d.Cells[Index(cell.Coord, d.Width)] = cell
	return nil
}

// TerrainCounts returns a summary of terrain type distribution.
func (d *Definition) TerrainCounts() map[Terrain]int {
	counts := make(map[Terrain]int)
	for _, c := range d.Cells {
		counts[c.Terrain]++
	}
	return counts
}

// rawCommunity is the on-disk shape of one community entry.
type rawCommunity struct {
	X          int    `yaml:"x"`
	Y          int    `yaml:"y"`
	Terrain    string `yaml:"terrain"`
	Elevation  *int   `yaml:"elevation,omitempty"` // metres
	ActiveFrom string `yaml:"activeFrom,omitempty"`
}

type rawDefinition struct {
	XDim        int            `yaml:"xdim"`
	YDim        int            `yaml:"ydim"`
	Communities []rawCommunity `yaml:"communities"`
}

const definitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["xdim", "ydim", "communities"],
  "properties": {
    "xdim": {"type": "integer", "minimum": 1},
    "ydim": {"type": "integer", "minimum": 1},
    "communities": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["x", "y", "terrain"],
        "properties": {
          "x": {"type": "integer", "minimum": 0},
          "y": {"type": "integer", "minimum": 0},
          "terrain": {"enum": ["agriculture", "steppe", "desert", "sea"]},
          "elevation": {"type": "integer"},
          "activeFrom": {"enum": ["agri1", "agri2", "agri3"]}
        }
      }
    }
  }
}`

var schema = jsonschema.MustCompileString("world.schema.json", definitionSchema)

// Load reads a world definition from a YAML file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read world definition: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes a YAML world definition. name identifies the source in errors.
func Parse(data []byte, name string) (*Definition, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := checkRequiredKeys(doc, name); err != nil {
		return nil, err
	}

	// Round-trip through JSON so the validator sees JSON-native types.
	js, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	var generic any
	if err := json.Unmarshal(js, &generic); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := schema.Validate(generic); err != nil {
		return nil, fmt.Errorf("%s: invalid world definition: %w", name, err)
	}

	var raw rawDefinition
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	def := NewDefinition(raw.XDim, raw.YDim)
	for i, rc := range raw.Communities {
		t, err := ParseTerrain(rc.Terrain)
		if err != nil {
			return nil, fmt.Errorf("%s: community %d: %w", name, i, err)
		}
		cell := Cell{Coord: Coord{X: rc.X, Y: rc.Y}, Terrain: t}
		if t.PolityForming() {
			cell.Elevation = float64(*rc.Elevation) / 1000
			p, err := ParsePeriod(rc.ActiveFrom)
			if err != nil {
				return nil, fmt.Errorf("%s: community %d: %w", name, i, err)
			}
			cell.Period = p
		}
		if err := def.Set(cell); err != nil {
			return nil, fmt.Errorf("%s: community %d: %w", name, i, err)
		}
	}
	return def, nil
}

// checkRequiredKeys reports the first required key missing from doc.
func checkRequiredKeys(doc map[string]any, name string) error {
	for _, key := range []string{"xdim", "ydim", "communities"} {
		if _, ok := doc[key]; !ok {
			return &MissingKeyError{Key: key, File: name}
		}
	}
	list, ok := doc["communities"].([]any)
	if !ok {
		return nil // schema validation reports the type error
	}
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		required := []string{"x", "y", "terrain"}
		if tag, _ := entry["terrain"].(string); tag == "agriculture" || tag == "steppe" {
			required = append(required, "elevation", "activeFrom")
		}
		for _, key := range required {
			if _, ok := entry[key]; !ok {
				return &MissingKeyError{Key: fmt.Sprintf("communities[%d].%s", i, key), File: name}
			}
		}
	}
	return nil
}

// Marshal encodes the definition in the YAML world-definition format.
func (d *Definition) Marshal() ([]byte, error) {
	raw := rawDefinition{XDim: d.Width, YDim: d.Height}
	raw.Communities = make([]rawCommunity, 0, len(d.Cells))
	for _, c := range d.Cells {
		rc := rawCommunity{X: c.Coord.X, Y: c.Coord.Y, Terrain: c.Terrain.String()}
		if c.Terrain.PolityForming() {
			m := int(math.Round(c.Elevation * 1000))
			rc.Elevation = &m
			rc.ActiveFrom = c.Period.String()
		}
		raw.Communities = append(raw.Communities, rc)
	}
	return yaml.Marshal(raw)
}

// Save writes the definition to path as YAML.
func (d *Definition) Save(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return fmt.Errorf("marshal world definition: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}
