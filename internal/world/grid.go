package world

import "math"

// Coord is a cell position on the rectangular grid.
type Coord struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Direction indexes the four cardinal neighbours.
type Direction uint8

const (
	Left Direction = iota
	Right
	Up
	Down
)

// NumDirections is the number of cardinal directions.
const NumDirections = 4

// Directions lists the cardinal directions in canonical order.
var Directions = [NumDirections]Direction{Left, Right, Up, Down}

// directionOffsets defines the neighbour offsets. Up is +y.
var directionOffsets = [NumDirections]Coord{
	Left:  {X: -1, Y: 0},
	Right: {X: 1, Y: 0},
	Up:    {X: 0, Y: 1},
	Down:  {X: 0, Y: -1},
}

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}

// Neighbor returns the coordinate one step in direction d.
func (c Coord) Neighbor(d Direction) Coord {
	off := directionOffsets[d]
	return Coord{X: c.X + off.X, Y: c.Y + off.Y}
}

// Neighbors returns the four cardinal coordinates, indexed by Direction.
func (c Coord) Neighbors() [NumDirections]Coord {
	var result [NumDirections]Coord
	for _, d := range Directions {
		result[d] = c.Neighbor(d)
	}
	return result
}

// Distance returns the Euclidean distance between two cells in cell units.
func Distance(a, b Coord) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// InBounds reports whether c lies within a width×height grid.
func InBounds(c Coord, width, height int) bool {
	return c.X >= 0 && c.X < width && c.Y >= 0 && c.Y < height
}

// Index returns the row-major slice index of c (x + y*width).
func Index(c Coord, width int) int {
	return c.X + c.Y*width
}
