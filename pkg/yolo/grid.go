package yolo

// Channel layout of each (row, col, anchor) slot of a Grid
const (
	ChanX          = 0 // Center offset inside the cell, [0,1)
	ChanY          = 1
	ChanW          = 2 // log(box width / anchor width)
	ChanH          = 3
	ChanObjectness = 4
	ChanClass0     = 5 // One-hot class vector starts here
)

// Grid is the ground truth tensor of one detection scale, with shape
// (Rows, Cols, Anchors, 5 + Classes).
type Grid struct {
	Rows    int
	Cols    int
	Anchors int
	Classes int
	Stride  int
	Data    []float32

	// Ignore marks cells whose center lies inside a crowd region. Shape (Rows, Cols).
	Ignore []bool

	// Number of times that a box overwrote an earlier box in the same slot
	Collisions int
}

func NewGrid(rows, cols, anchors, classes, stride int) *Grid {
	return &Grid{
		Rows:    rows,
		Cols:    cols,
		Anchors: anchors,
		Classes: classes,
		Stride:  stride,
		Data:    make([]float32, rows*cols*anchors*(ChanClass0+classes)),
		Ignore:  make([]bool, rows*cols),
	}
}

// Number of values per (row, col, anchor) slot
func (g *Grid) Channels() int {
	return ChanClass0 + g.Classes
}

// Shape of Data
func (g *Grid) Shape() [4]int {
	return [4]int{g.Rows, g.Cols, g.Anchors, g.Channels()}
}

// Slot returns the channel vector of one (row, col, anchor) slot
func (g *Grid) Slot(row, col, anchor int) []float32 {
	nc := g.Channels()
	i := ((row*g.Cols+col)*g.Anchors + anchor) * nc
	return g.Data[i : i+nc]
}

func (g *Grid) Objectness(row, col, anchor int) float32 {
	return g.Slot(row, col, anchor)[ChanObjectness]
}

func (g *Grid) IsIgnored(row, col int) bool {
	return g.Ignore[row*g.Cols+col]
}

// NumObjects returns the number of slots with objectness set
func (g *Grid) NumObjects() int {
	n := 0
	nc := g.Channels()
	for i := ChanObjectness; i < len(g.Data); i += nc {
		if g.Data[i] != 0 {
			n++
		}
	}
	return n
}
