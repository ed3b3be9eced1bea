/*
DESCRIPTION
  types.go defines the value types held by shared pipeline state:
  calibration points and polygons, color parameters, camera control
  mirrors, preview activation, and rolling stats.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package state holds the shared, versioned configuration a single video
// frame is processed against: calibration, color, camera control mirrors,
// and preview activation. It is the only coordination point between the
// HTTP control plane and the pipeline driver.
package state

import "fmt"

// PointKind distinguishes a fixed corner from a runtime-added edge point.
type PointKind int

const (
	Corner PointKind = iota
	Edge
)

// Edge side identifiers: side k connects corner k to corner (k+1)%4.
const (
	EdgeTop = iota
	EdgeRight
	EdgeBottom
	EdgeLeft
)

// firstEdgeID is the first ID handed out to a runtime-added edge point;
// IDs below it are reserved for the four fixed corners.
const firstEdgeID = 100

// CalibrationPoint is one vertex of the source-side calibration polygon.
type CalibrationPoint struct {
	ID   int
	Kind PointKind
	// Edge is meaningful only when Kind == Edge: 0..3, see Edge* consts.
	Edge int
	// X, Y are normalized source-space coordinates in [0, 1].
	X, Y float64
}

// DefaultCorners is the default inset rectangle used on reset.
var DefaultCorners = [4]CalibrationPoint{
	{ID: 0, Kind: Corner, X: 0.1, Y: 0.1},
	{ID: 1, Kind: Corner, X: 0.9, Y: 0.1},
	{ID: 2, Kind: Corner, X: 0.9, Y: 0.9},
	{ID: 3, Kind: Corner, X: 0.1, Y: 0.9},
}

// UnitCorners is the identity rectangle (the full unit square); used as
// the starting calibration before any user adjustment, matching the
// "identity warp" law in spec.md.
var UnitCorners = [4]CalibrationPoint{
	{ID: 0, Kind: Corner, X: 0, Y: 0},
	{ID: 1, Kind: Corner, X: 1, Y: 0},
	{ID: 2, Kind: Corner, X: 1, Y: 1},
	{ID: 3, Kind: Corner, X: 0, Y: 1},
}

// CalibrationState holds the four corners, any edge points, whether warp
// is enabled, and the working resolution the points are defined against.
type CalibrationState struct {
	Corners [4]CalibrationPoint
	Edges   []CalibrationPoint
	Enabled bool
	Width   int
	Height  int
}

// Clone returns a deep copy suitable for copy-on-write mutation.
func (c *CalibrationState) Clone() *CalibrationState {
	n := *c
	n.Edges = append([]CalibrationPoint(nil), c.Edges...)
	return &n
}

// Point returns the point with the given ID, or false if none matches.
func (c *CalibrationState) Point(id int) (CalibrationPoint, bool) {
	for _, p := range c.Corners {
		if p.ID == id {
			return p, true
		}
	}
	for _, p := range c.Edges {
		if p.ID == id {
			return p, true
		}
	}
	return CalibrationPoint{}, false
}

// NextEdgeID returns the next free edge point ID, starting at 100.
func (c *CalibrationState) NextEdgeID() int {
	max := firstEdgeID - 1
	for _, p := range c.Edges {
		if p.ID > max {
			max = p.ID
		}
	}
	return max + 1
}

// EdgesOn returns the edge points lying on side e, ordered by distance
// from that edge's starting corner (corner e), per insertion order for
// ties. The distance is each point's projection onto the side's direction
// vector, from corner e toward corner (e+1)%4, so slanted sides order the
// same way as axis-aligned ones.
func (c *CalibrationState) EdgesOn(e int) []CalibrationPoint {
	var out []CalibrationPoint
	for _, p := range c.Edges {
		if p.Kind == Edge && p.Edge == e {
			out = append(out, p)
		}
	}
	start := c.Corners[e]
	end := c.Corners[(e+1)%4]
	dist := func(p CalibrationPoint) float64 {
		dx := p.X - start.X
		dy := p.Y - start.Y
		ex := end.X - start.X
		ey := end.Y - start.Y
		// Project onto the edge direction; works for axis-aligned and
		// arbitrary edges alike since we only need a consistent order.
		return dx*ex + dy*ey
	}
	// Stable insertion-order sort by projected distance.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && dist(out[j]) < dist(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// ColorSpace identifies the YUV<->RGB matrix convention in use.
type ColorSpace int

const (
	BT601 ColorSpace = iota
	BT709
	BT2020
)

func (c ColorSpace) String() string {
	switch c {
	case BT601:
		return "bt601"
	case BT709:
		return "bt709"
	case BT2020:
		return "bt2020"
	default:
		return fmt.Sprintf("ColorSpace(%d)", int(c))
	}
}

// InputRange identifies the luma/chroma quantization range of the source.
type InputRange int

const (
	Limited InputRange = iota
	Full
)

func (r InputRange) String() string {
	if r == Full {
		return "full"
	}
	return "limited"
}

// ColorState holds the color-correction pipeline's parameters.
type ColorState struct {
	Enabled    bool
	Space      ColorSpace
	Range      InputRange
	RedGain    float64
	GreenGain  float64
	BlueGain   float64
	Brightness float64 // [-100, 100]
	Contrast   float64 // [0, 2]
	Saturation float64 // [0, 2]
	Hue        float64 // [-180, 180]
	Gamma      float64 // [0.1, 3.0]
}

// DefaultColor returns a pass-through-equivalent ColorState: disabled, and
// with all adjustments at identity so toggling Enabled alone changes
// nothing else.
func DefaultColor() ColorState {
	return ColorState{
		Enabled:    false,
		Space:      BT709,
		Range:      Limited,
		RedGain:    1,
		GreenGain:  1,
		BlueGain:   1,
		Brightness: 0,
		Contrast:   1,
		Saturation: 1,
		Hue:        0,
		Gamma:      1,
	}
}

// Clamp clamps every field of c to its declared range in place.
func (c *ColorState) Clamp() {
	c.RedGain = clamp(c.RedGain, 0.5, 2.0)
	c.GreenGain = clamp(c.GreenGain, 0.5, 2.0)
	c.BlueGain = clamp(c.BlueGain, 0.5, 2.0)
	c.Brightness = clamp(c.Brightness, -100, 100)
	c.Contrast = clamp(c.Contrast, 0, 2)
	c.Saturation = clamp(c.Saturation, 0, 2)
	c.Hue = clamp(c.Hue, -180, 180)
	c.Gamma = clamp(c.Gamma, 0.1, 3.0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ControlID identifies a V4L2 control by its numeric control ID.
type ControlID uint32

// ControlValue is one camera control's mirrored value and activity flags.
type ControlValue struct {
	ID       ControlID
	Name     string
	Value    int64
	Min, Max int64
	Step     int64
	Default  int64
	// Disabled mirrors the driver's V4L2_CTRL_FLAG_DISABLED.
	Disabled bool
	// Inactive mirrors V4L2_CTRL_FLAG_INACTIVE, e.g. manual white-balance
	// temperature while auto white balance is on.
	Inactive bool
}

// ControlState mirrors the device's current control values, keyed by ID.
type ControlState struct {
	Values map[ControlID]ControlValue
}

// Clone returns a deep copy.
func (c *ControlState) Clone() *ControlState {
	n := ControlState{Values: make(map[ControlID]ControlValue, len(c.Values))}
	for k, v := range c.Values {
		n.Values[k] = v
	}
	return &n
}

// PreviewState is the encoder-activation gate plus the last encoded JPEGs.
type PreviewState struct {
	Active    bool
	RefCount  int
	RawJPEG   []byte
	RawTS     int64
	CorrJPEG  []byte
	CorrTS    int64
}

// Clone returns a shallow copy; JPEG byte slices are replaced wholesale on
// write, never mutated in place, so sharing them across clones is safe.
func (p *PreviewState) Clone() *PreviewState {
	n := *p
	return &n
}
