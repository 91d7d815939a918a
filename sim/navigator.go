package sim

import "gonum.org/v1/gonum/spatial/r3"

// PointLocation classifies a point relative to a cell.
type PointLocation int

const (
	PointOutside PointLocation = iota
	PointInside
	PointOnSurface
)

// Ray is a position plus a unit direction.
type Ray struct {
	Position  r3.Vec
	Direction r3.Vec
}

// RayHit describes the first surface crossed by a ray fired from inside a cell.
type RayHit struct {
	Distance float64   // cm to the crossing point
	Surface  SurfaceID // surface that is crossed
	Normal   r3.Vec    // outward unit normal of the surface at the crossing point
	NextCell CellID    // cell on the other side
	Escaped  bool      // true when the next cell is outside the model
}

// Navigator is the geometry oracle consumed by the transport core.
// Implementations must be safe for concurrent read-only use.
type Navigator interface {
	// FindCellContainingRay returns the cell containing the ray origin.
	// When candidates is non-empty only those cells are tested.
	FindCellContainingRay(ray Ray, candidates []CellID) (CellID, error)

	// PointLocation classifies the ray origin with respect to cell.
	PointLocation(ray Ray, cell CellID) PointLocation

	// FireRay returns the first surface crossing of a ray starting in cell.
	FireRay(ray Ray, cell CellID) (RayHit, error)
}
