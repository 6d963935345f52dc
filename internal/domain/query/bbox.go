package query

import (
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
)

// BoundingBox is an axis-aligned rectangle over the 2D projected-embedding
// plane, used for spatial filtering.
type BoundingBox struct {
	bounds *geom.Bounds
}

// NewBoundingBox validates and creates a bounding box from
// (min-x, min-y, max-x, max-y).
func NewBoundingBox(minX, minY, maxX, maxY float64) (BoundingBox, error) {
	for _, v := range []float64{minX, minY, maxX, maxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return BoundingBox{}, fmt.Errorf("bounding box coordinates must be finite")
		}
	}
	if minX >= maxX {
		return BoundingBox{}, fmt.Errorf("bounding box min-x %g must be less than max-x %g", minX, maxX)
	}
	if minY >= maxY {
		return BoundingBox{}, fmt.Errorf("bounding box min-y %g must be less than max-y %g", minY, maxY)
	}
	b := geom.NewBounds(geom.XY)
	b.SetCoords(geom.Coord{minX, minY}, geom.Coord{maxX, maxY})
	return BoundingBox{bounds: b}, nil
}

// MinX returns the lower x bound.
func (b BoundingBox) MinX() float64 { return b.bounds.Min(0) }

// MinY returns the lower y bound.
func (b BoundingBox) MinY() float64 { return b.bounds.Min(1) }

// MaxX returns the upper x bound.
func (b BoundingBox) MaxX() float64 { return b.bounds.Max(0) }

// MaxY returns the upper y bound.
func (b BoundingBox) MaxY() float64 { return b.bounds.Max(1) }

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%g,%g,%g,%g]", b.MinX(), b.MinY(), b.MaxX(), b.MaxY())
}
