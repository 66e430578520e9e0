package domain

import (
	"fmt"
	"math"

	"github.com/samirrijal/voltrip/internal/pkg/geospatial"
)

// keyPrecision is the number of decimals kept when keying a position.
// Six decimals is roughly 0.1 m, well below any charger spacing and above the
// jitter introduced by round-tripping coordinates through JSON services.
const keyPrecision = 6

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Key returns the canonical identity of the point at keyPrecision.
func (p GeoPoint) Key() string {
	return fmt.Sprintf("%.*f,%.*f", keyPrecision, p.Lat, keyPrecision, p.Lng)
}

// Equal reports whether two points denote the same position.
func (p GeoPoint) Equal(o GeoPoint) bool {
	return p.Key() == o.Key()
}

// DistanceTo returns the great-circle distance in meters.
func (p GeoPoint) DistanceTo(o GeoPoint) float64 {
	return geospatial.Haversine(p.Lat, p.Lng, o.Lat, o.Lng)
}

func (p GeoPoint) String() string { return p.Key() }

// BoundingBox represents a geographic bounding box. Min is never greater than Max on either axis.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// BoundsFrom builds the box spanned by two arbitrary corners.
func BoundsFrom(a, b GeoPoint) BoundingBox {
	return BoundingBox{
		MinLat: math.Min(a.Lat, b.Lat),
		MaxLat: math.Max(a.Lat, b.Lat),
		MinLng: math.Min(a.Lng, b.Lng),
		MaxLng: math.Max(a.Lng, b.Lng),
	}
}

// Extend returns the smallest box containing both b and p.
func (b BoundingBox) Extend(p GeoPoint) BoundingBox {
	return BoundingBox{
		MinLat: math.Min(b.MinLat, p.Lat),
		MaxLat: math.Max(b.MaxLat, p.Lat),
		MinLng: math.Min(b.MinLng, p.Lng),
		MaxLng: math.Max(b.MaxLng, p.Lng),
	}
}

// Pad grows the box by meters on every side.
func (b BoundingBox) Pad(meters float64) BoundingBox {
	if meters <= 0 {
		return b
	}
	minLat, minLng, _, _ := geospatial.BoundingBox(b.MinLat, b.MinLng, meters)
	_, _, maxLat, maxLng := geospatial.BoundingBox(b.MaxLat, b.MaxLng, meters)
	return BoundingBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}
}

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBox) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// Valid checks ordering and WGS 84 ranges.
func (b BoundingBox) Valid() bool {
	return b.MinLat <= b.MaxLat &&
		b.MinLng <= b.MaxLng &&
		b.MinLat >= -90 && b.MaxLat <= 90 &&
		b.MinLng >= -180 && b.MaxLng <= 180
}

// NorthEast and SouthWest return the box corners.
func (b BoundingBox) NorthEast() GeoPoint { return GeoPoint{Lat: b.MaxLat, Lng: b.MaxLng} }
func (b BoundingBox) SouthWest() GeoPoint { return GeoPoint{Lat: b.MinLat, Lng: b.MinLng} }

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%.*f,%.*f..%.*f,%.*f]",
		keyPrecision, b.MinLat, keyPrecision, b.MinLng, keyPrecision, b.MaxLat, keyPrecision, b.MaxLng)
}
