package places

import (
	"github.com/twpayne/go-geom"
)

// Grid defaults: a 4x4 lattice spaced 0.02 degrees (about 2.2 km) apart.
const (
	DefaultGridSize   = 4
	DefaultGridSpread = 0.02
)

// GenerateGrid returns size*size points centered on center, row-major with
// latitude as the outer axis. A non-positive spread uses DefaultGridSpread.
func GenerateGrid(center LatLng, size int, spread float64) []LatLng {
	if size <= 0 {
		return nil
	}
	if spread <= 0 {
		spread = DefaultGridSpread
	}

	mid := float64(size-1) / 2
	points := make([]LatLng, 0, size*size)
	for i := range size {
		for j := range size {
			points = append(points, LatLng{
				Lat: center.Lat + (float64(i)-mid)*spread,
				Lng: center.Lng + (float64(j)-mid)*spread,
			})
		}
	}
	return points
}

// GridBounds returns the bounding box (x = lng, y = lat) covering points,
// or nil when there are none.
func GridBounds(points []LatLng) *geom.Bounds {
	if len(points) == 0 {
		return nil
	}
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.Lng, p.Lat)
	}
	return geom.NewMultiPointFlat(geom.XY, flat).Bounds()
}
