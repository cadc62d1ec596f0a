package spatial

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
)

// readShapefile reads polygon shapes from a .shp file and the CRS from its
// .prj sidecar, if present. Each record is assembled into polygons on its
// own: clockwise rings are shells and every counter-clockwise ring becomes
// a hole of the smallest shell around it.
func readShapefile(path string) (areaSource, error) {
	r, err := shp.Open(path)
	if err != nil {
		return areaSource{}, fmt.Errorf("open shapefile: %w", err)
	}
	defer r.Close()

	src := areaSource{}
	skipped := map[string]int{}
	for r.Next() {
		_, shape := r.Shape()
		var rings [][][]float64
		switch s := shape.(type) {
		case *shp.Polygon:
			rings = ringsFromParts(s.Parts, s.Points)
		case *shp.PolygonZ:
			rings = ringsFromParts(s.Parts, s.Points)
		case *shp.PolygonM:
			rings = ringsFromParts(s.Parts, s.Points)
		default:
			skipped[fmt.Sprintf("%T", shape)]++
			continue
		}
		src.polygons = append(src.polygons, assemblePolygons(rings)...)
	}
	if err := r.Err(); err != nil {
		return areaSource{}, fmt.Errorf("read shapefile: %w", err)
	}
	for shapeType, count := range skipped {
		slog.Warn("ignoring non-polygon shapes in shapefile", "path", path, "type", shapeType, "count", count)
	}

	prj, err := os.ReadFile(strings.TrimSuffix(path, filepath.Ext(path)) + ".prj")
	switch {
	case err == nil:
		src.crs = strings.TrimSpace(string(prj))
	case !errors.Is(err, fs.ErrNotExist):
		return areaSource{}, fmt.Errorf("read projection file: %w", err)
	}

	return src, nil
}

// assemblePolygons groups the rings of one record into polygons. A hole that
// no shell encloses is kept as a polygon of its own, since writers do not
// always respect ring orientation.
func assemblePolygons(rings [][][]float64) []polygon {
	var shells, holes [][][]float64
	for _, ring := range rings {
		if len(ring) < 4 {
			continue
		}
		if signedArea(ring) < 0 {
			shells = append(shells, ring)
		} else {
			holes = append(holes, ring)
		}
	}

	polygons := make([]polygon, len(shells))
	for i, shell := range shells {
		polygons[i] = polygon{shell}
	}

	for _, hole := range holes {
		owner := -1
		for i, shell := range shells {
			if !ringEncloses(shell, hole) {
				continue
			}
			if owner < 0 || math.Abs(signedArea(shell)) < math.Abs(signedArea(shells[owner])) {
				owner = i
			}
		}
		if owner < 0 {
			polygons = append(polygons, polygon{hole})
			continue
		}
		polygons[owner] = append(polygons[owner], hole)
	}
	return polygons
}

// ringEncloses reports whether inner lies inside outer, judged by the first
// vertex of inner that is not on the boundary of outer.
func ringEncloses(outer, inner [][]float64) bool {
	for _, pt := range inner {
		if onRing(outer, pt) {
			continue
		}
		return pointInRing(outer, pt)
	}
	return false
}

// pointInRing is an even-odd ray cast towards +x.
func pointInRing(ring [][]float64, pt []float64) bool {
	x, y := pt[0], pt[1]
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

func onRing(ring [][]float64, pt []float64) bool {
	x, y := pt[0], pt[1]
	for i := 0; i < len(ring)-1; i++ {
		ax, ay := ring[i][0], ring[i][1]
		bx, by := ring[i+1][0], ring[i+1][1]
		if (bx-ax)*(y-ay)-(by-ay)*(x-ax) != 0 {
			continue
		}
		if math.Min(ax, bx) <= x && x <= math.Max(ax, bx) && math.Min(ay, by) <= y && y <= math.Max(ay, by) {
			return true
		}
	}
	return false
}

func ringsFromParts(parts []int32, points []shp.Point) [][][]float64 {
	rings := make([][][]float64, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(points) {
			continue
		}
		ring := make([][]float64, 0, end-start)
		for _, pt := range points[start:end] {
			ring = append(ring, []float64{pt.X, pt.Y})
		}
		rings = append(rings, ring)
	}
	return rings
}

// signedArea is positive for counter-clockwise rings.
func signedArea(ring [][]float64) float64 {
	sum := 0.0
	for i := 0; i < len(ring)-1; i++ {
		sum += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return sum / 2
}
