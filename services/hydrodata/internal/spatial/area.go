// Package spatial loads area-of-interest polygons and filters stations by
// containment.
package spatial

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/twpayne/go-geos"
)

var (
	ErrAreaNotFound      = errors.New("area file not found")
	ErrEmptyArea         = errors.New("area has no polygons")
	ErrUnsupportedFormat = errors.New("unsupported area format")
	ErrInvalidGeometry   = errors.New("invalid area geometry")
)

// polygon is a list of rings, each a list of [x, y] positions. The first
// ring is the shell; any further rings are holes.
type polygon [][][]float64

// areaSource is what a reader extracts from a file before normalization.
type areaSource struct {
	polygons []polygon
	crs      string
}

// LoadArea reads a GeoJSON (.geojson, .json) or shapefile (.shp) and returns
// the union of all its polygons in WGS84 longitude/latitude.
func LoadArea(path string) (*geos.Geom, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Error("area file not found", "path", path)
			return nil, fmt.Errorf("%w: %s", ErrAreaNotFound, path)
		}
		return nil, fmt.Errorf("stat area file: %w", err)
	}

	slog.Info("loading area of interest", "path", path)

	var (
		src areaSource
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("read area file: %w", readErr)
		}
		src, err = readGeoJSON(data)
	case ".shp":
		src, err = readShapefile(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}

	return buildArea(src, path)
}

// ParseGeoJSON builds an area from an in-memory GeoJSON document.
func ParseGeoJSON(data []byte) (*geos.Geom, error) {
	src, err := readGeoJSON(data)
	if err != nil {
		return nil, err
	}
	return buildArea(src, "geojson document")
}

func buildArea(src areaSource, name string) (*geos.Geom, error) {
	if len(src.polygons) == 0 {
		slog.Error("area has no polygons", "source", name)
		return nil, fmt.Errorf("%w: %s", ErrEmptyArea, name)
	}

	switch {
	case src.crs == "":
		slog.Warn("area has no CRS, assuming EPSG:4326; check that this is correct", "source", name)
	case !isWGS84(src.crs):
		slog.Info("reprojecting area to EPSG:4326", "source", name, "crs", src.crs)
		if err := reproject(src.crs, src.polygons); err != nil {
			return nil, err
		}
	}

	area, err := unionPolygons(src.polygons)
	if err != nil {
		return nil, err
	}
	if area.IsEmpty() {
		return nil, fmt.Errorf("%w: %s", ErrEmptyArea, name)
	}

	slog.Info("area of interest loaded", "source", name, "type", area.Type(), "approx_area", area.Area())
	return area, nil
}

// unionPolygons dissolves all polygons, holes included, into one geometry.
// go-geos panics on GEOS errors, so the panic is turned into an error.
func unionPolygons(polygons []polygon) (area *geos.Geom, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidGeometry, r)
		}
	}()

	return unionAll(polygons), nil
}

func unionAll(polygons []polygon) *geos.Geom {
	geoms := make([]*geos.Geom, 0, len(polygons))
	for _, p := range polygons {
		g := geos.NewPolygon(closeRings(p))
		if !g.IsValid() {
			g = g.MakeValid()
		}
		geoms = append(geoms, g)
	}
	return geos.NewCollection(geos.GeometryCollectionTypeID, geoms).UnaryUnion()
}

func closeRings(p polygon) [][][]float64 {
	rings := make([][][]float64, 0, len(p))
	for _, ring := range p {
		if n := len(ring); n > 0 {
			first, last := ring[0], ring[n-1]
			if first[0] != last[0] || first[1] != last[1] {
				ring = append(ring[:n:n], []float64{first[0], first[1]})
			}
		}
		rings = append(rings, ring)
	}
	return rings
}
