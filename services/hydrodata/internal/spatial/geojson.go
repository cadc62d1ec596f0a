package spatial

import (
	"encoding/json"
	"fmt"
	"log/slog"

	geojson "github.com/paulmach/go.geojson"
)

// geojsonHeader picks out the document type and the legacy named CRS
// member ({"crs": {"type": "name", "properties": {"name": "EPSG:31983"}}}).
type geojsonHeader struct {
	Type string `json:"type"`
	CRS  *struct {
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"crs"`
}

func readGeoJSON(data []byte) (areaSource, error) {
	var header geojsonHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return areaSource{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}

	src := areaSource{}
	if header.CRS != nil {
		src.crs = header.CRS.Properties.Name
	}

	var geometries []*geojson.Geometry
	switch header.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return areaSource{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		for _, f := range fc.Features {
			geometries = append(geometries, f.Geometry)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return areaSource{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		geometries = append(geometries, f.Geometry)
	case "":
		return areaSource{}, fmt.Errorf("%w: missing GeoJSON type", ErrInvalidGeometry)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return areaSource{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		geometries = append(geometries, g)
	}

	skipped := 0
	for _, g := range geometries {
		skipped += collectPolygons(g, &src.polygons)
	}
	if skipped > 0 {
		slog.Warn("ignoring non-polygonal geometries in area", "count", skipped)
	}
	return src, nil
}

// collectPolygons appends every polygon found in g and returns how many
// non-polygonal geometries were skipped.
func collectPolygons(g *geojson.Geometry, out *[]polygon) int {
	if g == nil {
		return 0
	}

	switch g.Type {
	case geojson.GeometryPolygon:
		*out = append(*out, toPolygon(g.Polygon))
	case geojson.GeometryMultiPolygon:
		for _, p := range g.MultiPolygon {
			*out = append(*out, toPolygon(p))
		}
	case geojson.GeometryCollection:
		skipped := 0
		for _, child := range g.Geometries {
			skipped += collectPolygons(child, out)
		}
		return skipped
	default:
		return 1
	}
	return 0
}

// toPolygon copies positions and drops any altitude.
func toPolygon(rings [][][]float64) polygon {
	p := make(polygon, 0, len(rings))
	for _, ring := range rings {
		r := make([][]float64, 0, len(ring))
		for _, pos := range ring {
			if len(pos) < 2 {
				continue
			}
			r = append(r, []float64{pos[0], pos[1]})
		}
		p = append(p, r)
	}
	return p
}
