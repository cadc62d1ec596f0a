package spatial

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"

	"github.com/02loveslollipop/hydrodata/services/hydrodata/internal/models"
)

const wgs84WKT = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

func TestLoadAreaUnitSquare(t *testing.T) {
	area, err := LoadArea(filepath.Join("testdata", "unit_square.geojson"))
	if err != nil {
		t.Fatalf("LoadArea failed: %v", err)
	}

	if got := area.Area(); math.Abs(got-1) > 1e-9 {
		t.Errorf("Expected area 1, got %v", got)
	}
	b := area.Bounds()
	if b.MinX != 0 || b.MinY != 0 || b.MaxX != 1 || b.MaxY != 1 {
		t.Errorf("Unexpected bounds %+v", b)
	}
}

func TestLoadAreaUnionsFeatures(t *testing.T) {
	area, err := LoadArea(filepath.Join("testdata", "two_basins.geojson"))
	if err != nil {
		t.Fatalf("LoadArea failed: %v", err)
	}

	// [0,2]x[0,1] and [1,3]x[0,1] overlap into [0,3]x[0,1], plus a separate
	// unit square far away.
	if got := area.Area(); math.Abs(got-4) > 1e-9 {
		t.Errorf("Expected dissolved area 4, got %v", got)
	}
	if got := area.Type(); got != "MultiPolygon" {
		t.Errorf("Expected MultiPolygon, got %s", got)
	}
}

func TestLoadAreaErrors(t *testing.T) {
	dir := t.TempDir()
	unsupported := filepath.Join(dir, "area.kml")
	if err := os.WriteFile(unsupported, []byte("<kml/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	garbage := filepath.Join(dir, "broken.geojson")
	if err := os.WriteFile(garbage, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing", filepath.Join(dir, "missing.geojson"), ErrAreaNotFound},
		{"no polygons", filepath.Join("testdata", "no_polygons.geojson"), ErrEmptyArea},
		{"unsupported", unsupported, ErrUnsupportedFormat},
		{"malformed", garbage, ErrInvalidGeometry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			area, err := LoadArea(tt.path)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if area != nil {
				t.Error("No geometry should be returned on error")
			}
		})
	}
}

func TestParseGeoJSONBareGeometry(t *testing.T) {
	area, err := ParseGeoJSON([]byte(`{"type": "Polygon", "coordinates": [[[0, 0], [2, 0], [2, 2], [0, 2], [0, 0]]]}`))
	if err != nil {
		t.Fatalf("ParseGeoJSON failed: %v", err)
	}
	if got := area.Area(); math.Abs(got-4) > 1e-9 {
		t.Errorf("Expected area 4, got %v", got)
	}
}

func TestParseGeoJSONEmptyCollection(t *testing.T) {
	_, err := ParseGeoJSON([]byte(`{"type": "FeatureCollection", "features": []}`))
	if !errors.Is(err, ErrEmptyArea) {
		t.Errorf("Expected ErrEmptyArea, got %v", err)
	}
}

// mercator projects lon/lat degrees to spherical web mercator meters.
func mercator(lon, lat float64) (float64, float64) {
	const r = 6378137.0
	x := r * lon * math.Pi / 180
	y := r * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

func squareGeoJSON(crs string, corners [][2]float64) string {
	coords := ""
	for i, c := range corners {
		if i > 0 {
			coords += ", "
		}
		coords += fmt.Sprintf("[%.10f, %.10f]", c[0], c[1])
	}
	return fmt.Sprintf(`{
		"type": "FeatureCollection",
		"crs": {"type": "name", "properties": {"name": %q}},
		"features": [{"type": "Feature", "properties": {}, "geometry": {"type": "Polygon", "coordinates": [[%s]]}}]
	}`, crs, coords)
}

func TestLoadAreaReprojects(t *testing.T) {
	dir := t.TempDir()
	lonlat := [][2]float64{{-44, -20}, {-43, -20}, {-43, -19}, {-44, -19}, {-44, -20}}

	projected := make([][2]float64, 0, len(lonlat))
	for _, c := range lonlat {
		x, y := mercator(c[0], c[1])
		projected = append(projected, [2]float64{x, y})
	}

	wgsPath := filepath.Join(dir, "wgs84.geojson")
	mercPath := filepath.Join(dir, "mercator.geojson")
	if err := os.WriteFile(wgsPath, []byte(squareGeoJSON("EPSG:4326", lonlat)), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(mercPath, []byte(squareGeoJSON("EPSG:3857", projected)), 0o644); err != nil {
		t.Fatal(err)
	}

	want, err := LoadArea(wgsPath)
	if err != nil {
		t.Fatalf("LoadArea(wgs84) failed: %v", err)
	}
	got, err := LoadArea(mercPath)
	if err != nil {
		t.Fatalf("LoadArea(mercator) failed: %v", err)
	}

	wb, gb := want.Bounds(), got.Bounds()
	const tol = 1e-6
	if math.Abs(wb.MinX-gb.MinX) > tol || math.Abs(wb.MinY-gb.MinY) > tol ||
		math.Abs(wb.MaxX-gb.MaxX) > tol || math.Abs(wb.MaxY-gb.MaxY) > tol {
		t.Errorf("Reprojected bounds %+v differ from %+v", gb, wb)
	}
}

func writeShapefile(t *testing.T, path string, parts [][]shp.Point) {
	t.Helper()
	writeShapefileRecords(t, path, [][][]shp.Point{parts})
}

// writeShapefileRecords writes one polygon record per entry of records.
func writeShapefileRecords(t *testing.T, path string, records [][][]shp.Point) {
	t.Helper()

	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		t.Fatalf("shp.Create failed: %v", err)
	}
	for _, parts := range records {
		p := shp.Polygon(*shp.NewPolyLine(parts))
		w.Write(&p)
	}
	w.Close()
}

// Rings for a [0,4] basin with a [1,3] lake holding a [1.5,2.5] island.
var (
	basinShell = []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 4}, {X: 4, Y: 4}, {X: 4, Y: 0}, {X: 0, Y: 0}}
	lakeHole   = []shp.Point{{X: 1, Y: 1}, {X: 3, Y: 1}, {X: 3, Y: 3}, {X: 1, Y: 3}, {X: 1, Y: 1}}
	islandRing = []shp.Point{{X: 1.5, Y: 1.5}, {X: 1.5, Y: 2.5}, {X: 2.5, Y: 2.5}, {X: 2.5, Y: 1.5}, {X: 1.5, Y: 1.5}}
	lakeShell  = []shp.Point{{X: 1, Y: 1}, {X: 1, Y: 3}, {X: 3, Y: 3}, {X: 3, Y: 1}, {X: 1, Y: 1}}
)

func TestLoadAreaShapefileIslandInLake(t *testing.T) {
	path := filepath.Join(t.TempDir(), "basin.shp")
	writeShapefile(t, path, [][]shp.Point{basinShell, lakeHole, islandRing})

	area, err := LoadArea(path)
	if err != nil {
		t.Fatalf("LoadArea failed: %v", err)
	}
	if got := area.Area(); math.Abs(got-13) > 1e-9 {
		t.Errorf("Expected area 13, got %v", got)
	}

	inside := FilterContaining([]models.Station{
		{Code: 1, Latitude: 2, Longitude: 2},
		{Code: 2, Latitude: 1.2, Longitude: 1.2},
		{Code: 3, Latitude: 0.5, Longitude: 0.5},
	}, area)
	if len(inside) != 2 || inside[0].Code != 1 || inside[1].Code != 3 {
		t.Errorf("Expected island and basin stations, got %+v", inside)
	}
}

func TestLoadAreaShapefileFeatureCoversOtherHole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "basins.shp")
	writeShapefileRecords(t, path, [][][]shp.Point{
		{basinShell, lakeHole},
		{lakeShell},
	})

	area, err := LoadArea(path)
	if err != nil {
		t.Fatalf("LoadArea failed: %v", err)
	}
	if got := area.Area(); math.Abs(got-16) > 1e-9 {
		t.Errorf("Expected area 16, got %v", got)
	}
	if inside := FilterContaining([]models.Station{{Code: 1, Latitude: 2, Longitude: 2}}, area); len(inside) != 1 {
		t.Error("Expected station in the covered hole to be inside")
	}
}

func TestLoadAreaShapefileUnenclosedHole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reversed.shp")
	writeShapefile(t, path, [][]shp.Point{lakeHole})

	area, err := LoadArea(path)
	if err != nil {
		t.Fatalf("LoadArea failed: %v", err)
	}
	if got := area.Area(); math.Abs(got-4) > 1e-9 {
		t.Errorf("Expected area 4, got %v", got)
	}
}

func TestLoadAreaShapefileWithoutPolygons(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.shp")
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		t.Fatalf("shp.Create failed: %v", err)
	}
	w.Write(&shp.Point{X: 1, Y: 1})
	w.Close()

	if _, err := LoadArea(path); !errors.Is(err, ErrEmptyArea) {
		t.Errorf("Expected ErrEmptyArea, got %v", err)
	}
}

func TestAssemblePolygonsAssignsHolesToSmallestShell(t *testing.T) {
	toRing := func(points []shp.Point) [][]float64 {
		ring := make([][]float64, 0, len(points))
		for _, p := range points {
			ring = append(ring, []float64{p.X, p.Y})
		}
		return ring
	}
	innerHole := [][]float64{{1.8, 1.8}, {2.2, 1.8}, {2.2, 2.2}, {1.8, 2.2}, {1.8, 1.8}}

	polygons := assemblePolygons([][][]float64{toRing(basinShell), toRing(lakeHole), toRing(islandRing), innerHole})
	if len(polygons) != 2 {
		t.Fatalf("Expected 2 polygons, got %d", len(polygons))
	}
	if len(polygons[0]) != 2 {
		t.Errorf("Expected basin to own only the lake, got %d rings", len(polygons[0]))
	}
	if len(polygons[1]) != 2 || polygons[1][1][0][0] != 1.8 {
		t.Errorf("Expected island to own the inner hole, got %v", polygons[1])
	}
}

func TestLoadAreaShapefileWithHole(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "basin.shp")

	// Shell is clockwise, hole counter-clockwise.
	shell := []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 4}, {X: 4, Y: 4}, {X: 4, Y: 0}, {X: 0, Y: 0}}
	hole := []shp.Point{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}, {X: 1, Y: 2}, {X: 1, Y: 1}}
	writeShapefile(t, path, [][]shp.Point{shell, hole})
	if err := os.WriteFile(filepath.Join(dir, "basin.prj"), []byte(wgs84WKT), 0o644); err != nil {
		t.Fatal(err)
	}

	area, err := LoadArea(path)
	if err != nil {
		t.Fatalf("LoadArea failed: %v", err)
	}
	if got := area.Area(); math.Abs(got-15) > 1e-9 {
		t.Errorf("Expected area 15, got %v", got)
	}
}

func TestLoadAreaShapefileWithoutProjection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "square.shp")
	writeShapefile(t, path, [][]shp.Point{{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}}})

	area, err := LoadArea(path)
	if err != nil {
		t.Fatalf("LoadArea failed: %v", err)
	}
	if got := area.Area(); math.Abs(got-1) > 1e-9 {
		t.Errorf("Expected area 1, got %v", got)
	}
}

func TestIsWGS84(t *testing.T) {
	tests := map[string]bool{
		"EPSG:4326":                     true,
		"urn:ogc:def:crs:OGC:1.3:CRS84": true,
		"urn:ogc:def:crs:EPSG::4326":    true,
		wgs84WKT:                        true,
		"EPSG:3857":                     false,
		"EPSG:31983":                    false,
		`PROJCS["SIRGAS_2000_UTM_Zone_23S",GEOGCS["GCS_SIRGAS_2000"]]`: false,
	}
	for crs, want := range tests {
		if got := isWGS84(crs); got != want {
			t.Errorf("isWGS84(%q) = %v, want %v", crs, got, want)
		}
	}
}

func TestSignedArea(t *testing.T) {
	ccw := [][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}
	if signedArea(ccw) <= 0 {
		t.Error("Counter-clockwise ring should have positive area")
	}
	cw := [][]float64{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}
	if signedArea(cw) >= 0 {
		t.Error("Clockwise ring should have negative area")
	}
}
