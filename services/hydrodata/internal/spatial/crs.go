package spatial

import (
	"fmt"
	"strings"

	"github.com/twpayne/go-proj/v10"
)

// WGS84 is the reference system of station coordinates.
const WGS84 = "EPSG:4326"

var wgs84Names = map[string]bool{
	"EPSG:4326":                     true,
	"EPSG::4326":                    true,
	"URN:OGC:DEF:CRS:EPSG::4326":    true,
	"URN:OGC:DEF:CRS:EPSG:6.6:4326": true,
	"URN:OGC:DEF:CRS:OGC:1.3:CRS84": true,
	"URN:OGC:DEF:CRS:OGC::CRS84":    true,
	"OGC:CRS84":                     true,
	"CRS84":                         true,
	"HTTP://WWW.OPENGIS.NET/DEF/CRS/EPSG/0/4326": true,
}

// isWGS84 recognizes the usual names of EPSG:4326 and geographic WKT
// definitions on the WGS84 datum.
func isWGS84(crs string) bool {
	name := strings.ToUpper(strings.TrimSpace(crs))
	if wgs84Names[name] {
		return true
	}
	if strings.HasPrefix(name, "GEOGCS[") || strings.HasPrefix(name, "GEOGCRS[") {
		return strings.Contains(name, "WGS_1984") || strings.Contains(name, "WGS 84") || strings.Contains(name, "WGS84")
	}
	return false
}

// reproject transforms every position in place from crs to WGS84 in
// longitude/latitude order.
func reproject(crs string, polygons []polygon) error {
	pj, err := proj.NewCRSToCRS(crs, WGS84, nil)
	if err != nil {
		return fmt.Errorf("create transformation from %s: %w", crs, err)
	}
	defer pj.Destroy()

	// EPSG:4326 is latitude first; normalize so x stays longitude.
	norm, err := pj.NormalizeForVisualization()
	if err != nil {
		return fmt.Errorf("normalize transformation from %s: %w", crs, err)
	}
	defer norm.Destroy()

	for _, p := range polygons {
		for _, ring := range p {
			for _, pos := range ring {
				out, err := norm.Forward(proj.NewCoord(pos[0], pos[1], 0, 0))
				if err != nil {
					return fmt.Errorf("reproject (%v, %v) from %s: %w", pos[0], pos[1], crs, err)
				}
				pos[0], pos[1] = out[0], out[1]
			}
		}
	}
	return nil
}
