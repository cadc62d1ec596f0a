package spatial

import (
	"log/slog"

	"github.com/twpayne/go-geos"

	"github.com/02loveslollipop/hydrodata/services/hydrodata/internal/models"
)

// FilterContaining returns the stations whose (longitude, latitude) point
// lies strictly inside area, in input order. Stations on the boundary are
// left out.
func FilterContaining(stations []models.Station, area *geos.Geom) []models.Station {
	prepared := area.Prepare()

	result := make([]models.Station, 0, len(stations))
	for _, st := range stations {
		if prepared.Contains(geos.NewPointFromXY(st.Longitude, st.Latitude)) {
			result = append(result, st)
		}
	}

	slog.Info("filtered stations inside area", "inside", len(result), "total", len(stations))
	return result
}
