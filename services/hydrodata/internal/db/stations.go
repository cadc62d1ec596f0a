package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/02loveslollipop/hydrodata/services/hydrodata/internal/models"
)

const upsertStationSQL = `INSERT INTO hydrodata.stations (code, name, station_type, lat, lon, altitude_m, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
ON CONFLICT (code) DO UPDATE
SET name = EXCLUDED.name,
    station_type = EXCLUDED.station_type,
    lat = EXCLUDED.lat,
    lon = EXCLUDED.lon,
    altitude_m = EXCLUDED.altitude_m,
    updated_at = NOW()`

// UpsertStations inserts or updates stations keyed by code.
func (s *Store) UpsertStations(ctx context.Context, stations []models.Station) error {
	if len(stations) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, st := range stations {
		batch.Queue(upsertStationSQL, st.Code, st.Name, string(st.Type), st.Latitude, st.Longitude, st.Altitude)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for _, st := range stations {
		if _, err := res.Exec(); err != nil {
			return fmt.Errorf("upsert station %d: %w", st.Code, err)
		}
	}

	return nil
}

const listStationsSQL = `
    SELECT code, name, station_type, lat, lon, altitude_m
    FROM hydrodata.stations
    ORDER BY code
`

// ListStations returns the whole catalogue ordered by code.
func (s *Store) ListStations(ctx context.Context) ([]models.Station, error) {
	rows, err := s.pool.Query(ctx, listStationsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stations := make([]models.Station, 0)
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

const getStationSQL = `
    SELECT code, name, station_type, lat, lon, altitude_m
    FROM hydrodata.stations
    WHERE code = $1
`

// GetStation returns one station, or nil when the code is unknown.
func (s *Store) GetStation(ctx context.Context, code int) (*models.Station, error) {
	st, err := scanStation(s.pool.QueryRow(ctx, getStationSQL, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func scanStation(row pgx.Row) (models.Station, error) {
	var (
		st          models.Station
		stationType string
	)
	if err := row.Scan(&st.Code, &st.Name, &stationType, &st.Latitude, &st.Longitude, &st.Altitude); err != nil {
		return models.Station{}, err
	}
	st.Type = models.StationType(stationType)
	return st, nil
}
