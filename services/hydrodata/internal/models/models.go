package models

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// StationType tags the kind of gauge a station operates. The set is open;
// the values below are the ones ANA inventories use.
type StationType string

const (
	StationTypeRainGauge   StationType = "pluviometrica"
	StationTypeStreamGauge StationType = "fluviometrica"
)

// Station is a monitoring station record. It is handled by value and never
// modified after construction; two stations are the same station when their
// codes match.
type Station struct {
	Code      int         `json:"code"`
	Name      string      `json:"name"`
	Type      StationType `json:"station_type"`
	Latitude  float64     `json:"latitude"`
	Longitude float64     `json:"longitude"`
	Altitude  *float64    `json:"altitude,omitempty"`
}

// Validate checks that the coordinates are valid WGS84 decimal degrees.
func (s Station) Validate() error {
	if s.Latitude < -90 || s.Latitude > 90 {
		return fmt.Errorf("station %d: latitude %v out of range", s.Code, s.Latitude)
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return fmt.Errorf("station %d: longitude %v out of range", s.Code, s.Longitude)
	}
	return nil
}

// ReadStations decodes a JSON array of stations and validates each entry.
func ReadStations(r io.Reader) ([]Station, error) {
	var stations []Station
	if err := json.NewDecoder(r).Decode(&stations); err != nil {
		return nil, fmt.Errorf("decode stations: %w", err)
	}
	for _, st := range stations {
		if err := st.Validate(); err != nil {
			return nil, err
		}
	}
	return stations, nil
}

// LoadStationsFile reads stations from a JSON file on disk.
func LoadStationsFile(path string) ([]Station, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stations file: %w", err)
	}
	defer f.Close()

	return ReadStations(f)
}
