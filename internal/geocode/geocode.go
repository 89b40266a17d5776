// Package geocode resolves coordinates to addresses.
package geocode

import (
	"context"
	"errors"
	"fmt"

	geo "github.com/codingsince1985/geo-golang"
	"github.com/codingsince1985/geo-golang/openstreetmap"

	"github.com/greengliwice/trees-backend/internal/models"
)

// ErrNoResult is returned when the provider knows no address for the point.
var ErrNoResult = errors.New("geocode: no result")

// Resolver maps a coordinate pair to a location.
type Resolver interface {
	Reverse(ctx context.Context, lat, lon float64) (models.Location, error)
}

// OSM resolves through a geo-golang geocoder, OpenStreetMap Nominatim by default.
type OSM struct {
	g geo.Geocoder
}

// NewOSM returns a Nominatim resolver. baseURL may be empty for the public
// instance.
func NewOSM(baseURL string) *OSM {
	if baseURL == "" {
		return &OSM{g: openstreetmap.Geocoder()}
	}
	return &OSM{g: openstreetmap.GeocoderWithURL(baseURL)}
}

// NewWith wraps any geo-golang geocoder.
func NewWith(g geo.Geocoder) *OSM {
	return &OSM{g: g}
}

// Reverse returns the first candidate address for lat/lon.
func (o *OSM) Reverse(ctx context.Context, lat, lon float64) (models.Location, error) {
	type result struct {
		addr *geo.Address
		err  error
	}
	// geo-golang has no context support; don't outlive the caller.
	ch := make(chan result, 1)
	go func() {
		addr, err := o.g.ReverseGeocode(lat, lon)
		ch <- result{addr, err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return models.Location{}, ctx.Err()
	case r = <-ch:
	}
	if r.err != nil {
		return models.Location{}, fmt.Errorf("reverse geocode %.6f,%.6f: %w", lat, lon, r.err)
	}
	if r.addr == nil || r.addr.FormattedAddress == "" {
		return models.Location{}, ErrNoResult
	}
	return models.Location{
		FormattedAddress: r.addr.FormattedAddress,
		Street:           r.addr.Street,
		HouseNumber:      r.addr.HouseNumber,
		Suburb:           r.addr.Suburb,
		City:             r.addr.City,
		Postcode:         r.addr.Postcode,
		County:           r.addr.County,
		State:            r.addr.State,
		Country:          r.addr.Country,
		CountryCode:      r.addr.CountryCode,
		Latitude:         lat,
		Longitude:        lon,
	}, nil
}
