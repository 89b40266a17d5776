package geocode

import (
	"context"
	"errors"
	"testing"
	"time"

	geo "github.com/codingsince1985/geo-golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGeocoder struct {
	addr  *geo.Address
	err   error
	delay time.Duration
}

func (s stubGeocoder) Geocode(string) (*geo.Location, error) { return nil, nil }

func (s stubGeocoder) ReverseGeocode(_, _ float64) (*geo.Address, error) {
	time.Sleep(s.delay)
	return s.addr, s.err
}

func TestReverse_FirstCandidate(t *testing.T) {
	r := NewWith(stubGeocoder{addr: &geo.Address{
		FormattedAddress: "Zwycięstwa 1, Gliwice, Polska",
		Street:           "Zwycięstwa",
		HouseNumber:      "1",
		City:             "Gliwice",
		Country:          "Polska",
		CountryCode:      "PL",
	}})

	loc, err := r.Reverse(context.Background(), 50.29, 18.67)
	require.NoError(t, err)
	assert.Equal(t, "Zwycięstwa 1, Gliwice, Polska", loc.FormattedAddress)
	assert.Equal(t, "Gliwice", loc.City)
	assert.Equal(t, "PL", loc.CountryCode)
	assert.InDelta(t, 50.29, loc.Latitude, 1e-9)
	assert.InDelta(t, 18.67, loc.Longitude, 1e-9)
}

func TestReverse_Failures(t *testing.T) {
	_, err := NewWith(stubGeocoder{}).Reverse(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrNoResult)

	_, err = NewWith(stubGeocoder{addr: &geo.Address{}}).Reverse(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrNoResult)

	cause := errors.New("503 service unavailable")
	_, err = NewWith(stubGeocoder{err: cause}).Reverse(context.Background(), 0, 0)
	assert.ErrorIs(t, err, cause)
}

func TestReverse_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := NewWith(stubGeocoder{delay: 200 * time.Millisecond}).Reverse(ctx, 0, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewOSM(t *testing.T) {
	assert.NotNil(t, NewOSM(""))
	assert.NotNil(t, NewOSM("http://nominatim.local/"))
}
