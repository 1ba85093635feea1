package weather

import (
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"
)

// geocoder keeps its API key in a package variable.
var geocodeMu sync.Mutex

// ResolveCoordinates fills in missing coordinates from City/Country using
// the Google Geocoding API. Locations that already have coordinates are
// returned unchanged.
func ResolveCoordinates(loc Location, apiKey string) (Location, error) {
	if loc.HasCoordinates() {
		return loc, nil
	}
	if loc.City == "" {
		return loc, fmt.Errorf("location has neither coordinates nor city")
	}
	if apiKey == "" {
		return loc, fmt.Errorf("geocoding %s requires GEOCODER_API_KEY", loc.Key())
	}

	geocodeMu.Lock()
	defer geocodeMu.Unlock()

	geocoder.ApiKey = apiKey
	res, err := geocoder.Geocoding(geocoder.Address{
		City:    loc.City,
		Country: loc.Country,
	})
	if err != nil {
		return loc, fmt.Errorf("geocode %s: %w", loc.Key(), err)
	}

	lat, lon := res.Latitude, res.Longitude
	loc.Lat, loc.Lon = &lat, &lon
	return loc, nil
}
