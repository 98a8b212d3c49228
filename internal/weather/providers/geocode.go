package providers

import (
	"fmt"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-history/internal/weather"
)

// Geocode resolves city/country to coordinates through the Google geocoding API.
func Geocode(apiKey, city, country string) (weather.Location, error) {
	if apiKey == "" {
		return weather.Location{}, fmt.Errorf("geocoding requires an api key")
	}
	if city == "" {
		return weather.Location{}, fmt.Errorf("geocoding requires a city")
	}

	geocoder.ApiKey = apiKey
	found, err := geocoder.Geocoding(geocoder.Address{
		City:    city,
		Country: country,
	})
	if err != nil {
		return weather.Location{}, fmt.Errorf("geocode %s,%s: %w", city, country, err)
	}

	return weather.Location{
		City:      city,
		Country:   country,
		Latitude:  found.Latitude,
		Longitude: found.Longitude,
	}, nil
}
