package weather

import (
	"fmt"
	"net/http"
)

// Location represents the place whose history is fetched.
// City/Country are optional and only used for geocoding and log output.
type Location struct {
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	return fmt.Sprintf("%.4f:%.4f", l.Latitude, l.Longitude)
}

// RawResponse is the undecoded archive API answer. It is consumed once by Decode.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}
