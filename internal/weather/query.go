package weather

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultLatitude        = 40.7128
	DefaultLongitude       = -74.0060
	DefaultStartDate       = "2014-01-02"
	DefaultEndDate         = "2024-12-31"
	DefaultTemperatureUnit = "fahrenheit"
	DefaultTimezone        = "America/New_York"
)

// Hourly variable names as the archive API spells them.
const (
	VarTime             = "time"
	VarTemperature      = "temperature_2m"
	VarPrecipitation    = "precipitation"
	VarRelativeHumidity = "relative_humidity_2m"
	VarDewPoint         = "dew_point_2m"
)

// HourlyVariables is the requested variable list, in request order.
var HourlyVariables = []string{VarTemperature, VarPrecipitation, VarRelativeHumidity, VarDewPoint}

// Query is the fixed parameter set sent to the archive endpoint.
type Query struct {
	Location        Location
	StartDate       string
	EndDate         string
	TemperatureUnit string
	Hourly          []string
	Timezone        string
}

// DefaultQuery returns New York City, 2014-01-02 through 2024-12-31, in Fahrenheit.
func DefaultQuery() Query {
	return Query{
		Location: Location{
			City:      "New York",
			Country:   "US",
			Latitude:  DefaultLatitude,
			Longitude: DefaultLongitude,
		},
		StartDate:       DefaultStartDate,
		EndDate:         DefaultEndDate,
		TemperatureUnit: DefaultTemperatureUnit,
		Hourly:          append([]string(nil), HourlyVariables...),
		Timezone:        DefaultTimezone,
	}
}

// Values encodes the query as URL parameters.
func (q Query) Values() url.Values {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(q.Location.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(q.Location.Longitude, 'f', -1, 64))
	values.Set("start_date", q.StartDate)
	values.Set("end_date", q.EndDate)
	values.Set("temperature_unit", q.TemperatureUnit)
	values.Set("hourly", strings.Join(q.Hourly, ","))
	values.Set("timezone", q.Timezone)
	return values
}
