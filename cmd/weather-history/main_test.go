package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/i474232898/weather-history/internal/weather"
	"github.com/i474232898/weather-history/internal/weather/providers"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"transport", &weather.TransportError{Err: errors.New("dial tcp: refused")}, exitTransport},
		{"status", &weather.StatusError{Code: 404}, exitStatus},
		{"schema", fmt.Errorf("decode: %w", &weather.SchemaError{Reason: "no hourly"}), exitSchema},
		{"integrity", &weather.IntegrityError{Column: "precipitation", Got: 1, Expected: 2}, exitSchema},
		{"other", errors.New("boom"), exitError},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Fatalf("%s: expected exit code %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestExitCodeWithoutHTTPClient(t *testing.T) {
	_, err := providers.NewOpenMeteoArchive(nil, "").Fetch(context.Background(), weather.DefaultQuery())
	if got := exitCode(err); got != exitTransport {
		t.Fatalf("expected exit code %d, got %d (%v)", exitTransport, got, err)
	}
}
