package validator

import (
	"math"
	"testing"
)

type coordinates struct {
	Lng float64 `validate:"finite,gte=-180,lte=180"`
	Lat float64 `validate:"finite,gte=-90,lte=90"`
}

func TestCoordinateValidators(t *testing.T) {
	tests := []struct {
		name       string
		form       coordinates
		shouldFail bool
	}{
		{
			name: "validation ok -- central london",
			form: coordinates{Lng: -0.1257, Lat: 51.508},
		},
		{
			name: "validation ok -- boundary values",
			form: coordinates{Lng: 180, Lat: -90},
		},
		{
			name: "validation ok -- zero island",
			form: coordinates{},
		},
		{
			name:       "validation ko -- longitude out of range",
			form:       coordinates{Lng: 180.5, Lat: 0},
			shouldFail: true,
		},
		{
			name:       "validation ko -- latitude out of range",
			form:       coordinates{Lng: 0, Lat: -90.01},
			shouldFail: true,
		},
		{
			name:       "validation ko -- NaN longitude",
			form:       coordinates{Lng: math.NaN(), Lat: 0},
			shouldFail: true,
		},
		{
			name:       "validation ko -- infinite latitude",
			form:       coordinates{Lng: 0, Lat: math.Inf(-1)},
			shouldFail: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v := NewValidator()
			v.Register(CoordinateRules()...)

			err := v.Struct(test.form)
			if test.shouldFail && err == nil {
				t.Errorf("expected validation to fail")
			}
			if !test.shouldFail && err != nil {
				t.Errorf("expected validation to pass: %v", err)
			}
		})
	}
}
