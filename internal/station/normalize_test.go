package station

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"0.0;", 0},
		{":0.0;", 0},
		{"-0.8", -0.8},
		{":-0.8;", -0.8},
		{":22.2;", 22.2},
		{":301;", 301},
		{"+4.5", 4.5},
		{":11873.7)D621", 11873.7},
		{":1002.4hPa;", 1002.4},
		{"12:3;4", 1234},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalize_ReturnsNaN(t *testing.T) {
	for _, raw := range []string{"garbage", "", ":;", "///", "-", "1.2.3", "x12"} {
		if got := Normalize(raw); !math.IsNaN(got) {
			t.Errorf("Normalize(%q) = %v, want NaN", raw, got)
		}
	}
}

func TestIsSentinel(t *testing.T) {
	tests := []struct {
		v    float64
		want bool
	}{
		{math.NaN(), true},
		{Sentinel, true},
		{0, false},
		{-99.1, false},
		{22.1, false},
	}

	for _, tt := range tests {
		if got := IsSentinel(tt.v); got != tt.want {
			t.Errorf("IsSentinel(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
