package main

import (
	"testing"
	"time"
)

func TestEffectiveExtractTimeout(t *testing.T) {
	cases := []struct {
		name       string
		fromConfig time.Duration
		fromFlag   time.Duration
		want       time.Duration
	}{
		{"flag unset keeps config", 60 * time.Second, 0, 60 * time.Second},
		{"flag overrides config", 60 * time.Second, 30 * time.Second, 30 * time.Second},
		{"sub-second flag kept exact", 60 * time.Second, 500 * time.Millisecond, 500 * time.Millisecond},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := effectiveExtractTimeout(tc.fromConfig, tc.fromFlag); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
