package main

import (
	"log/slog"
	"testing"
)

func TestLogLevelMapping(t *testing.T) {
	cases := []struct {
		verbosity int
		want      slog.Level
	}{
		{0, slog.LevelWarn},
		{1, slog.LevelInfo},
		{2, slog.LevelDebug},
		{5, slog.LevelDebug},
	}
	for _, c := range cases {
		if got := logLevel(c.verbosity); got != c.want {
			t.Errorf("logLevel(%d) = %v, want %v", c.verbosity, got, c.want)
		}
	}
}
