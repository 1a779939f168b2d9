package models

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unknown model", ErrUnknownModel, "models: unknown model"},
		{"invalid file name", ErrInvalidFileName, "models: invalid model file name"},
		{"no sources", ErrNoSources, "models: no download sources"},
		{"network", ErrNetwork, "models: network error"},
		{"http status", ErrHTTPStatus, "models: unexpected HTTP status"},
		{"integrity", ErrIntegrity, "models: checksum verification failed"},
		{"storage", ErrStorage, "models: storage error"},
		{"manifest decode", ErrManifestDecode, "models: invalid manifest"},
		{"unsupported kind", ErrUnsupportedKind, "models: unsupported model kind"},
		{"model active", ErrModelActive, "models: model is the active selection"},
		{"not downloaded", ErrNotDownloaded, "models: model not downloaded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !strings.HasPrefix(tt.err.Error(), "models: ") {
				t.Errorf("error %q missing package prefix", tt.err.Error())
			}
		})
	}
}

func TestErrorsIs(t *testing.T) {
	t.Run("wrapped once", func(t *testing.T) {
		err := fmt.Errorf("%w: 503 from https://cdn.example.com/m.bin", ErrHTTPStatus)
		if !errors.Is(err, ErrHTTPStatus) {
			t.Error("errors.Is() = false for wrapped sentinel")
		}
		if errors.Is(err, ErrNetwork) {
			t.Error("errors.Is() matched the wrong sentinel")
		}
	})

	t.Run("wrapped twice", func(t *testing.T) {
		inner := fmt.Errorf("%w: got abc, want def", ErrIntegrity)
		outer := fmt.Errorf("fetching tiny.bin: %w", inner)
		if !errors.Is(outer, ErrIntegrity) {
			t.Error("errors.Is() = false through two wraps")
		}
	})
}
