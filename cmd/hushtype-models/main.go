// Command hushtype-models is a standalone CLI harness for the models
// package. It demonstrates the CLI integration and provides a working
// management tool for the model catalog.
//
// Configuration is loaded from environment variables:
//   - HUSHTYPE_MANIFEST_URL: URL of the remote model manifest (required)
//   - HUSHTYPE_MODELS_DIR: Override for data directory (optional)
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	models "github.com/hushtype/HushType-sub003"
)

// CLI exit codes for standardized error reporting.
const (
	// ExitSuccess indicates the operation completed successfully.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError = 1

	// ExitInvalidArgs indicates invalid command line arguments.
	ExitInvalidArgs = 2

	// ExitUnknownModel indicates no catalog record for the file name.
	ExitUnknownModel = 3

	// ExitNotDownloaded indicates the model has no local copy.
	ExitNotDownloaded = 4

	// ExitNetworkError indicates a network or HTTP failure.
	ExitNetworkError = 5

	// ExitIntegrityError indicates checksum verification failed.
	ExitIntegrityError = 6

	// ExitStorageError indicates a filesystem or catalog operation failed.
	ExitStorageError = 7

	// ExitModelActive indicates an attempt to delete the active model.
	ExitModelActive = 8
)

func main() {
	manifestURL := os.Getenv("HUSHTYPE_MANIFEST_URL")
	if manifestURL == "" {
		fmt.Fprintln(os.Stderr, "Error: HUSHTYPE_MANIFEST_URL environment variable is required")
		os.Exit(ExitInvalidArgs)
	}

	cfg := models.Config{
		AppName:     "hushtype",
		ManifestURL: manifestURL,
		// DataDir can be set via HUSHTYPE_MODELS_DIR env var (handled by storage layer)
	}

	// Ctrl-C cancels in-flight transfers through the command context.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := models.NewCommand(cfg)
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(exitCodeFromError(err))
	}
}

// exitCodeFromError maps error types to exit codes.
func exitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, models.ErrUnknownModel):
		return ExitUnknownModel
	case errors.Is(err, models.ErrNotDownloaded):
		return ExitNotDownloaded
	case errors.Is(err, models.ErrNetwork):
		return ExitNetworkError
	case errors.Is(err, models.ErrHTTPStatus):
		return ExitNetworkError
	case errors.Is(err, models.ErrIntegrity):
		return ExitIntegrityError
	case errors.Is(err, models.ErrStorage):
		return ExitStorageError
	case errors.Is(err, models.ErrModelActive):
		return ExitModelActive
	case errors.Is(err, models.ErrInvalidFileName):
		return ExitInvalidArgs
	case errors.Is(err, models.ErrUnsupportedKind):
		return ExitInvalidArgs
	default:
		return ExitGeneralError
	}
}
