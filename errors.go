package models

import "errors"

// Sentinel errors for model management operations.
// Use errors.Is() to check for specific error conditions.
var (
	// ErrUnknownModel indicates no catalog record exists for the file name.
	ErrUnknownModel = errors.New("models: unknown model")

	// ErrInvalidFileName indicates an artifact identifier that is empty
	// or contains path separators.
	ErrInvalidFileName = errors.New("models: invalid model file name")

	// ErrNoSources indicates a record with neither a primary URL nor mirrors.
	ErrNoSources = errors.New("models: no download sources")

	// ErrNetwork indicates a transport failure while talking to a source.
	ErrNetwork = errors.New("models: network error")

	// ErrHTTPStatus indicates a source answered with a non-2xx status.
	ErrHTTPStatus = errors.New("models: unexpected HTTP status")

	// ErrIntegrity indicates downloaded data failed checksum verification.
	ErrIntegrity = errors.New("models: checksum verification failed")

	// ErrStorage indicates a local filesystem or catalog operation failed.
	ErrStorage = errors.New("models: storage error")

	// ErrManifestDecode indicates the remote manifest was malformed.
	ErrManifestDecode = errors.New("models: invalid manifest")

	// ErrUnsupportedKind indicates a manifest entry with a kind tag this
	// build does not recognize. The entry is skipped, never the manifest.
	ErrUnsupportedKind = errors.New("models: unsupported model kind")

	// ErrModelActive indicates an attempt to delete the file of the
	// currently selected model for its kind.
	ErrModelActive = errors.New("models: model is the active selection")

	// ErrNotDownloaded indicates the model has no verified local copy.
	ErrNotDownloaded = errors.New("models: model not downloaded")
)
