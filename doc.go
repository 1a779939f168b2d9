// Package models manages the acquisition and lifecycle of the machine
// learning model files consumed by a dictation host application: speech
// recognition models and language refinement models.
//
// The package serves two primary use cases:
//
//  1. Programmatic API via the Manager interface - Host applications use
//     NewManager to create a Manager that lists models, downloads them
//     with mirror fallback and checksum verification, reconciles the
//     local catalog against a remote manifest, and reports disk usage.
//
//  2. Embeddable CLI via NewCommand - Parent CLI tools can attach a
//     complete "models" subcommand tree to their Cobra root command,
//     providing commands like "mytool models fetch", "mytool models list",
//     etc.
//
// # Thread Safety
//
// The Manager interface is fully thread-safe. All methods can be called
// concurrently from multiple goroutines without external synchronization.
// For a given artifact at most one transfer is ever in flight; a Fetch
// for an artifact that is already transferring is a no-op.
//
// # Catalog
//
// Local state lives in an SQLite catalog keyed by artifact file name.
// Remote reconciliation only ever touches descriptive fields (URLs,
// checksums, display metadata); the downloaded flag, transfer progress
// and last error belong to this machine and survive every refresh.
//
// # Content Verification
//
// Downloads whose catalog record carries a SHA-256 digest are verified
// before the temp file is moved into place, so the destination only
// ever holds verified bytes and a previous good copy is never lost to a
// bad source. A mismatch is treated like a transport failure: the temp
// file is discarded and the next mirror is tried.
//
// # Storage
//
// Model files are stored in platform-appropriate directories:
//   - Linux: $XDG_DATA_HOME/<app>/models/ or ~/.local/share/<app>/models/
//   - macOS: ~/Library/Application Support/<app>/models/
//   - Windows: %APPDATA%\<app>\models\
//
// The storage location can be overridden via Config.DataDir or the
// <APPNAME>_MODELS_DIR environment variable.
package models
