package models

import "strings"

// Config configures the models module.
type Config struct {
	// AppName determines the storage directory name.
	// Example: "hushtype" → ~/.local/share/hushtype/models/ on Linux
	AppName string

	// ManifestURL is the HTTPS URL of the remote model manifest.
	// Example: "https://models.example.com/manifest.json"
	ManifestURL string

	// DataDir overrides the default data directory.
	// If empty, uses platform-appropriate default.
	// Can also be set via environment variable: <APPNAME>_MODELS_DIR
	DataDir string
}

// ModelKind classifies an artifact by the engine that consumes it.
type ModelKind string

const (
	// KindSpeech is a speech recognition model.
	KindSpeech ModelKind = "speech"

	// KindLanguage is a language refinement model.
	KindLanguage ModelKind = "language"
)

// Kinds lists every known model kind.
var Kinds = []ModelKind{KindSpeech, KindLanguage}

// Valid reports whether k is a known model kind.
func (k ModelKind) Valid() bool {
	switch k {
	case KindSpeech, KindLanguage:
		return true
	}
	return false
}

// ParseKind parses a manifest kind tag into a ModelKind.
// Returns ErrUnsupportedKind for tags this build does not recognize.
func ParseKind(s string) (ModelKind, error) {
	k := ModelKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", ErrUnsupportedKind
	}
	return k, nil
}

// ModelRecord is one catalog entry, keyed by FileName.
//
// Descriptive fields (DisplayName, SizeBytes, SHA256, PrimaryURL,
// MirrorURLs, IsDefault, IsDeprecated, Notes) are owned by the remote
// manifest and only reconciliation updates them. Downloaded, Progress
// and LastError are local-only and reconciliation never touches them.
type ModelRecord struct {
	// FileName is the stable unique identity of the artifact. It is the
	// on-disk file name and the key used to match manifest entries.
	FileName string `json:"fileName"`

	// DisplayName is the human-readable model name.
	DisplayName string `json:"displayName"`

	// Kind is the artifact kind (speech or language).
	Kind ModelKind `json:"kind"`

	// SizeBytes is the expected size of the artifact in bytes.
	SizeBytes int64 `json:"sizeBytes"`

	// SHA256 is the lowercase hex digest of the complete file, or empty
	// if the manifest publishes no checksum for this artifact.
	SHA256 string `json:"sha256,omitempty"`

	// PrimaryURL is the first download source tried.
	PrimaryURL string `json:"primaryURL"`

	// MirrorURLs are alternate sources, tried in order after PrimaryURL.
	MirrorURLs []string `json:"mirrorURLs,omitempty"`

	// Downloaded reports whether a verified copy exists on disk.
	Downloaded bool `json:"downloaded"`

	// Progress is the transfer fraction in [0,1]. Non-nil only while a
	// transfer is in flight; never persisted.
	Progress *float64 `json:"progress,omitempty"`

	// LastError is the message of the most recent failed fetch, empty
	// when the last fetch succeeded or none was attempted.
	LastError string `json:"lastError,omitempty"`

	// IsDefault marks the manifest-recommended model for its kind.
	IsDefault bool `json:"isDefault"`

	// IsDeprecated marks models the manifest no longer recommends.
	IsDeprecated bool `json:"isDeprecated"`

	// Notes carries free-form remote-controlled description text.
	Notes string `json:"notes,omitempty"`
}

// clone returns a deep copy of the record.
func (r ModelRecord) clone() ModelRecord {
	c := r
	if r.MirrorURLs != nil {
		c.MirrorURLs = append([]string(nil), r.MirrorURLs...)
	}
	if r.Progress != nil {
		p := *r.Progress
		c.Progress = &p
	}
	return c
}

// sourceURLs returns the ordered candidate download list:
// the primary URL followed by each mirror, empty entries skipped.
func (r ModelRecord) sourceURLs() []string {
	var urls []string
	if r.PrimaryURL != "" {
		urls = append(urls, r.PrimaryURL)
	}
	for _, u := range r.MirrorURLs {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// ManifestEntry is one artifact description in the remote manifest.
// Entries are transient: only their effect on ModelRecord persists.
type ManifestEntry struct {
	// FileName matches the entry to a local ModelRecord.
	FileName string `json:"fileName"`

	// Name is the human-readable model name.
	Name string `json:"name"`

	// Kind is a string tag, validated against known kinds on apply.
	Kind string `json:"type"`

	// FileSize is the artifact size in bytes.
	FileSize int64 `json:"fileSize"`

	// DownloadURLs is the ordered source list; the first entry becomes
	// the primary URL, the rest become mirrors.
	DownloadURLs []string `json:"downloadURLs"`

	// SHA256 is the lowercase hex digest, or empty if unpublished.
	SHA256 string `json:"sha256,omitempty"`

	// IsDefault marks the recommended model for its kind.
	IsDefault bool `json:"isDefault"`

	// Deprecated marks models no longer recommended.
	Deprecated bool `json:"deprecated"`

	// Notes carries free-form description text.
	Notes string `json:"notes,omitempty"`
}

// FetchProgress reports transfer progress during a fetch operation.
type FetchProgress struct {
	// FileName identifies the artifact being transferred.
	FileName string

	// Attempt is the zero-based index into the candidate URL list.
	Attempt int

	// URL is the source currently being read.
	URL string

	// BytesReceived is the bytes written to the temp file so far.
	BytesReceived int64

	// BytesTotal is the expected total, or 0 when unknown.
	BytesTotal int64

	// Fraction is BytesReceived/BytesTotal in [0,1], 0 when the total
	// is unknown.
	Fraction float64
}

// validateFileName rejects artifact identifiers that could escape the
// models directory. FileName is used verbatim as an on-disk name.
func validateFileName(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrInvalidFileName
	}
	if strings.ContainsAny(name, `/\`) {
		return ErrInvalidFileName
	}
	return nil
}
