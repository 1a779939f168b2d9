package models

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Manager provides programmatic access to model acquisition and
// lifecycle management. All methods are safe for concurrent use.
// For CLI integration, use NewCommand instead.
type Manager interface {
	// Records returns the current catalog, ordered by kind then file name.
	Records(ctx context.Context) ([]ModelRecord, error)

	// Record returns the catalog entry for fileName.
	// Returns ErrUnknownModel if no such record exists.
	Record(ctx context.Context, fileName string) (ModelRecord, error)

	// Fetch downloads the artifact and blocks until it reaches a
	// terminal state, trying the primary URL then each mirror in order
	// and verifying the checksum when the record carries one. Hosts that
	// want fire-and-forget behavior run Fetch in a goroutine.
	//
	// If a transfer for fileName is already in flight, Fetch returns nil
	// immediately without starting a second one. A record that is
	// already downloaded is a network-free no-op unless WithForce() is
	// given.
	Fetch(ctx context.Context, fileName string, opts ...FetchOption) error

	// Cancel aborts any in-flight transfer for fileName. It returns only
	// after the partial file is removed and the transfer slot is
	// released, so an immediately following Fetch is always accepted.
	// Cancelling an idle artifact is a no-op.
	Cancel(fileName string)

	// IsFetching reports whether a transfer for fileName is in flight.
	IsFetching(fileName string) bool

	// Refresh fetches the remote manifest and merges it into the
	// catalog. Descriptive fields are updated, unseen file names are
	// inserted, local-only state and locally known records absent from
	// the manifest are left untouched. On any fetch or decode failure
	// the catalog is unchanged.
	Refresh(ctx context.Context) error

	// RefreshIfNeeded behaves like Refresh but makes no network call
	// within the refresh interval of the last successful refresh.
	RefreshIfNeeded(ctx context.Context) error

	// LastRefreshed returns the time of the last successful manifest
	// refresh, zero if none has succeeded.
	LastRefreshed() time.Time

	// Usage returns the total size in bytes of downloaded artifacts of
	// the given kind.
	Usage(ctx context.Context, kind ModelKind) (int64, error)

	// DeleteModelFile removes the backing file for fileName and clears
	// its downloaded flag. Returns ErrModelActive if fileName is the
	// active selection for its kind; the catalog record itself is never
	// deleted by this call.
	DeleteModelFile(ctx context.Context, fileName string) error

	// SetActive selects fileName as the active artifact for kind.
	SetActive(ctx context.Context, kind ModelKind, fileName string) error

	// Active returns the active artifact for kind: the explicit
	// selection if one was made, otherwise the manifest default.
	Active(ctx context.Context, kind ModelKind) (string, error)

	// Path returns the absolute path of a downloaded artifact.
	// Returns ErrNotDownloaded if no verified local copy exists.
	Path(ctx context.Context, fileName string) (string, error)

	// Completions returns a channel that receives the file name of each
	// artifact of the given kind that finishes downloading and passes
	// verification. Inference hosts consume this to hot-swap models.
	Completions(kind ModelKind) <-chan string

	// Changes returns a channel that signals whenever catalog content or
	// the active selection materially changes. Signals are coalesced.
	Changes() <-chan struct{}

	// Close cancels in-flight transfers and releases the catalog.
	Close() error
}

// manager is the concrete implementation of the Manager interface.
type manager struct {
	// cfg holds the module configuration.
	cfg Config

	// logger receives diagnostic messages. May be nil.
	logger Logger

	// storage handles local filesystem operations.
	storage storageInterface

	// catalog is the persisted system of record.
	catalog *catalog

	// hub fans out completion and change signals.
	hub *signalHub

	// downloader owns artifact transfers and the active set.
	downloader *downloader

	// reconciler merges the remote manifest into the catalog.
	reconciler *reconciler

	// usage answers size queries and guards deletions.
	usage *diskUsage
}

// Ensure manager implements Manager interface.
var _ Manager = (*manager)(nil)

// NewManager creates a new Manager with the given configuration.
// Returns an error if the configuration is invalid (empty AppName or
// ManifestURL). On a first run with an empty catalog the built-in model
// set is seeded.
func NewManager(cfg Config, opts ...ManagerOption) (Manager, error) {
	if cfg.AppName == "" {
		return nil, errors.New("models: AppName is required")
	}
	if cfg.ManifestURL == "" {
		return nil, errors.New("models: ManifestURL is required")
	}

	mcfg := newManagerConfig()
	for _, opt := range opts {
		opt(mcfg)
	}

	storage, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	hub := newSignalHub()
	catalog, err := openCatalog(storage.catalogPath(), hub, mcfg.logger)
	if err != nil {
		return nil, err
	}

	m := &manager{
		cfg:        cfg,
		logger:     mcfg.logger,
		storage:    storage,
		catalog:    catalog,
		hub:        hub,
		downloader: newDownloader(catalog, storage, mcfg.httpClient, mcfg.logger, mcfg.verify, hub),
		reconciler: newReconciler(catalog, mcfg.httpClient, mcfg.logger, cfg.ManifestURL, mcfg.refreshInterval),
		usage:      newDiskUsage(catalog, storage, mcfg.logger),
	}

	if mcfg.seed && catalog.isEmpty() {
		if err := m.seed(); err != nil {
			catalog.close()
			return nil, err
		}
	}

	return m, nil
}

// seed populates an empty catalog with the built-in model set and
// selects the default artifact per kind.
func (m *manager) seed() error {
	for _, rec := range seedRecords() {
		m.catalog.insert(rec)
		if rec.IsDefault {
			m.catalog.setMeta(metaActiveKey(rec.Kind), rec.FileName)
		}
	}
	if err := m.catalog.commit(); err != nil {
		return fmt.Errorf("seeding catalog: %w", err)
	}
	if m.logger != nil {
		m.logger.Info("catalog seeded", "records", len(seedRecords()))
	}
	return nil
}

// Records returns the current catalog, ordered by kind then file name.
func (m *manager) Records(ctx context.Context) ([]ModelRecord, error) {
	return m.catalog.list(), nil
}

// Record returns the catalog entry for fileName.
func (m *manager) Record(ctx context.Context, fileName string) (ModelRecord, error) {
	rec, ok := m.catalog.get(fileName)
	if !ok {
		return ModelRecord{}, fmt.Errorf("%w: %s", ErrUnknownModel, fileName)
	}
	return rec, nil
}

// Fetch downloads the artifact, blocking until a terminal state.
func (m *manager) Fetch(ctx context.Context, fileName string, opts ...FetchOption) error {
	cfg := &fetchConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return m.downloader.fetch(ctx, fileName, cfg)
}

// Cancel aborts any in-flight transfer for fileName.
func (m *manager) Cancel(fileName string) {
	m.downloader.cancel(fileName)
}

// IsFetching reports whether a transfer for fileName is in flight.
func (m *manager) IsFetching(fileName string) bool {
	return m.downloader.isActive(fileName)
}

// Refresh fetches the remote manifest and merges it into the catalog.
func (m *manager) Refresh(ctx context.Context) error {
	return m.reconciler.refresh(ctx)
}

// RefreshIfNeeded refreshes unless the rate limit says otherwise.
func (m *manager) RefreshIfNeeded(ctx context.Context) error {
	return m.reconciler.refreshIfNeeded(ctx)
}

// LastRefreshed returns the time of the last successful refresh.
func (m *manager) LastRefreshed() time.Time {
	return m.reconciler.lastRefreshed()
}

// Usage returns the total size of downloaded artifacts of kind.
func (m *manager) Usage(ctx context.Context, kind ModelKind) (int64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
	return m.usage.usageByKind(kind), nil
}

// DeleteModelFile removes the backing file for fileName.
func (m *manager) DeleteModelFile(ctx context.Context, fileName string) error {
	return m.usage.deleteModelFile(fileName)
}

// SetActive selects fileName as the active artifact for kind.
func (m *manager) SetActive(ctx context.Context, kind ModelKind, fileName string) error {
	return m.usage.setActive(kind, fileName)
}

// Active returns the active artifact for kind.
func (m *manager) Active(ctx context.Context, kind ModelKind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
	return m.usage.active(kind), nil
}

// Path returns the absolute path of a downloaded artifact.
func (m *manager) Path(ctx context.Context, fileName string) (string, error) {
	rec, ok := m.catalog.get(fileName)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, fileName)
	}
	if !rec.Downloaded || !m.storage.fileExists(fileName) {
		return "", fmt.Errorf("%w: %s", ErrNotDownloaded, fileName)
	}
	return m.storage.modelPath(fileName), nil
}

// Completions returns the completion feed for kind.
func (m *manager) Completions(kind ModelKind) <-chan string {
	return m.hub.subscribeCompletions(kind)
}

// Changes returns the coalesced change-signal feed.
func (m *manager) Changes() <-chan struct{} {
	return m.hub.subscribeChanges()
}

// Close cancels in-flight transfers, shuts down the signal hub and
// releases the catalog database.
func (m *manager) Close() error {
	m.downloader.cancelAll()
	m.hub.close()
	return m.catalog.close()
}
