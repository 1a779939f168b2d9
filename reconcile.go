package models

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// metaLastRefresh is the catalog meta key holding the timestamp of the
// last successful manifest refresh, RFC 3339.
const metaLastRefresh = "last_refresh"

// manifestDocument is the top-level shape of the remote manifest.
type manifestDocument struct {
	// Models enumerates every artifact the publisher knows about.
	Models []ManifestEntry `json:"models"`
}

// reconciler fetches the remote manifest and merges it into the catalog
// without disturbing local-only record state.
type reconciler struct {
	catalog     *catalog
	client      HTTPClient
	logger      Logger
	manifestURL string

	// minInterval rate-limits RefreshIfNeeded.
	minInterval time.Duration

	// mu serializes refreshes; concurrent callers fold into one fetch
	// at a time. Downloads are never paused by a refresh.
	mu sync.Mutex
}

// newReconciler creates a reconciler against the given manifest URL.
func newReconciler(catalog *catalog, client HTTPClient, logger Logger, manifestURL string, minInterval time.Duration) *reconciler {
	return &reconciler{
		catalog:     catalog,
		client:      client,
		logger:      logger,
		manifestURL: manifestURL,
		minInterval: minInterval,
	}
}

// lastRefreshed returns the time of the last successful refresh, zero
// if none has succeeded yet. The timestamp is persisted in catalog
// meta, so the rate limit survives process restarts.
func (r *reconciler) lastRefreshed() time.Time {
	raw := r.catalog.getMeta(metaLastRefresh)
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// refreshIfNeeded refreshes the catalog from the remote manifest unless
// a successful refresh happened within the minimum interval, in which
// case no network call is made. Failed refreshes never advance the
// timestamp, so the next trigger retries immediately.
func (r *reconciler) refreshIfNeeded(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if last := r.lastRefreshed(); !last.IsZero() && time.Since(last) < r.minInterval {
		if r.logger != nil {
			r.logger.Debug("manifest refresh skipped", "lastRefreshed", last)
		}
		return nil
	}
	return r.refreshLocked(ctx)
}

// refresh unconditionally fetches the manifest and merges it.
func (r *reconciler) refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshLocked(ctx)
}

func (r *reconciler) refreshLocked(ctx context.Context) error {
	doc, err := r.fetchManifest(ctx)
	if err != nil {
		return err
	}
	return r.applyManifest(doc.Models)
}

// fetchManifest performs one GET of the manifest URL. Any failure
// leaves the catalog untouched.
func (r *reconciler) fetchManifest(ctx context.Context) (manifestDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.manifestURL, nil)
	if err != nil {
		return manifestDocument{}, fmt.Errorf("%w: creating manifest request: %v", ErrNetwork, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return manifestDocument{}, fmt.Errorf("%w: fetching manifest: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return manifestDocument{}, fmt.Errorf("%w: %d fetching manifest", ErrHTTPStatus, resp.StatusCode)
	}

	var doc manifestDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return manifestDocument{}, fmt.Errorf("%w: %v", ErrManifestDecode, err)
	}
	if doc.Models == nil {
		return manifestDocument{}, fmt.Errorf("%w: missing models list", ErrManifestDecode)
	}

	return doc, nil
}

// applyManifest merges entries into the catalog, keyed by file name.
//
// Existing records take only descriptive fields from the manifest;
// downloaded/progress/lastError stay exactly as they are. Unseen file
// names become new records with downloaded=false. Records the manifest
// no longer mentions are left alone: the manifest adds and updates,
// never deletes. Entries with an unrecognized kind tag or an unusable
// file name are skipped one at a time with a warning.
//
// On success the merged catalog and the advanced refresh timestamp are
// persisted in one commit.
func (r *reconciler) applyManifest(entries []ManifestEntry) error {
	for _, entry := range entries {
		kind, err := ParseKind(entry.Kind)
		if err != nil {
			if r.logger != nil {
				r.logger.Warn("skipping manifest entry with unsupported kind",
					"fileName", entry.FileName, "kind", entry.Kind)
			}
			continue
		}
		if err := validateFileName(entry.FileName); err != nil {
			if r.logger != nil {
				r.logger.Warn("skipping manifest entry with invalid file name",
					"fileName", entry.FileName)
			}
			continue
		}

		var primary string
		var mirrors []string
		if len(entry.DownloadURLs) > 0 {
			primary = entry.DownloadURLs[0]
			if len(entry.DownloadURLs) > 1 {
				mirrors = append([]string(nil), entry.DownloadURLs[1:]...)
			}
		}

		if _, exists := r.catalog.get(entry.FileName); exists {
			r.catalog.update(entry.FileName, func(rec *ModelRecord) {
				rec.DisplayName = entry.Name
				rec.Kind = kind
				rec.SizeBytes = entry.FileSize
				rec.SHA256 = entry.SHA256
				rec.PrimaryURL = primary
				rec.MirrorURLs = mirrors
				rec.IsDefault = entry.IsDefault
				rec.IsDeprecated = entry.Deprecated
				rec.Notes = entry.Notes
			})
		} else {
			r.catalog.insert(ModelRecord{
				FileName:     entry.FileName,
				DisplayName:  entry.Name,
				Kind:         kind,
				SizeBytes:    entry.FileSize,
				SHA256:       entry.SHA256,
				PrimaryURL:   primary,
				MirrorURLs:   mirrors,
				Downloaded:   false,
				IsDefault:    entry.IsDefault,
				IsDeprecated: entry.Deprecated,
				Notes:        entry.Notes,
			})
		}
	}

	r.catalog.setMeta(metaLastRefresh, time.Now().UTC().Format(time.RFC3339))
	if err := r.catalog.commit(); err != nil {
		return err
	}

	if r.logger != nil {
		r.logger.Info("manifest applied", "entries", len(entries))
	}
	return nil
}
