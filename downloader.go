package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
)

// copyBufferSize is the read buffer for streaming artifact bodies.
const copyBufferSize = 256 * 1024

// transfer tracks one in-flight artifact download.
type transfer struct {
	// cancel aborts the transfer context.
	cancel context.CancelFunc

	// done is closed after the transfer goroutine has cleaned up and
	// released its active-set entry.
	done chan struct{}
}

// downloader orchestrates artifact transfers: candidate URL ordering,
// mirror fallback, checksum verification, progress reporting and
// cancellation.
//
// The active map enforces the at-most-one-transfer-per-artifact
// invariant: an artifact is registered before any I/O starts and
// released only after its temp file and lock are gone.
type downloader struct {
	catalog *catalog
	storage storageInterface
	client  HTTPClient
	logger  Logger
	verify  VerifyFunc
	hub     *signalHub

	// mu guards active.
	mu     sync.Mutex
	active map[string]*transfer
}

// newDownloader creates a downloader with no transfers in flight.
func newDownloader(catalog *catalog, storage storageInterface, client HTTPClient, logger Logger, verify VerifyFunc, hub *signalHub) *downloader {
	return &downloader{
		catalog: catalog,
		storage: storage,
		client:  client,
		logger:  logger,
		verify:  verify,
		hub:     hub,
		active:  make(map[string]*transfer),
	}
}

// fetch downloads the artifact and blocks until it reaches a terminal
// state. If a transfer for fileName is already active, fetch returns
// nil immediately without touching it. A record that is already
// downloaded is a network-free no-op unless cfg.force is set.
func (d *downloader) fetch(ctx context.Context, fileName string, cfg *fetchConfig) error {
	if err := validateFileName(fileName); err != nil {
		return err
	}

	rec, ok := d.catalog.get(fileName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, fileName)
	}

	if rec.Downloaded && !cfg.force {
		return nil
	}

	d.mu.Lock()
	if _, exists := d.active[fileName]; exists {
		d.mu.Unlock()
		return nil
	}
	tctx, cancel := context.WithCancel(ctx)
	t := &transfer{cancel: cancel, done: make(chan struct{})}
	d.active[fileName] = t
	d.mu.Unlock()

	defer func() {
		cancel()
		d.mu.Lock()
		delete(d.active, fileName)
		d.mu.Unlock()
		// Closed strictly after the active entry is released, so a
		// caller waiting in Cancel can Fetch again immediately.
		close(t.done)
	}()

	return d.run(tctx, rec, cfg)
}

// cancel aborts any in-flight transfer for fileName and waits until its
// partial file is removed and the active-set entry is released. It is
// not an error to cancel an artifact with no transfer in flight.
func (d *downloader) cancel(fileName string) {
	d.mu.Lock()
	t := d.active[fileName]
	d.mu.Unlock()

	if t == nil {
		return
	}
	t.cancel()
	<-t.done
}

// isActive reports whether a transfer for fileName is in flight.
func (d *downloader) isActive(fileName string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.active[fileName]
	return ok
}

// cancelAll aborts every in-flight transfer and waits for each to
// release. Used on Manager shutdown.
func (d *downloader) cancelAll() {
	d.mu.Lock()
	transfers := make([]*transfer, 0, len(d.active))
	for _, t := range d.active {
		transfers = append(transfers, t)
	}
	d.mu.Unlock()

	for _, t := range transfers {
		t.cancel()
		<-t.done
	}
}

// run walks the candidate URL list for one registered transfer.
//
// Transport failures and bad statuses advance to the next mirror;
// storage failures abort immediately since a different remote source
// cannot fix a local disk problem. The terminal state is committed to
// the catalog in one batch.
func (d *downloader) run(ctx context.Context, rec ModelRecord, cfg *fetchConfig) error {
	fileName := rec.FileName

	urls := rec.sourceURLs()
	if len(urls) == 0 {
		return d.failTerminal(fileName, fmt.Errorf("%w: %s", ErrNoSources, fileName))
	}

	// Cross-process guard: a second process fetching the same artifact
	// waits here rather than racing for the destination path.
	lock, err := d.storage.newLock(fileName)
	if err != nil {
		return d.failTerminal(fileName, err)
	}
	if err := lock.Lock(); err != nil {
		return d.failTerminal(fileName, fmt.Errorf("%w: another process is fetching this model: %v", ErrStorage, err))
	}
	defer lock.Unlock()

	var lastErr error
	for i, url := range urls {
		// New attempt: clear the previous error, mark transferring.
		d.catalog.updateTransient(fileName, func(r *ModelRecord) {
			r.LastError = ""
			zero := 0.0
			r.Progress = &zero
		})

		err := d.attempt(ctx, rec, i, url, cfg)
		if err == nil {
			d.catalog.update(fileName, func(r *ModelRecord) {
				r.Downloaded = true
				r.Progress = nil
				r.LastError = ""
			})
			if d.logger != nil {
				d.logger.Info("model downloaded", "fileName", fileName, "url", url)
			}
			// The verified file is in place, so completion is signalled
			// even if persisting the record fails.
			d.hub.publishCompletion(rec.Kind, fileName)
			if cerr := d.catalog.commit(); cerr != nil {
				if d.logger != nil {
					d.logger.Error("failed to commit fetch success", "fileName", fileName, "error", cerr)
				}
				return cerr
			}
			return nil
		}

		if ctx.Err() != nil {
			// Cancelled: back to idle. The partial temp file is already
			// gone; a completed file from an earlier fetch is untouched.
			d.catalog.updateTransient(fileName, func(r *ModelRecord) {
				r.Progress = nil
			})
			if d.logger != nil {
				d.logger.Info("fetch cancelled", "fileName", fileName)
			}
			return ctx.Err()
		}

		lastErr = err
		// Surface the failure on the record before moving on, so a UI
		// polling mid-fetch sees why the previous source was abandoned.
		d.catalog.updateTransient(fileName, func(r *ModelRecord) {
			r.LastError = err.Error()
		})
		if d.logger != nil {
			d.logger.Warn("fetch attempt failed",
				"fileName", fileName, "attempt", i, "url", url, "error", err)
		}
		if errors.Is(err, ErrStorage) {
			break
		}
	}

	return d.failTerminal(fileName, lastErr)
}

// failTerminal records a terminal failure on the catalog record and
// commits it, returning err unchanged for the caller. The downloaded
// flag is reconciled against the disk so the record never claims a
// verified copy that is no longer there.
func (d *downloader) failTerminal(fileName string, err error) error {
	msg := err.Error()
	d.catalog.update(fileName, func(r *ModelRecord) {
		r.Progress = nil
		r.LastError = msg
		if r.Downloaded && !d.storage.fileExists(fileName) {
			r.Downloaded = false
		}
	})
	if cerr := d.catalog.commit(); cerr != nil && d.logger != nil {
		d.logger.Error("failed to commit fetch failure", "fileName", fileName, "error", cerr)
	}
	return err
}

// attempt performs one streamed download from url into the artifact's
// destination path, verifying the checksum if the record carries one.
// Verification runs against the temp file, so the destination only ever
// changes when a fully verified replacement is ready: on any error a
// previous complete copy survives untouched.
func (d *downloader) attempt(ctx context.Context, rec ModelRecord, index int, url string, cfg *fetchConfig) error {
	fileName := rec.FileName
	dst := d.storage.modelPath(fileName)

	tmp, err := d.storage.createTemp(fileName)
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	discard := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		discard()
		return fmt.Errorf("%w: creating request for %s: %v", ErrNetwork, url, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		discard()
		return fmt.Errorf("%w: %s: %v", ErrNetwork, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		discard()
		return fmt.Errorf("%w: %d from %s", ErrHTTPStatus, resp.StatusCode, url)
	}

	total := rec.SizeBytes
	if resp.ContentLength > 0 {
		total = resp.ContentLength
	}

	if err := d.copyBody(ctx, tmp, resp.Body, rec, index, url, total, cfg); err != nil {
		discard()
		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: closing temp file: %v", ErrStorage, err)
	}

	if rec.SHA256 != "" {
		if err := d.verify(tmpPath, rec.SHA256); err != nil {
			os.Remove(tmpPath)
			return err
		}
	}

	return d.storage.replaceFile(tmpPath, dst)
}

// copyBody streams body into tmp, reporting progress as whole-percent
// steps. Read and write failures are classified separately so the
// caller can tell a dead mirror from a full disk.
func (d *downloader) copyBody(ctx context.Context, tmp *os.File, body io.Reader, rec ModelRecord, index int, url string, total int64, cfg *fetchConfig) error {
	var (
		received int64
		lastStep = -1
	)

	report := func() {
		var fraction float64
		if total > 0 {
			fraction = float64(received) / float64(total)
			if fraction > 1 {
				fraction = 1
			}
		}
		step := int(fraction * 100)
		if step == lastStep && total > 0 {
			return
		}
		lastStep = step

		d.catalog.updateTransient(rec.FileName, func(r *ModelRecord) {
			f := fraction
			r.Progress = &f
		})
		if cfg.progressFn != nil {
			cfg.progressFn(FetchProgress{
				FileName:      rec.FileName,
				Attempt:       index,
				URL:           url,
				BytesReceived: received,
				BytesTotal:    total,
				Fraction:      fraction,
			})
		}
	}

	buf := make([]byte, copyBufferSize)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := tmp.Write(buf[:n]); werr != nil {
				return fmt.Errorf("%w: writing temp file: %v", ErrStorage, werr)
			}
			received += int64(n)
			report()
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: reading %s: %v", ErrNetwork, url, rerr)
		}
	}

	return nil
}
