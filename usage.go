package models

import "fmt"

// metaActiveKey returns the catalog meta key holding the active
// selection for a kind.
func metaActiveKey(kind ModelKind) string {
	return "active_" + string(kind)
}

// diskUsage answers aggregate-size queries and owns file deletion,
// including the guard that protects the active selection.
type diskUsage struct {
	catalog *catalog
	storage storageInterface
	logger  Logger
}

// newDiskUsage creates the disk/usage accessor.
func newDiskUsage(catalog *catalog, storage storageInterface, logger Logger) *diskUsage {
	return &diskUsage{catalog: catalog, storage: storage, logger: logger}
}

// usageByKind returns the total SizeBytes of downloaded records of kind.
func (u *diskUsage) usageByKind(kind ModelKind) int64 {
	var total int64
	for _, rec := range u.catalog.list() {
		if rec.Kind == kind && rec.Downloaded {
			total += rec.SizeBytes
		}
	}
	return total
}

// active returns the selected artifact for kind. When no explicit
// selection exists the manifest default for the kind stands in.
func (u *diskUsage) active(kind ModelKind) string {
	if sel := u.catalog.getMeta(metaActiveKey(kind)); sel != "" {
		return sel
	}
	for _, rec := range u.catalog.list() {
		if rec.Kind == kind && rec.IsDefault {
			return rec.FileName
		}
	}
	return ""
}

// setActive selects the artifact for its kind and commits the change.
func (u *diskUsage) setActive(kind ModelKind, fileName string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
	rec, ok := u.catalog.get(fileName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, fileName)
	}
	if rec.Kind != kind {
		return fmt.Errorf("%w: %s is a %s model", ErrUnknownModel, fileName, rec.Kind)
	}

	u.catalog.setMeta(metaActiveKey(kind), fileName)
	return u.catalog.commit()
}

// deleteModelFile removes the backing file for fileName and clears its
// downloaded flag. Deleting the active selection for its kind is
// refused with ErrModelActive; the file and the flag are untouched.
// The catalog record itself always survives a file deletion.
func (u *diskUsage) deleteModelFile(fileName string) error {
	rec, ok := u.catalog.get(fileName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, fileName)
	}

	if u.active(rec.Kind) == fileName {
		return fmt.Errorf("%w: %s", ErrModelActive, fileName)
	}

	if err := u.storage.removeFile(fileName); err != nil {
		return err
	}

	u.catalog.update(fileName, func(r *ModelRecord) {
		r.Downloaded = false
		r.LastError = ""
	})
	if err := u.catalog.commit(); err != nil {
		return err
	}

	if u.logger != nil {
		u.logger.Info("model file deleted", "fileName", fileName)
	}
	return nil
}
