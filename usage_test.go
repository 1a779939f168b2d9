package models

import (
	"errors"
	"os"
	"testing"
	"time"
)

// newTestUsage wires a diskUsage against a real storage in a temp
// directory.
func newTestUsage(t *testing.T) (*diskUsage, *catalog, *storage) {
	t.Helper()

	dir := t.TempDir()
	st := &storage{baseDir: dir, lockTimeout: time.Second}
	cat, err := openCatalog(st.catalogPath(), newSignalHub(), nil)
	if err != nil {
		t.Fatalf("openCatalog() error = %v", err)
	}
	t.Cleanup(func() { cat.close() })

	return newDiskUsage(cat, st, nil), cat, st
}

// writeModelFile places fake artifact bytes at the storage path.
func writeModelFile(t *testing.T, st *storage, fileName string, size int) {
	t.Helper()
	if err := os.WriteFile(st.modelPath(fileName), make([]byte, size), 0644); err != nil {
		t.Fatalf("writing model file: %v", err)
	}
}

func TestUsageByKind(t *testing.T) {
	u, cat, _ := newTestUsage(t)

	a := speechRecord("a.bin")
	a.SizeBytes = 100
	a.Downloaded = true
	cat.insert(a)

	b := speechRecord("b.bin")
	b.SizeBytes = 200
	b.Downloaded = true
	cat.insert(b)

	// Known but not downloaded: contributes nothing.
	c := speechRecord("c.bin")
	c.SizeBytes = 4000
	cat.insert(c)

	l := speechRecord("l.gguf")
	l.Kind = KindLanguage
	l.SizeBytes = 1000
	l.Downloaded = true
	cat.insert(l)

	if got := u.usageByKind(KindSpeech); got != 300 {
		t.Errorf("usageByKind(speech) = %d, want 300", got)
	}
	if got := u.usageByKind(KindLanguage); got != 1000 {
		t.Errorf("usageByKind(language) = %d, want 1000", got)
	}
}

func TestActiveSelection(t *testing.T) {
	u, cat, _ := newTestUsage(t)

	def := speechRecord("default.bin")
	def.IsDefault = true
	cat.insert(def)
	cat.insert(speechRecord("other.bin"))

	t.Run("falls back to the manifest default", func(t *testing.T) {
		if got := u.active(KindSpeech); got != "default.bin" {
			t.Errorf("active(speech) = %q, want default.bin", got)
		}
	})

	t.Run("no selection and no default", func(t *testing.T) {
		if got := u.active(KindLanguage); got != "" {
			t.Errorf("active(language) = %q, want empty", got)
		}
	})

	t.Run("explicit selection wins over default", func(t *testing.T) {
		if err := u.setActive(KindSpeech, "other.bin"); err != nil {
			t.Fatalf("setActive() error = %v", err)
		}
		if got := u.active(KindSpeech); got != "other.bin" {
			t.Errorf("active(speech) = %q, want other.bin", got)
		}
	})

	t.Run("rejects unknown model", func(t *testing.T) {
		if err := u.setActive(KindSpeech, "missing.bin"); !errors.Is(err, ErrUnknownModel) {
			t.Errorf("setActive() error = %v, want ErrUnknownModel", err)
		}
	})

	t.Run("rejects kind mismatch", func(t *testing.T) {
		if err := u.setActive(KindLanguage, "other.bin"); !errors.Is(err, ErrUnknownModel) {
			t.Errorf("setActive() error = %v, want ErrUnknownModel", err)
		}
	})

	t.Run("rejects unsupported kind", func(t *testing.T) {
		if err := u.setActive(ModelKind("vision"), "other.bin"); !errors.Is(err, ErrUnsupportedKind) {
			t.Errorf("setActive() error = %v, want ErrUnsupportedKind", err)
		}
	})
}

func TestDeleteModelFile(t *testing.T) {
	u, cat, st := newTestUsage(t)

	active := speechRecord("active.bin")
	active.Downloaded = true
	active.IsDefault = true
	cat.insert(active)
	writeModelFile(t, st, "active.bin", 64)

	spare := speechRecord("spare.bin")
	spare.Downloaded = true
	cat.insert(spare)
	writeModelFile(t, st, "spare.bin", 64)

	t.Run("refuses the active selection", func(t *testing.T) {
		err := u.deleteModelFile("active.bin")
		if !errors.Is(err, ErrModelActive) {
			t.Fatalf("deleteModelFile() error = %v, want ErrModelActive", err)
		}
		if !st.fileExists("active.bin") {
			t.Error("refused deletion still removed the file")
		}
		rec, _ := cat.get("active.bin")
		if !rec.Downloaded {
			t.Error("refused deletion cleared the Downloaded flag")
		}
	})

	t.Run("deletes a non-active file", func(t *testing.T) {
		if err := u.deleteModelFile("spare.bin"); err != nil {
			t.Fatalf("deleteModelFile() error = %v", err)
		}
		if st.fileExists("spare.bin") {
			t.Error("file still present after deletion")
		}
		rec, ok := cat.get("spare.bin")
		if !ok {
			t.Fatal("catalog record removed by file deletion")
		}
		if rec.Downloaded {
			t.Error("Downloaded flag still set after deletion")
		}
	})

	t.Run("unknown model", func(t *testing.T) {
		if err := u.deleteModelFile("missing.bin"); !errors.Is(err, ErrUnknownModel) {
			t.Errorf("deleteModelFile() error = %v, want ErrUnknownModel", err)
		}
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		gone := speechRecord("gone.bin")
		gone.Downloaded = true
		cat.insert(gone)
		if err := u.deleteModelFile("gone.bin"); err != nil {
			t.Errorf("deleteModelFile() error = %v for missing file", err)
		}
	})
}
