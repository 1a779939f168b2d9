package models

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// manifestServer serves the given JSON body for every request, counting
// hits.
func manifestServer(t *testing.T, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const sampleManifest = `{
	"models": [
		{
			"fileName": "tiny.bin",
			"name": "Tiny",
			"type": "speech",
			"fileSize": 100,
			"downloadURLs": ["https://cdn.example.com/tiny.bin", "https://mirror.example.com/tiny.bin"],
			"sha256": "abc123",
			"isDefault": true
		},
		{
			"fileName": "small.gguf",
			"name": "Small",
			"type": "language",
			"fileSize": 200,
			"downloadURLs": ["https://cdn.example.com/small.gguf"],
			"deprecated": true,
			"notes": "superseded"
		}
	]
}`

func TestRefreshMerge(t *testing.T) {
	cat, _ := newTestCatalog(t)

	var hits int32
	srv := manifestServer(t, sampleManifest, &hits)
	r := newReconciler(cat, http.DefaultClient, nil, srv.URL, time.Hour)

	if err := r.refresh(context.Background()); err != nil {
		t.Fatalf("refresh() error = %v", err)
	}

	t.Run("new entries inserted as not downloaded", func(t *testing.T) {
		rec, ok := cat.get("tiny.bin")
		if !ok {
			t.Fatal("tiny.bin not inserted")
		}
		if rec.Downloaded {
			t.Error("new record marked downloaded")
		}
		if rec.Kind != KindSpeech {
			t.Errorf("Kind = %s, want speech", rec.Kind)
		}
		if rec.PrimaryURL != "https://cdn.example.com/tiny.bin" {
			t.Errorf("PrimaryURL = %q", rec.PrimaryURL)
		}
		if len(rec.MirrorURLs) != 1 || rec.MirrorURLs[0] != "https://mirror.example.com/tiny.bin" {
			t.Errorf("MirrorURLs = %v", rec.MirrorURLs)
		}
		if !rec.IsDefault {
			t.Error("IsDefault lost in merge")
		}

		lang, ok := cat.get("small.gguf")
		if !ok {
			t.Fatal("small.gguf not inserted")
		}
		if !lang.IsDeprecated || lang.Notes != "superseded" {
			t.Errorf("deprecated/notes lost: %+v", lang)
		}
	})

	t.Run("timestamp advanced on success", func(t *testing.T) {
		last := r.lastRefreshed()
		if last.IsZero() {
			t.Error("lastRefreshed() zero after successful refresh")
		}
		if time.Since(last) > time.Minute {
			t.Errorf("lastRefreshed() = %v, not recent", last)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		before := cat.list()
		if err := r.refresh(context.Background()); err != nil {
			t.Fatalf("second refresh() error = %v", err)
		}
		after := cat.list()
		if len(before) != len(after) {
			t.Errorf("record count changed across identical refreshes: %d then %d", len(before), len(after))
		}
	})
}

func TestRefreshPreservesLocalState(t *testing.T) {
	cat, _ := newTestCatalog(t)

	// A record the manifest also mentions, already downloaded locally.
	existing := speechRecord("tiny.bin", "https://old.example.com/tiny.bin")
	existing.Downloaded = true
	existing.LastError = ""
	cat.insert(existing)

	// A local-only record the manifest no longer mentions.
	local := speechRecord("retired.bin", "https://old.example.com/retired.bin")
	local.Downloaded = true
	cat.insert(local)

	var hits int32
	srv := manifestServer(t, sampleManifest, &hits)
	r := newReconciler(cat, http.DefaultClient, nil, srv.URL, time.Hour)

	if err := r.refresh(context.Background()); err != nil {
		t.Fatalf("refresh() error = %v", err)
	}

	t.Run("descriptive fields updated, downloaded kept", func(t *testing.T) {
		rec, _ := cat.get("tiny.bin")
		if !rec.Downloaded {
			t.Error("merge cleared the Downloaded flag")
		}
		if rec.PrimaryURL != "https://cdn.example.com/tiny.bin" {
			t.Errorf("PrimaryURL not updated: %q", rec.PrimaryURL)
		}
		if rec.DisplayName != "Tiny" {
			t.Errorf("DisplayName not updated: %q", rec.DisplayName)
		}
	})

	t.Run("omitted records never deleted", func(t *testing.T) {
		rec, ok := cat.get("retired.bin")
		if !ok {
			t.Fatal("record missing from the manifest was deleted")
		}
		if !rec.Downloaded || rec.PrimaryURL != "https://old.example.com/retired.bin" {
			t.Errorf("omitted record mutated: %+v", rec)
		}
	})
}

func TestRefreshSkipsBadEntries(t *testing.T) {
	cat, _ := newTestCatalog(t)

	const manifest = `{
		"models": [
			{"fileName": "ok.bin", "name": "OK", "type": "speech", "downloadURLs": ["https://cdn.example.com/ok.bin"]},
			{"fileName": "vision.bin", "name": "Vision", "type": "vision", "downloadURLs": ["https://cdn.example.com/vision.bin"]},
			{"fileName": "../evil.bin", "name": "Evil", "type": "speech", "downloadURLs": ["https://cdn.example.com/evil.bin"]}
		]
	}`
	var hits int32
	srv := manifestServer(t, manifest, &hits)
	r := newReconciler(cat, http.DefaultClient, nil, srv.URL, time.Hour)

	if err := r.refresh(context.Background()); err != nil {
		t.Fatalf("refresh() error = %v", err)
	}

	if _, ok := cat.get("ok.bin"); !ok {
		t.Error("valid entry was not applied")
	}
	if _, ok := cat.get("vision.bin"); ok {
		t.Error("entry with unsupported kind was applied")
	}
	if _, ok := cat.get("../evil.bin"); ok {
		t.Error("entry with invalid file name was applied")
	}
}

func TestRefreshFailureLeavesCatalogUntouched(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "http error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantErr: ErrHTTPStatus,
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"models": [`))
			},
			wantErr: ErrManifestDecode,
		},
		{
			name: "missing models list",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{}`))
			},
			wantErr: ErrManifestDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, _ := newTestCatalog(t)
			cat.insert(speechRecord("keep.bin", "https://cdn.example.com/keep.bin"))
			if err := cat.commit(); err != nil {
				t.Fatalf("commit() error = %v", err)
			}

			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			r := newReconciler(cat, http.DefaultClient, nil, srv.URL, time.Hour)

			if err := r.refresh(context.Background()); !errors.Is(err, tt.wantErr) {
				t.Fatalf("refresh() error = %v, want %v", err, tt.wantErr)
			}

			if len(cat.list()) != 1 {
				t.Error("failed refresh changed the catalog")
			}
			if !r.lastRefreshed().IsZero() {
				t.Error("failed refresh advanced the refresh timestamp")
			}
		})
	}
}

func TestRefreshIfNeededRateLimit(t *testing.T) {
	cat, _ := newTestCatalog(t)

	var hits int32
	srv := manifestServer(t, sampleManifest, &hits)
	r := newReconciler(cat, http.DefaultClient, nil, srv.URL, time.Hour)

	if err := r.refreshIfNeeded(context.Background()); err != nil {
		t.Fatalf("first refreshIfNeeded() error = %v", err)
	}
	if err := r.refreshIfNeeded(context.Background()); err != nil {
		t.Fatalf("second refreshIfNeeded() error = %v", err)
	}
	if hits != 1 {
		t.Errorf("manifest requests = %d, want 1 (second call inside the interval)", hits)
	}

	t.Run("explicit refresh bypasses the interval", func(t *testing.T) {
		if err := r.refresh(context.Background()); err != nil {
			t.Fatalf("refresh() error = %v", err)
		}
		if hits != 2 {
			t.Errorf("manifest requests = %d, want 2", hits)
		}
	})

	t.Run("zero interval refreshes every time", func(t *testing.T) {
		r := newReconciler(cat, http.DefaultClient, nil, srv.URL, 0)
		if err := r.refreshIfNeeded(context.Background()); err != nil {
			t.Fatalf("refreshIfNeeded() error = %v", err)
		}
		if hits != 3 {
			t.Errorf("manifest requests = %d, want 3", hits)
		}
	})
}
