package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestPathConventions(t *testing.T) {
	if got := PanelPath("job-1", 2, 0); got != "comics/panels/job-1/part2_panel0.png" {
		t.Errorf("PanelPath = %q", got)
	}
	if got := GridPath("job-1", 1); got != "comics/grids/job-1/part1_grid.png" {
		t.Errorf("GridPath = %q", got)
	}
	if got := VideoPath("job-1"); got != "comics/videos/job-1/cinematic.mp4" {
		t.Errorf("VideoPath = %q", got)
	}
}

func TestUploadSendsUpsertPut(t *testing.T) {
	var gotPath, gotMethod, gotUpsert string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		gotUpsert = r.Header.Get("x-upsert")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := New(srv.URL, "key", "comics")
	if err := s.Upload(context.Background(), "comics/grids/j/part1_grid.png", []byte("png"), "image/png"); err != nil {
		t.Fatal(err)
	}
	if gotMethod != "PUT" {
		t.Errorf("method = %s, want PUT", gotMethod)
	}
	if gotUpsert != "true" {
		t.Errorf("x-upsert = %q, want true", gotUpsert)
	}
	if gotPath != "/storage/v1/object/comics/comics/grids/j/part1_grid.png" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestUploadRetriesOn503(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := New(srv.URL, "key", "comics")
	if err := s.Upload(context.Background(), "p.png", []byte("x"), "image/png"); err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestUploadGivesUpOn400(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := New(srv.URL, "key", "comics")
	if err := s.Upload(context.Background(), "p.png", []byte("x"), "image/png"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (400 is not retryable)", calls)
	}
}

func TestDownloadReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("panel-bytes"))
	}))
	defer srv.Close()

	s := New(srv.URL, "key", "comics")
	data, err := s.Download(context.Background(), "comics/panels/j/part1_panel0.png")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "panel-bytes" {
		t.Errorf("data = %q", data)
	}
}

func TestGetPublicURL(t *testing.T) {
	s := New("https://supa.example", "key", "comics")
	want := "https://supa.example/storage/v1/object/public/comics/comics/videos/j/cinematic.mp4"
	if got := s.GetPublicURL(VideoPath("j")); got != want {
		t.Errorf("url = %q, want %q", got, want)
	}
}
