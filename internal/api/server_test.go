package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ah-its-andy/webpconv/internal/converter"
	"github.com/ah-its-andy/webpconv/internal/db"
	"github.com/ah-its-andy/webpconv/internal/queue"
	"github.com/ah-its-andy/webpconv/internal/result"
	"github.com/ah-its-andy/webpconv/internal/settings"
	"github.com/ah-its-andy/webpconv/internal/watcher"
	"github.com/gin-gonic/gin"
)

type stubConverter struct {
	processed int
	err       error
	release   chan struct{}
}

func (s *stubConverter) Name() string { return "stub" }

func (s *stubConverter) Convert(ctx context.Context, req converter.Request) (int, error) {
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return 0, s.err
	}
	if s.processed < 0 {
		return len(req.Files), nil
	}
	return s.processed, nil
}

type testEnv struct {
	srv     *Server
	session *queue.Session
	board   *result.Board
	store   settings.Store
	conv    *stubConverter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn, err := db.Init(filepath.Join(t.TempDir(), "api.db"), "SILENT")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close(conn) })

	store := settings.NewDBStore(conn)
	board := result.NewBoard(time.Minute)
	session := queue.NewSession(queue.WithStore(store), queue.WithBoard(board))
	conv := &stubConverter{processed: -1}
	reg := converter.NewRegistry()
	reg.Register(conv)

	srv := NewServer(Options{DB: conn, Session: session, Board: board, Registry: reg, Settings: store})
	return &testEnv{srv: srv, session: session, board: board, store: store, conv: conv}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.srv.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

type snapshotBody struct {
	Entries []struct {
		SourcePath string `json:"source_path"`
		Selected   bool   `json:"selected"`
		Quality    int    `json:"quality"`
		Format     string `json:"format"`
	} `json:"entries"`
	AllSelected bool `json:"all_selected"`
	Override    struct {
		Quality int    `json:"quality"`
		Format  string `json:"format"`
	} `json:"override"`
	State string `json:"state"`
}

func TestQueueRoutes(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/queue/files", gin.H{"paths": []string{"/in/a.jpg", "/in/b.tiff", "/in/a.jpg"}})
	if w.Code != http.StatusOK {
		t.Fatalf("add files: %d %s", w.Code, w.Body.String())
	}
	w = e.do(t, http.MethodPost, "/api/queue/drop", gin.H{"paths": []string{"/in/c.webp", "/in/notes.txt"}})
	if w.Code != http.StatusOK {
		t.Fatalf("drop: %d %s", w.Code, w.Body.String())
	}
	w = e.do(t, http.MethodPost, "/api/queue/files", gin.H{"paths": nil})
	if w.Code != http.StatusOK {
		t.Fatalf("cancelled picker: %d", w.Code)
	}

	var snap snapshotBody
	decode(t, e.do(t, http.MethodGet, "/api/queue", nil), &snap)
	if len(snap.Entries) != 3 || !snap.AllSelected || snap.State != "idle" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Entries[0].Format != "WEBP" || snap.Entries[1].Format != "PNG" || snap.Entries[0].Quality != 100 {
		t.Fatalf("unexpected defaults %+v", snap.Entries)
	}

	if w := e.do(t, http.MethodPost, "/api/queue/1/toggle", nil); w.Code != http.StatusOK {
		t.Fatalf("toggle: %d", w.Code)
	}
	if w := e.do(t, http.MethodPut, "/api/queue/0/quality", gin.H{"quality": 75}); w.Code != http.StatusOK {
		t.Fatalf("entry quality: %d %s", w.Code, w.Body.String())
	}
	if w := e.do(t, http.MethodPut, "/api/queue/0/format", gin.H{"format": "bmp"}); w.Code != http.StatusOK {
		t.Fatalf("entry format: %d %s", w.Code, w.Body.String())
	}
	decode(t, e.do(t, http.MethodGet, "/api/queue", nil), &snap)
	if snap.AllSelected || snap.Entries[0].Quality != 75 || snap.Entries[0].Format != "BMP" {
		t.Fatalf("mutations not applied %+v", snap)
	}

	if w := e.do(t, http.MethodPut, "/api/queue/selection", gin.H{"checked": true}); w.Code != http.StatusOK {
		t.Fatalf("select all: %d", w.Code)
	}
	if w := e.do(t, http.MethodDelete, "/api/queue/2", nil); w.Code != http.StatusOK {
		t.Fatalf("delete: %d", w.Code)
	}
	if e.session.Len() != 2 {
		t.Fatalf("expected 2 entries, have %d", e.session.Len())
	}
	if w := e.do(t, http.MethodDelete, "/api/queue", nil); w.Code != http.StatusOK || e.session.Len() != 0 {
		t.Fatalf("clear: %d len=%d", w.Code, e.session.Len())
	}
}

func TestQueueErrors(t *testing.T) {
	e := newTestEnv(t)
	e.session.AddFiles([]string{"/in/a.jpg"})

	tests := []struct {
		method string
		path   string
		body   any
		code   int
	}{
		{http.MethodPost, "/api/queue/5/toggle", nil, http.StatusNotFound},
		{http.MethodPost, "/api/queue/x/toggle", nil, http.StatusBadRequest},
		{http.MethodDelete, "/api/queue/-1", nil, http.StatusNotFound},
		{http.MethodPut, "/api/queue/0/quality", gin.H{"quality": 85}, http.StatusBadRequest},
		{http.MethodPut, "/api/queue/0/quality", gin.H{"quality": 0}, http.StatusBadRequest},
		{http.MethodPut, "/api/queue/0/quality", gin.H{}, http.StatusBadRequest},
		{http.MethodPut, "/api/queue/0/format", gin.H{"format": "GIF"}, http.StatusBadRequest},
		{http.MethodPut, "/api/queue/0/format", gin.H{"format": ""}, http.StatusBadRequest},
		{http.MethodPut, "/api/override/quality", gin.H{"quality": 60}, http.StatusBadRequest},
		{http.MethodPost, "/api/convert", gin.H{"destination": ""}, http.StatusBadRequest},
		{http.MethodPost, "/api/convert", gin.H{"destination": "/out", "converter": "missing"}, http.StatusBadRequest},
		{http.MethodGet, "/api/convert/unknown", nil, http.StatusNotFound},
		{http.MethodPut, "/api/converters/missing", gin.H{"enabled": true}, http.StatusNotFound},
	}
	for _, tt := range tests {
		if w := e.do(t, tt.method, tt.path, tt.body); w.Code != tt.code {
			t.Errorf("%s %s: %d, expected %d (%s)", tt.method, tt.path, w.Code, tt.code, w.Body.String())
		}
	}
}

func TestOverrideRoutesPersist(t *testing.T) {
	e := newTestEnv(t)
	if w := e.do(t, http.MethodPut, "/api/override/quality", gin.H{"quality": 50}); w.Code != http.StatusOK {
		t.Fatalf("override quality: %d %s", w.Code, w.Body.String())
	}
	if w := e.do(t, http.MethodPut, "/api/override/format", gin.H{"format": "TIFF"}); w.Code != http.StatusOK {
		t.Fatalf("override format: %d", w.Code)
	}
	if v, _ := e.store.Get(settings.KeyBatchQuality); v != "50" {
		t.Errorf("stored quality %q", v)
	}
	if v, _ := e.store.Get(settings.KeyBatchFormat); v != "TIFF" {
		t.Errorf("stored format %q", v)
	}
	if w := e.do(t, http.MethodPut, "/api/override/quality", gin.H{"quality": 0}); w.Code != http.StatusOK {
		t.Fatalf("clearing the override: %d", w.Code)
	}
	if e.session.Override().Quality != 0 {
		t.Fatal("override not cleared")
	}
}

func TestConvertLifecycle(t *testing.T) {
	e := newTestEnv(t)
	e.session.AddFiles([]string{"/in/a.jpg", "/in/b.png"})
	e.conv.release = make(chan struct{})

	w := e.do(t, http.MethodPost, "/api/convert", gin.H{"destination": "/out"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("convert: %d %s", w.Code, w.Body.String())
	}
	var started struct {
		RunID     string `json:"run_id"`
		Requested int    `json:"requested"`
	}
	decode(t, w, &started)
	if started.RunID == "" || started.Requested != 2 {
		t.Fatalf("unexpected response %+v", started)
	}

	// the session is busy until the converter returns
	if w := e.do(t, http.MethodPost, "/api/queue/files", gin.H{"paths": []string{"/in/c.jpg"}}); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 while processing, got %d", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/api/convert", gin.H{"destination": "/out"}); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a second dispatch, got %d", w.Code)
	}

	close(e.conv.release)
	e.srv.Wait()

	var run db.ConversionRun
	decode(t, e.do(t, http.MethodGet, "/api/convert/"+started.RunID, nil), &run)
	if run.Status != db.RunSuccess || run.Processed != 2 || run.Converter != "stub" {
		t.Fatalf("unexpected run %+v", run)
	}
	var files []converter.File
	if err := json.Unmarshal(run.Files, &files); err != nil || len(files) != 2 || files[0].SourcePath != "/in/a.jpg" {
		t.Fatalf("unexpected recorded files %s (%v)", run.Files, err)
	}

	var notice struct {
		Notice *result.Notice `json:"notice"`
	}
	decode(t, e.do(t, http.MethodGet, "/api/notice", nil), &notice)
	if notice.Notice == nil || notice.Notice.Message != "Processed 2 of 2 images" || notice.Notice.Status != result.StatusSuccess {
		t.Fatalf("unexpected notice %+v", notice.Notice)
	}
	e.do(t, http.MethodDelete, "/api/notice", nil)
	decode(t, e.do(t, http.MethodGet, "/api/notice", nil), &notice)
	if notice.Notice != nil {
		t.Fatal("notice should be dismissed")
	}

	var runs struct {
		Data  []db.ConversionRun `json:"data"`
		Total int64              `json:"total"`
	}
	decode(t, e.do(t, http.MethodGet, "/api/runs?limit=5", nil), &runs)
	if runs.Total != 1 || len(runs.Data) != 1 {
		t.Fatalf("unexpected run history %+v", runs)
	}
}

func TestConvertFailureRecorded(t *testing.T) {
	e := newTestEnv(t)
	e.session.AddFiles([]string{"/in/a.jpg"})
	e.conv.err = errors.New("tool crashed")

	var started struct {
		RunID string `json:"run_id"`
	}
	decode(t, e.do(t, http.MethodPost, "/api/convert", gin.H{"destination": "/out"}), &started)
	e.srv.Wait()

	run, err := db.GetRun(e.srv.opts.DB, started.RunID)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != db.RunError || run.Error == "" {
		t.Fatalf("unexpected run %+v", run)
	}
	if n, _ := e.board.Current(); n.Message != "Processed 0 of 1 images" {
		t.Fatalf("unexpected notice %q", n.Message)
	}
	if e.session.Processing() {
		t.Fatal("session left busy")
	}
}

func TestNothingSelected(t *testing.T) {
	e := newTestEnv(t)
	e.session.AddFiles([]string{"/in/a.jpg"})
	e.session.SetAllSelection(false)
	if w := e.do(t, http.MethodPost, "/api/convert", gin.H{"destination": "/out"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestMetadataRoutes(t *testing.T) {
	e := newTestEnv(t)

	var formats struct {
		Formats   []FormatResponse `json:"formats"`
		Qualities []int            `json:"qualities"`
	}
	decode(t, e.do(t, http.MethodGet, "/api/formats", nil), &formats)
	if len(formats.Formats) != 5 || formats.Formats[0].Name != "WEBP" || !formats.Formats[0].Lossy || formats.Formats[4].Extension != "bmp" {
		t.Fatalf("unexpected formats %+v", formats.Formats)
	}
	if len(formats.Qualities) != 5 || formats.Qualities[0] != 100 {
		t.Fatalf("unexpected qualities %v", formats.Qualities)
	}

	var convs []ConverterResponse
	decode(t, e.do(t, http.MethodGet, "/api/converters", nil), &convs)
	if len(convs) != 1 || convs[0].Name != "stub" || !convs[0].Enabled || !convs[0].Default {
		t.Fatalf("unexpected converters %+v", convs)
	}
	if w := e.do(t, http.MethodPut, "/api/converters/stub", gin.H{"enabled": false}); w.Code != http.StatusOK {
		t.Fatalf("disable: %d", w.Code)
	}
	e.session.AddFiles([]string{"/in/a.jpg"})
	if w := e.do(t, http.MethodPost, "/api/convert", gin.H{"destination": "/out"}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without an enabled converter, got %d", w.Code)
	}

	if w := e.do(t, http.MethodPut, "/api/settings/theme", gin.H{"theme": "dark"}); w.Code != http.StatusOK {
		t.Fatalf("put theme: %d", w.Code)
	}
	var theme struct {
		Theme string `json:"theme"`
	}
	decode(t, e.do(t, http.MethodGet, "/api/settings/theme", nil), &theme)
	if theme.Theme != "dark" {
		t.Fatalf("theme = %q", theme.Theme)
	}

	var live struct {
		Data []any `json:"data"`
	}
	decode(t, e.do(t, http.MethodGet, "/api/convert/live", nil), &live)
	if live.Data == nil || len(live.Data) != 0 {
		t.Fatalf("expected an empty live list, got %v", live.Data)
	}

	var status map[string]any
	decode(t, e.do(t, http.MethodGet, "/api/status", nil), &status)
	if status["state"] != "idle" || status["watcher_state"] != "disabled" {
		t.Fatalf("unexpected status %v", status)
	}
}

func TestCorsPreflight(t *testing.T) {
	e := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/queue", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	w := httptest.NewRecorder()
	e.srv.Router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight: %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestStaticDir(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>webpconv</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	srv := NewServer(Options{
		Session:   queue.NewSession(),
		Board:     result.NewBoard(time.Minute),
		Registry:  converter.NewRegistry(),
		Settings:  settings.NewMemoryStore(),
		StaticDir: dir,
	})

	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "webpconv") {
		t.Fatalf("index: %d %q", w.Code, w.Body.String())
	}

	// api routes are not shadowed
	w = httptest.NewRecorder()
	srv.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestWatcherPauseResume(t *testing.T) {
	e := newTestEnv(t)
	if w := e.do(t, http.MethodPut, "/api/watcher", gin.H{"paused": true}); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a watcher, got %d", w.Code)
	}

	wr, err := watcher.New(filepath.Join(t.TempDir(), "drop"), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { wr.Close() })
	e.srv.opts.Watcher = wr

	if w := e.do(t, http.MethodPut, "/api/watcher", gin.H{}); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without paused, got %d", w.Code)
	}

	var resp struct {
		WatcherState string `json:"watcher_state"`
	}
	decode(t, e.do(t, http.MethodPut, "/api/watcher", gin.H{"paused": true}), &resp)
	if resp.WatcherState != "paused" || !wr.Paused() {
		t.Fatalf("expected paused watcher, got %q", resp.WatcherState)
	}
	var status map[string]any
	decode(t, e.do(t, http.MethodGet, "/api/status", nil), &status)
	if status["watcher_state"] != "paused" {
		t.Fatalf("status reports %v", status["watcher_state"])
	}

	decode(t, e.do(t, http.MethodPut, "/api/watcher", gin.H{"paused": false}), &resp)
	if resp.WatcherState != "running" || wr.Paused() {
		t.Fatalf("expected running watcher, got %q", resp.WatcherState)
	}
}
