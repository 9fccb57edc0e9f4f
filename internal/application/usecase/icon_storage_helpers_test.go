package usecase_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/touchicons/internal/application/port"
	portmocks "github.com/bnema/touchicons/internal/application/port/mocks"
	"github.com/bnema/touchicons/internal/application/usecase"
	"github.com/bnema/touchicons/internal/domain/entity"
	"github.com/bnema/touchicons/internal/logging"
)

func testContext() context.Context {
	logger := logging.NewFromConfigValues("debug", "console")
	return logging.WithContext(context.Background(), logger)
}

// memPrefs is an in-memory PrefRepository.
type memPrefs struct {
	mu    sync.Mutex
	lists map[string][]json.RawMessage
	sets  int
}

func newMemPrefs() *memPrefs {
	return &memPrefs{lists: make(map[string][]json.RawMessage)}
}

func (p *memPrefs) GetList(_ context.Context, key string) ([]json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]json.RawMessage(nil), p.lists[key]...), nil
}

func (p *memPrefs) SetList(_ context.Context, key string, values []json.RawMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lists[key] = append([]json.RawMessage(nil), values...)
	p.sets++
	return nil
}

func (p *memPrefs) entries(t *testing.T) []map[string]any {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]map[string]any, 0, len(p.lists[usecase.IconsPrefKey]))
	for _, raw := range p.lists[usecase.IconsPrefKey] {
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		out = append(out, m)
	}
	return out
}

func (p *memPrefs) setCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sets
}

// memBlobs is an in-memory BlobStore rooted at a fake directory.
type memBlobs struct {
	mu        sync.Mutex
	dir       string
	files     map[string][]byte
	seq       int
	createErr error
	writeErr  error
}

func newMemBlobs(dir string) *memBlobs {
	return &memBlobs{dir: dir, files: make(map[string][]byte)}
}

func (b *memBlobs) Dir() string { return b.dir }

func (b *memBlobs) CreateDirectory() error { return b.createErr }

func (b *memBlobs) Write(data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writeErr != nil {
		return "", b.writeErr
	}
	b.seq++
	file := filepath.Join(b.dir, fmt.Sprintf("blob-%03d.png", b.seq))
	b.files[file] = append([]byte(nil), data...)
	return file, nil
}

func (b *memBlobs) Delete(file string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.files[file]; !ok {
		return ""
	}
	delete(b.files, file)
	return file
}

func (b *memBlobs) Read(file string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.files[file]
	if !ok {
		return nil
	}
	return append([]byte(nil), data...)
}

func (b *memBlobs) put(file string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[file] = data
}

func (b *memBlobs) remove(file string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.files, file)
}

func (b *memBlobs) has(file string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.files[file]
	return ok
}

func (b *memBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.files)
}

// pngCodec decodes and encodes PNG only.
type pngCodec struct{}

func (pngCodec) Decode(_ context.Context, data []byte, _ int) (image.Image, error) {
	return png.Decode(bytes.NewReader(data))
}

func (pngCodec) EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (pngCodec) Resize(_ image.Image, edge int) image.Image {
	return image.NewNRGBA(image.Rect(0, 0, edge, edge))
}

func pngBytes(t *testing.T, edge int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, edge, edge))
	for x := 0; x < edge; x++ {
		img.Set(x, x, color.NRGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// eventLog records observer notifications in order.
type eventLog struct {
	mu     sync.Mutex
	events []port.IconEvent
}

func (l *eventLog) add(ev port.IconEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) of(kind port.IconEventKind) []port.IconEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []port.IconEvent
	for _, ev := range l.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// iconServer maps icon URLs to the edge length of the PNG served there.
// Unknown URLs fail like a 404.
type iconServer struct {
	mu    sync.Mutex
	t     *testing.T
	edges map[string]int
	raw   map[string][]byte
	calls map[string]int
}

func newIconServer(t *testing.T) *iconServer {
	return &iconServer{
		t:     t,
		edges: make(map[string]int),
		raw:   make(map[string][]byte),
		calls: make(map[string]int),
	}
}

func (s *iconServer) serve(rawURL string, edge int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[rawURL] = edge
}

func (s *iconServer) serveRaw(rawURL string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[rawURL] = data
}

func (s *iconServer) fetch(_ context.Context, rawURL string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[rawURL]++
	if data, ok := s.raw[rawURL]; ok {
		return data, nil
	}
	edge, ok := s.edges[rawURL]
	if !ok {
		return nil, errors.New("404 not found")
	}
	return pngBytes(s.t, edge), nil
}

func (s *iconServer) callCount(rawURL string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[rawURL]
}

type storageFixture struct {
	ctx     context.Context
	prefs   *memPrefs
	blobs   *memBlobs
	server  *iconServer
	fetcher *portmocks.MockIconFetcher
	clock   *fakeClock
	events  *eventLog
	opts    usecase.IconStorageOptions
}

func newStorageFixture(t *testing.T) *storageFixture {
	t.Helper()

	f := &storageFixture{
		ctx:    testContext(),
		prefs:  newMemPrefs(),
		blobs:  newMemBlobs("/data/touchicons/icons"),
		server: newIconServer(t),
		clock:  newFakeClock(),
		events: &eventLog{},
	}

	f.fetcher = portmocks.NewMockIconFetcher(t)
	f.fetcher.EXPECT().Fetch(mock.Anything, mock.Anything).RunAndReturn(f.server.fetch).Maybe()

	f.opts = usecase.IconStorageOptions{
		Now:       f.clock.Now,
		Observers: []port.IconObserver{port.NewIconListener(port.AllIconEvents, f.events.add)},
	}
	return f
}

func (f *storageFixture) open(t *testing.T) *usecase.IconStorage {
	t.Helper()

	storage, err := usecase.NewIconStorage(f.ctx, f.prefs, f.blobs, f.fetcher, pngCodec{}, f.opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close(context.Background()) })

	require.NoError(t, storage.Idle(f.ctx))
	return storage
}

// seededIcon describes a record placed in the pref store before opening.
type seededIcon struct {
	origin   string
	iconType entity.IconType
	size     int
	fetch    time.Time
	visit    time.Time
	request  time.Time
	noBlob   bool
}

func micros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func (f *storageFixture) seed(t *testing.T, icons ...seededIcon) []string {
	t.Helper()

	files := make([]string, 0, len(icons))
	values := make([]json.RawMessage, 0, len(icons))
	for i, icon := range icons {
		file := filepath.Join(f.blobs.Dir(), fmt.Sprintf("seed-%d.png", i))
		if !icon.noBlob {
			edge := icon.size
			if edge <= 0 {
				edge = 16
			}
			f.blobs.put(file, pngBytes(t, edge))
		}
		files = append(files, file)

		raw, err := json.Marshal(map[string]any{
			"host_origin":       icon.origin,
			"icon_url":          icon.origin + "/apple-touch-icon.png",
			"icon_file":         file,
			"icon_type":         int(icon.iconType),
			"icon_size":         icon.size,
			"icon_fetch_time":   micros(icon.fetch),
			"last_visit_time":   micros(icon.visit),
			"last_request_time": micros(icon.request),
		})
		require.NoError(t, err)
		values = append(values, raw)
	}

	require.NoError(t, f.prefs.SetList(f.ctx, usecase.IconsPrefKey, values))
	return files
}

func origins(records []*entity.IconRecord) []string {
	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Origin)
	}
	return out
}
