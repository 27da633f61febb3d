package pipeline_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ferry/internal/assets"
	"ferry/internal/config"
	"ferry/internal/logging"
	"ferry/internal/pipeline"
	"ferry/internal/provider"
	"ferry/internal/storage"
	"ferry/internal/testsupport"
)

// stubProvider serves fixed video bytes for any GET and counts requests.
type stubProvider struct {
	srv *httptest.Server

	mu    sync.Mutex
	hits  int
	fail  bool
	bytes []byte
}

func newStubProvider(t *testing.T) *stubProvider {
	t.Helper()
	p := &stubProvider{bytes: []byte("fake mp4 payload")}
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.hits++
		fail := p.fail
		p.mu.Unlock()
		if fail {
			http.Error(w, "provider offline", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Write(p.bytes)
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *stubProvider) requests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits
}

func (p *stubProvider) setFail(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = v
}

// stubStorage accepts PUT uploads and records the object paths.
type stubStorage struct {
	srv *httptest.Server

	mu   sync.Mutex
	puts []string
	fail bool
}

func newStubStorage(t *testing.T) *stubStorage {
	t.Helper()
	s := &stubStorage{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.fail {
			http.Error(w, "storage offline", http.StatusServiceUnavailable)
			return
		}
		s.puts = append(s.puts, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *stubStorage) setFail(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = v
}

func (s *stubStorage) uploads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]string, len(s.puts))
	copy(cp, s.puts)
	return cp
}

// stubExtractor returns fixed image bytes for any POST and counts requests.
type stubExtractor struct {
	srv *httptest.Server

	mu   sync.Mutex
	hits int
	fail bool
}

func newStubExtractor(t *testing.T) *stubExtractor {
	t.Helper()
	e := &stubExtractor{}
	e.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.mu.Lock()
		e.hits++
		fail := e.fail
		e.mu.Unlock()
		if fail {
			http.Error(w, "extractor offline", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("fake jpeg payload"))
	}))
	t.Cleanup(e.srv.Close)
	return e
}

func (e *stubExtractor) requests() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hits
}

func (e *stubExtractor) setFail(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail = v
}

// fixture bundles a store plus workers wired against stub servers.
type fixture struct {
	cfg       *config.Config
	store     *assets.Store
	provider  *stubProvider
	storage   *stubStorage
	extractor *stubExtractor
	migration *pipeline.MigrationWorker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	src := newStubProvider(t)
	durable := newStubStorage(t)
	frames := newStubExtractor(t)

	cfg := testsupport.NewConfig(t,
		testsupport.WithStorageEndpoint(durable.srv.URL),
		testsupport.WithExtractorURL(frames.srv.URL),
	)
	store := testsupport.MustOpenStore(t, cfg)

	worker := pipeline.NewMigrationWorker(
		store,
		provider.New(cfg),
		storage.New(cfg),
		nil,
		nil,
		logging.NewNop(),
	)

	return &fixture{
		cfg:       cfg,
		store:     store,
		provider:  src,
		storage:   durable,
		extractor: frames,
		migration: worker,
	}
}

func (f *fixture) sourceURL(name string) string {
	return f.provider.srv.URL + "/v/" + name
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s: %s", timeout, msg)
}
