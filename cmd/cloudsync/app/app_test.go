package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/records"
	"github.com/cocoaheadsnl/cloudsync/pkg/sources"
	"github.com/cocoaheadsnl/cloudsync/pkg/store/memory"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Jobs</title>
<item><title>iOS Developer</title><link>https://jobs.example/ios</link></item>
</channel></rss>`

// upstream serves the three sources; a non-zero feedStatus breaks the feed.
func upstream(t *testing.T, feedStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/2/events", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"id":"e1","name":"CocoaHeadsNL at Foo","time":1700000000000}],"meta":{"next":""}}`))
	})
	mux.HandleFunc("/repos/CocoaHeadsNL/CocoaHeadsNL/contributors", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"login":"alice","contributions":12},{"id":2,"login":"bob","contributions":3}]`))
	})
	mux.HandleFunc("/feed", func(w http.ResponseWriter, _ *http.Request) {
		if feedStatus != 0 {
			w.WriteHeader(feedStatus)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(testFeed))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(srv *httptest.Server) *Config {
	return &Config{
		MeetupGroup:   "cocoaheadsnl",
		MeetupBaseURL: srv.URL,
		GitHubRepo:    "CocoaHeadsNL/CocoaHeadsNL",
		GitHubBaseURL: srv.URL,
		JobsFeedURL:   srv.URL + "/feed",
		ShapePolicy:   "skip",
		LogFormat:     "json",
		LogOutput:     "discard",
	}
}

func newTestApp(t *testing.T, srv *httptest.Server, st *memory.Store) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	app, err := New("1.0.0", "abc123", "2024-01-01", "test",
		WithConfig(testConfig(srv)),
		WithOutput(&out),
		WithStore(st),
	)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return app, &out
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	app, err := New("1.0.0", "abc123", "2024-01-01", "test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if app.Version() != "1.0.0" {
		t.Errorf("Version() = %s, want 1.0.0", app.Version())
	}
	if app.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if app.Config() == nil {
		t.Error("Config() returned nil")
	}
}

// TestExecute_Sync runs a full sync against the in-memory store.
func TestExecute_Sync(t *testing.T) {
	srv := upstream(t, 0)
	stale, err := records.FromStore(records.Job, "old", "", records.Fields{
		{Name: sources.FieldJobLink, Value: records.String("https://jobs.example/gone")},
	})
	if err != nil {
		t.Fatal(err)
	}
	st, err := memory.New(memory.WithRecords(stale))
	if err != nil {
		t.Fatal(err)
	}

	app, out := newTestApp(t, srv, st)
	if err := app.Execute(context.Background(), []string{"--memory"}); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d summary lines, want 3:\n%s", len(lines), out.String())
	}
	for i, want := range []string{
		"contributors: synced 2 upserted (0 matched, 2 new), 0 deleted",
		"events: synced 1 upserted (0 matched, 1 new), 0 deleted",
		"jobs: synced 1 upserted (0 matched, 1 new), 1 deleted",
	} {
		if !strings.HasPrefix(lines[i], want) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], want)
		}
	}
	if st.Len(records.Job) != 1 {
		t.Errorf("jobs in store = %d, want 1", st.Len(records.Job))
	}
}

// TestExecute_DryRunOnly verifies --dry-run and --only.
func TestExecute_DryRunOnly(t *testing.T) {
	srv := upstream(t, 0)
	st, err := memory.New()
	if err != nil {
		t.Fatal(err)
	}

	app, out := newTestApp(t, srv, st)
	err = app.Execute(context.Background(), []string{"--memory", "--dry-run", "--only", "events", "--format", "json"})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !strings.Contains(out.String(), `"stage": "events"`) {
		t.Errorf("json output missing events stage:\n%s", out.String())
	}
	if strings.Contains(out.String(), `"stage": "jobs"`) {
		t.Errorf("jobs stage ran despite --only events:\n%s", out.String())
	}
	if w := st.Calls().Writes(); w != 0 {
		t.Errorf("dry run issued %d writes", w)
	}
}

// TestExecute_Failure verifies a failing stage is reported and returned.
func TestExecute_Failure(t *testing.T) {
	srv := upstream(t, http.StatusBadGateway)
	st, err := memory.New()
	if err != nil {
		t.Fatal(err)
	}

	app, out := newTestApp(t, srv, st)
	err = app.Execute(context.Background(), []string{"--memory"})
	if err == nil {
		t.Fatal("Execute() succeeded, want jobs failure")
	}
	if stage, ok := errors.StageOf(err); !ok || stage != "jobs" {
		t.Errorf("StageOf() = %q, %v; want jobs", stage, ok)
	}
	if !strings.Contains(out.String(), "jobs: failed:") {
		t.Errorf("summary missing failure line:\n%s", out.String())
	}
	if st.Len(records.Contributor) != 2 {
		t.Errorf("contributors = %d, want 2 kept from the completed stage", st.Len(records.Contributor))
	}
}

// TestExecute_InvalidFormat verifies bad flags fail before anything runs.
func TestExecute_InvalidFormat(t *testing.T) {
	srv := upstream(t, 0)
	st, err := memory.New()
	if err != nil {
		t.Fatal(err)
	}

	app, _ := newTestApp(t, srv, st)
	err = app.Execute(context.Background(), []string{"--memory", "--format", "xml"})
	if !errors.IsValidationError(err) {
		t.Fatalf("Execute() = %v, want validation error", err)
	}
	if calls := st.Calls(); calls.Authenticate != 0 {
		t.Errorf("store was used: %+v", calls)
	}
}

// TestVersionCommand verifies the version subcommand.
func TestVersionCommand(t *testing.T) {
	srv := upstream(t, 0)
	st, err := memory.New()
	if err != nil {
		t.Fatal(err)
	}

	app, out := newTestApp(t, srv, st)
	if err := app.Execute(context.Background(), []string{"version", "-v"}); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "cloudsync 1.0.0\n") {
		t.Errorf("output = %q", out.String())
	}
	if !strings.Contains(out.String(), "commit:   abc123") {
		t.Errorf("verbose version missing commit: %q", out.String())
	}
}
