package cloudsync_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocoaheadsnl/cloudsync"
	pkgerrors "github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/metrics"
	"github.com/cocoaheadsnl/cloudsync/pkg/pipeline"
	"github.com/cocoaheadsnl/cloudsync/pkg/records"
	"github.com/cocoaheadsnl/cloudsync/pkg/sources"
	"github.com/cocoaheadsnl/cloudsync/pkg/store/memory"
)

func newClient(t *testing.T, st *memory.Store, jobs sources.Source[sources.Job], opts ...cloudsync.Option) cloudsync.Client {
	t.Helper()
	base := []cloudsync.Option{
		cloudsync.WithStore(st),
		cloudsync.WithContributorSource(sources.Static(sources.GitHubID,
			sources.Contributor{ID: 1, Name: "alice", CommitCount: 12},
			sources.Contributor{ID: 2, Name: "bob", CommitCount: 3},
		)),
		cloudsync.WithEventSource(sources.Static(sources.MeetupID,
			sources.Event{ID: sources.StringID("e1"), Name: "Meetup at Foo", Time: 1700000000000},
		)),
		cloudsync.WithJobSource(jobs),
	}
	c, err := cloudsync.New(append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func jobRecord(t *testing.T, name, link string) records.Record {
	t.Helper()
	r, err := records.FromStore(records.Job, name, "", records.Fields{
		{Name: sources.FieldJobLink, Value: records.String(link)},
	})
	require.NoError(t, err)
	return r
}

func TestSync(t *testing.T) {
	st, err := memory.New(memory.WithRecords(
		jobRecord(t, "job-a", "https://jobs.example/a"),
		jobRecord(t, "job-b", "https://jobs.example/b"),
	))
	require.NoError(t, err)

	c := newClient(t, st, sources.Static(sources.JobsID,
		sources.Job{Link: "https://jobs.example/a", Title: "iOS Developer"},
	))

	var states []pipeline.State
	var stages []string
	c.OnStateChange(func(tr pipeline.Transition) { states = append(states, tr.To) })
	c.OnStageComplete(func(s pipeline.StageResult) { stages = append(stages, s.Stage) })

	res, err := c.Sync(context.Background(), cloudsync.WithRunID("run-1"))
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, pipeline.StateDone, res.State)
	assert.Equal(t, pipeline.Order, stages)
	assert.Equal(t, []pipeline.State{
		pipeline.StateAuthenticating,
		pipeline.StateSyncing,
		pipeline.StateSyncing,
		pipeline.StateSyncing,
		pipeline.StateDone,
	}, states)

	assert.Equal(t, 2, st.Len(records.Contributor))
	assert.Equal(t, 1, st.Len(records.Event))
	assert.Equal(t, 1, st.Len(records.Job), "orphaned job is deleted")

	totals := res.Totals()
	assert.Equal(t, 4, totals.Upserted)
	assert.Equal(t, 1, totals.Deleted)
}

func TestSyncGeneratesRunID(t *testing.T) {
	st, err := memory.New()
	require.NoError(t, err)
	c := newClient(t, st, sources.Static[sources.Job](sources.JobsID))

	first, err := c.Sync(context.Background(), cloudsync.WithDryRun(true))
	require.NoError(t, err)
	second, err := c.Sync(context.Background(), cloudsync.WithDryRun(true))
	require.NoError(t, err)

	assert.NotEmpty(t, first.RunID)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Zero(t, st.Calls().Writes())
}

func TestSyncStages(t *testing.T) {
	st, err := memory.New()
	require.NoError(t, err)
	c := newClient(t, st, sources.Static[sources.Job](sources.JobsID))

	res, err := c.Sync(context.Background(), cloudsync.WithStages(pipeline.StageEvents))
	require.NoError(t, err)
	require.Len(t, res.Stages, 1)
	assert.Equal(t, pipeline.StageEvents, res.Stages[0].Stage)
	assert.Zero(t, st.Len(records.Contributor))
}

func TestSyncFailureRecordsMetrics(t *testing.T) {
	st, err := memory.New()
	require.NoError(t, err)

	feedErr := errors.New("feed unavailable")
	jobs := sources.Func[sources.Job]{Name: sources.JobsID, Fn: func(context.Context) ([]sources.Job, error) {
		return nil, feedErr
	}}
	m := metrics.New()
	c := newClient(t, st, jobs, cloudsync.WithMetrics(m, "", ""))

	res, err := c.Sync(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, feedErr)
	assert.True(t, pkgerrors.IsFetch(err))

	stage, ok := pkgerrors.StageOf(err)
	require.True(t, ok)
	assert.Equal(t, pipeline.StageJobs, stage)
	assert.Equal(t, pipeline.StateFailed, res.State)
	assert.Len(t, res.Stages, 2, "earlier stages are kept")

	assert.Equal(t, 2, st.Len(records.Contributor), "completed stages are not rolled back")

	expected := `
# HELP cloudsync_run_failed 1 if the last run failed, labelled by the failing stage.
# TYPE cloudsync_run_failed gauge
cloudsync_run_failed{stage="jobs"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "cloudsync_run_failed"))
}

func TestNew(t *testing.T) {
	st, err := memory.New()
	require.NoError(t, err)

	tests := []struct {
		name string
		opts []cloudsync.Option
	}{
		{"no store", []cloudsync.Option{}},
		{"no sources", []cloudsync.Option{cloudsync.WithStore(st)}},
		{"bad shape policy", []cloudsync.Option{cloudsync.WithShapePolicy(sources.ShapePolicy(9))}},
		{"nil selector", []cloudsync.Option{cloudsync.WithSelector(nil)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cloudsync.New(tt.opts...)
			assert.Error(t, err)
		})
	}
}
