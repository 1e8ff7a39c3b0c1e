package translation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/khidmat/core/i18n"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type fakeSource struct {
	name       string
	pending    []PendingRow
	pendingErr error
	results    map[string]LangReport // by group
	errs       map[string]error
	calls      []PendingRow
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Pending(context.Context) ([]PendingRow, error) {
	return s.pending, s.pendingErr
}

func (s *fakeSource) Retranslate(_ context.Context, group string, lang i18n.Lang) (LangReport, error) {
	s.calls = append(s.calls, PendingRow{Group: group, Lang: lang})
	if err := s.errs[group]; err != nil {
		return LangReport{}, err
	}
	lr := s.results[group]
	lr.Lang = lang
	return lr, nil
}

func TestReconciler_Run(t *testing.T) {
	services := &fakeSource{
		name: "services",
		pending: []PendingRow{
			{Group: "pest-control", Lang: i18n.Arabic},
			{Group: "cleaning", Lang: i18n.Hindi},
			{Group: "ac", Lang: i18n.Chinese},
			{Group: "edited", Lang: i18n.French},
		},
		results: map[string]LangReport{
			"pest-control": {State: StateAuto},
			"cleaning":     {State: StateFallback, Fallbacks: []string{"title"}},
			"edited":       {State: StateManual, Skipped: true},
		},
		errs: map[string]error{"ac": errors.New("db down")},
	}
	faqs := &fakeSource{name: "faqs", pendingErr: errors.New("relation does not exist")}

	rec := NewReconciler(nopLogger{}, services)
	rec.Register(faqs)
	var fixed [][]string
	rec.OnFixed(func(_ context.Context, sources []string) { fixed = append(fixed, sources) })

	report, err := rec.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Checked: 4, Fixed: 1, Pending: 1, Skipped: 1, Failed: 2}, report)
	assert.Equal(t, services.pending, services.calls)
	assert.Equal(t, [][]string{{"services"}}, fixed)

	// nothing left to fix
	services.pending, faqs.pendingErr = nil, nil
	_, err = rec.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, fixed, 1)
}

func TestReconciler_Run_cancelled(t *testing.T) {
	src := &fakeSource{name: "faqs", pending: []PendingRow{{Group: "g", Lang: i18n.Urdu}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReconciler(nopLogger{}, src).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, src.calls)
}

func TestReconciler_Run_overlapping(t *testing.T) {
	rec := NewReconciler(nopLogger{})
	rec.running.Lock()
	defer rec.running.Unlock()

	_, err := rec.Run(context.Background())
	assert.Equal(t, ErrReconcileRunning, err)
}

func TestReconciler_Schedule(t *testing.T) {
	c := cron.New()
	rec := NewReconciler(nopLogger{})

	id, err := rec.Schedule(c, "@every 30m", time.Minute)
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Len(t, c.Entries(), 1)

	_, err = rec.Schedule(c, "every now and then", 0)
	assert.Error(t, err)
}
