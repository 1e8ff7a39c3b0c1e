package translation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/i18n"
)

var ErrReconcileRunning = errors.New("a reconciliation is already running")

// PendingRow identifies a language row still holding English text.
type PendingRow struct {
	Group string
	Lang  i18n.Lang
}

// Source is a translatable entity the Reconciler can retranslate.
type Source interface {
	Name() string
	Pending(ctx context.Context) ([]PendingRow, error)
	Retranslate(ctx context.Context, group string, lang i18n.Lang) (LangReport, error)
}

type ReconcileReport struct {
	Checked int `json:"checked"`
	Fixed   int `json:"fixed"`
	Pending int `json:"pending"` // still in fallback state
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Reconciler retranslates the rows left in fallback state, one language at a time.
type Reconciler struct {
	sources []Source
	logger  core.Logger
	running sync.Mutex
	onFixed []func(ctx context.Context, sources []string)
}

func NewReconciler(logger core.Logger, sources ...Source) *Reconciler {
	return &Reconciler{sources: sources, logger: logger}
}

func (r *Reconciler) Register(sources ...Source) {
	r.sources = append(r.sources, sources...)
}

// OnFixed registers fn to run after every pass that fixed rows, with the names of their sources.
// Register hooks before the first Run.
func (r *Reconciler) OnFixed(fn func(ctx context.Context, sources []string)) {
	r.onFixed = append(r.onFixed, fn)
}

func (r *Reconciler) fixed(ctx context.Context, sources []string) {
	if len(sources) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, fn := range r.onFixed {
		fn(ctx, sources)
	}
}

// Run makes one pass over every source. Errors of one row do not stop the pass.
func (r *Reconciler) Run(ctx context.Context) (ReconcileReport, error) {
	if !r.running.TryLock() {
		return ReconcileReport{}, ErrReconcileRunning
	}
	defer r.running.Unlock()

	var (
		report ReconcileReport
		fixed  []string
	)
	defer func() { r.fixed(ctx, fixed) }()

	for _, src := range r.sources {
		rows, err := src.Pending(ctx)
		if err != nil {
			r.logger.Error(fmt.Sprintf("reconcile %s: listing pending rows: %v", src.Name(), err), err)
			report.Failed++
			continue
		}

		before := report.Fixed
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				if report.Fixed > before {
					fixed = append(fixed, src.Name())
				}
				return report, errors.Wrap(err, "reconciling")
			}
			report.Checked++

			lr, err := src.Retranslate(ctx, row.Group, row.Lang)
			switch {
			case err != nil:
				r.logger.Error(fmt.Sprintf("reconcile %s %s/%s: %v", src.Name(), row.Group, row.Lang, err), err)
				report.Failed++
			case lr.Skipped:
				report.Skipped++
			case lr.State == StateFallback:
				report.Pending++
			default:
				report.Fixed++
			}
		}
		if report.Fixed > before {
			fixed = append(fixed, src.Name())
		}
	}

	if report.Checked > 0 {
		r.logger.Info(fmt.Sprintf(
			"reconcile: checked %d, fixed %d, pending %d, skipped %d, failed %d",
			report.Checked, report.Fixed, report.Pending, report.Skipped, report.Failed,
		))
	}
	return report, nil
}

// Schedule adds the reconciler to `c` with a standard cron spec ("@every 30m", "0 3 * * *").
// Each run is cancelled after `timeout` when it is positive.
func (r *Reconciler) Schedule(c *cron.Cron, spec string, timeout time.Duration) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() {
		var (
			ctx    context.Context
			cancel context.CancelFunc
		)
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(context.Background(), timeout)
		} else {
			ctx, cancel = context.WithCancel(context.Background())
		}
		defer cancel()
		if _, err := r.Run(ctx); err != nil && err != ErrReconcileRunning {
			r.logger.Error(fmt.Sprintf("scheduled reconcile: %v", err), err)
		}
	})
	if err != nil {
		return 0, errors.Wrapf(err, "scheduling reconciler %q", spec)
	}
	return id, nil
}
