package gaugewatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/canopy-network/gaugewatch/pkg/classify"
	"github.com/canopy-network/gaugewatch/pkg/delta"
	"github.com/canopy-network/gaugewatch/pkg/gauge"
	"github.com/canopy-network/gaugewatch/pkg/notify"
	"github.com/canopy-network/gaugewatch/pkg/refdata"
	"github.com/canopy-network/gaugewatch/pkg/retry"
	"github.com/canopy-network/gaugewatch/pkg/rpc"
	"github.com/canopy-network/gaugewatch/pkg/snapshot"
)

const runIDLayout = "20060102T150405Z"

// RunOnce executes a single pass and records its report for the probes.
func (a *App) RunOnce(ctx context.Context) (RunReport, error) {
	report, err := a.run(ctx)
	report.FinishedAt = a.now()
	a.last.Store(&report)
	a.lastErr.Store(err != nil)

	if err != nil {
		a.Logger.Error("Run failed", zap.String("runId", report.RunID), zap.Error(err))
		return report, err
	}
	a.Logger.Info("Run finished",
		zap.String("runId", report.RunID),
		zap.Bool("bootstrap", report.Bootstrap),
		zap.Bool("skipped", report.Skipped),
		zap.Int("gauges", report.Gauges),
		zap.Int("deltas", report.Deltas),
		zap.Int("events", report.Events),
		zap.Int("failures", report.Failures),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

func (a *App) run(ctx context.Context) (RunReport, error) {
	started := a.now()
	report := RunReport{RunID: a.runID(started), StartedAt: started}
	logger := a.Logger.With(zap.String("runId", report.RunID))

	records, registry, err := a.fetch(ctx, logger)
	if err != nil {
		if a.Config.ContinueOnFetchError {
			logger.Warn("Gauge fetch failed, skipping run", zap.Error(err))
			report.Skipped = true
			return report, nil
		}
		return report, fmt.Errorf("fetch gauges: %w", err)
	}
	report.Gauges = len(records)

	current := &snapshot.Snapshot{FetchedAt: started.UTC(), Data: records}
	if a.persist() {
		if err := a.Store.SaveCurrent(current); err != nil {
			return report, fmt.Errorf("save current snapshot: %w", err)
		}
	}

	previous, prevErr := a.Store.LoadPrevious()
	if prevErr != nil && !errors.Is(prevErr, snapshot.ErrNotFound) {
		return report, fmt.Errorf("load previous snapshot: %w", prevErr)
	}

	// The single rotation per run. From here on the fetched data is the baseline for the next run.
	if a.persist() {
		if err := a.Store.PromoteCurrentToPrevious(); err != nil {
			return report, fmt.Errorf("promote snapshot: %w", err)
		}
	}

	if prevErr != nil {
		report.Bootstrap = true
		logger.Info("No previous snapshot, baseline recorded", zap.Int("gauges", len(records)))
		return report, nil
	}

	oldIx := gauge.Index(previous.Data)
	newIx := gauge.Index(records)
	deltas := delta.DiffIndexed(oldIx, newIx)
	removed := delta.Removed(oldIx, newIx)

	report.Previous = len(oldIx)
	report.Deltas = len(deltas)
	report.Removed = len(removed)
	if len(removed) > 0 {
		logger.Info("Gauges missing from current snapshot, not reported",
			zap.Int("count", len(removed)),
			zap.Strings("gaugeIds", removed))
	}

	outcome := a.Classifier.Classify(deltas, newIx)
	report.Events = len(outcome.Events)
	report.Failures = len(outcome.Failures)
	report.ByType = countByType(outcome.Events)

	if a.persist() {
		result := Result{
			RunID:     report.RunID,
			FetchedAt: current.FetchedAt,
			Deltas:    deltas,
			Removed:   removed,
			Events:    outcome.Events,
			Failures:  outcome.Failures,
		}
		if err := a.Store.WriteResult(report.RunID, result); err != nil {
			return report, fmt.Errorf("write result: %w", err)
		}
	}

	formatter, err := notify.NewFormatter(registry, logger)
	if err != nil {
		return report, err
	}
	dispatcher := notify.NewDispatcher(formatter, a.Sender, a.Config.MessageMaxLen, logger)
	sent, dispatchErr := dispatcher.Dispatch(ctx, outcome.Events)
	report.Notifications = sent

	if a.Publisher != nil && len(outcome.Events) > 0 {
		report.Published = a.Publisher.PublishEvents(ctx, a.Config.RedisStream, report.RunID, outcome.Events)
	}

	if dispatchErr != nil {
		return report, fmt.Errorf("dispatch notifications: %w", dispatchErr)
	}
	return report, nil
}

// fetch pulls gauges and reference data concurrently. Only the gauge fetch can fail the run;
// missing reference data degrades messages to raw denoms.
func (a *App) fetch(ctx context.Context, logger *zap.Logger) ([]gauge.Record, *refdata.Registry, error) {
	var records []gauge.Record
	var fetchErr error
	registry := refdata.NewRegistry()

	group := a.Pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	group.Submit(func() {
		fetchErr = retry.WithBackoff(groupCtx, a.Retry, logger, "list gauges", func() error {
			out, err := a.Client.Gauges(groupCtx)
			if err != nil {
				return permanentIfClientError(err)
			}
			records = out
			return nil
		})
	})

	group.Submit(func() {
		reg, err := refdata.Load(groupCtx, a.RefCache, a.RefSources, logger)
		if err != nil {
			logger.Debug("Reference data partially loaded", zap.Error(err))
		}
		registry = reg
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		logger.Warn("Fetch group encountered error", zap.Error(err))
		if fetchErr == nil && records == nil {
			fetchErr = err
		}
	}

	if fetchErr == nil {
		logger.Debug("Fetched gauges", zap.Int("gauges", len(records)))
	}
	return records, registry, fetchErr
}

// runID names a run by its start time plus a process-wide sequence, so runs starting in the same
// second never share a result artifact.
func (a *App) runID(started time.Time) string {
	return fmt.Sprintf("%s-%d", started.UTC().Format(runIDLayout), a.seq.Add(1))
}

// persist reports whether this run may write snapshots and artifacts.
func (a *App) persist() bool {
	return !a.Config.NoPersist
}

func permanentIfClientError(err error) error {
	var statusErr *rpc.StatusError
	if errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 && statusErr.Code != http.StatusTooManyRequests {
		return retry.Permanent(err)
	}
	if errors.Is(err, rpc.ErrNoEndpoints) {
		return retry.Permanent(err)
	}
	return err
}

func countByType(events []classify.Event) map[classify.EventType]int {
	if len(events) == 0 {
		return nil
	}
	out := make(map[classify.EventType]int, 4)
	for _, ev := range events {
		out[ev.Type]++
	}
	return out
}
