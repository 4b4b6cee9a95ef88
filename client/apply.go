package client

import (
	"context"
	"time"

	"github.com/func/avictl/config"
	"github.com/func/avictl/controller"
	"github.com/func/avictl/plan"
	"github.com/func/avictl/resource/reconciler"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// A Result is the outcome of reconciling one resource.
type Result struct {
	Resource config.Resource
	Outcome  *reconciler.Outcome
}

// Apply loads the resources in the given file or directory and reconciles
// them in dependency order.
//
// Resources in a wave are reconciled concurrently. A failed resource does not
// stop the rest of its wave, but later waves are not started; the error is
// then an *ApplyError. Configuration errors are returned as a
// *DiagnosticsError.
func (cli *Client) Apply(ctx context.Context, path string) ([]Result, error) {
	cli.once.Do(cli.init)

	resources, diags := cli.Loader.Load(path)
	if diags.HasErrors() {
		return nil, cli.errDiagnostics(diags)
	}
	p, err := plan.New(resources)
	if err != nil {
		return nil, errors.Wrap(err, "plan")
	}
	return cli.Run(ctx, p)
}

// Run reconciles the resources of a plan.
func (cli *Client) Run(ctx context.Context, p *plan.Plan) ([]Result, error) {
	cli.once.Do(cli.init)

	waves := p.Waves()
	results := make([]Result, 0, p.Len())
	for i, wave := range waves {
		logger := cli.Logger.With(zap.Int("wave", i+1), zap.Int("resources", len(wave)))
		logger.Debug("Start wave")
		start := time.Now()

		res, err := cli.wave(ctx, wave)
		results = append(results, res...)
		if err != nil {
			return results, err
		}

		var failed []Result
		for _, r := range res {
			if r.Outcome.Err != nil {
				failed = append(failed, r)
			}
		}
		logger.Debug("Wave done", zap.Duration("duration", time.Since(start)), zap.Int("failed", len(failed)))
		if len(failed) > 0 {
			var skipped []config.Resource
			for _, w := range waves[i+1:] {
				skipped = append(skipped, w...)
			}
			return results, &ApplyError{Failed: failed, Skipped: skipped}
		}
	}
	return results, nil
}

func (cli *Client) wave(ctx context.Context, wave []config.Resource) ([]Result, error) {
	results := make([]Result, len(wave))
	sem := semaphore.NewWeighted(int64(cli.Concurrency))

	g, gctx := errgroup.WithContext(ctx)
	for i, r := range wave {
		i, r := i, r
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			out := cli.Reconciler.Reconcile(gctx, request(r))
			results[i] = Result{Resource: r, Outcome: out}
			if out.Err != nil {
				cli.Logger.Info("Resource failed",
					zap.String("type", r.Type),
					zap.String("name", r.Name),
					zap.String("pos", r.Pos),
					zap.Error(out.Err),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		// Canceled before all resources were started.
		var done []Result
		for _, r := range results {
			if r.Outcome != nil {
				done = append(done, r)
			}
		}
		return done, errors.Wrap(err, "apply")
	}
	return results, nil
}

func request(r config.Resource) *reconciler.Request {
	state := reconciler.Present
	if r.Absent() {
		state = reconciler.Absent
	}
	return &reconciler.Request{
		Type:    r.Type,
		Name:    r.Name,
		State:   state,
		Desired: r.Fields,
		Scope:   controller.Scope{Tenant: r.Tenant, TenantUUID: r.TenantUUID},
	}
}
