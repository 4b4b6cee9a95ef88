// Package client applies desired-state files to a controller.
package client

import (
	"context"
	"io"
	"sync"

	"github.com/func/avictl/config"
	"github.com/func/avictl/resource/reconciler"
	"github.com/hashicorp/hcl2/hcl"
	"go.uber.org/zap"
)

// DefaultConcurrency is the number of resources reconciled at the same time
// if Concurrency is not set.
const DefaultConcurrency = 4

// Client is an avictl client.
type Client struct {
	// Reconciler reconciles single resources.
	Reconciler Reconciler

	// Loader allows overriding the configuration loader to use. Can be used to
	// replace the loader in tests, but otherwise should be left nil. If nil, a
	// default loader use used instead.
	Loader ConfigLoader

	// Logger logs apply progress. If not set, logs are discarded.
	Logger *zap.Logger

	// Concurrency limits the number of resources reconciled at the same time
	// within a wave.
	Concurrency int

	// once is used to initialize default values, allowing the nil value to be
	// useful.
	once sync.Once
}

// Reconciler reconciles a single resource.
type Reconciler interface {
	Reconcile(ctx context.Context, req *reconciler.Request) *reconciler.Outcome
}

// ConfigLoader is used when loading configuration files from disk.
type ConfigLoader interface {
	Load(path string) ([]config.Resource, hcl.Diagnostics)
	WriteDiagnostics(w io.Writer, diags hcl.Diagnostics)
}

func (cli *Client) init() {
	if cli.Loader == nil {
		cli.Loader = &config.Loader{}
	}
	if cli.Logger == nil {
		cli.Logger = zap.NewNop()
	}
	if cli.Concurrency <= 0 {
		cli.Concurrency = DefaultConcurrency
	}
}

func (cli *Client) errDiagnostics(diags hcl.Diagnostics) *DiagnosticsError {
	cli.once.Do(cli.init)
	return &DiagnosticsError{loader: cli.Loader, Diagnostics: diags}
}
