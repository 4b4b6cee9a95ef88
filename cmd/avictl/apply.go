package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/func/avictl/client"
	"github.com/func/avictl/config"
	"github.com/func/avictl/provider/avi"
	"github.com/func/avictl/resource"
	"github.com/func/avictl/resource/reconciler"
	"github.com/func/avictl/resource/schema"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var applyCommand = &cobra.Command{
	Use:   "apply [path]",
	Short: "Apply desired-state files",
	Long: `Apply reconciles the resources in a desired-state file, or in all .hcl,
.yaml and .yml files in a directory, with the controller.

Resources are applied in dependency order. A resource that fails does not
stop independent resources, but resources that depend on it are not applied.`,
	Args: args(cobra.MaximumNArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) == 1 {
			path = args[0]
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		output, _ := cmd.Flags().GetString("output")
		metricsFile, _ := cmd.Flags().GetString("metrics-file")
		if output != "text" && output != "json" {
			return usageError{cmd: cmd, err: errors.Errorf("invalid output %q, must be text or json", output)}
		}

		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signalContext(context.Background(), logger)
		defer stop()

		reg := registry()
		loader := &config.Loader{Registry: reg}
		sess, err := connect(ctx, cmd, logger)
		if err != nil {
			return err
		}
		defer func() { _ = sess.Logout(context.Background()) }()

		metrics := prometheus.NewRegistry()
		cli := &client.Client{
			Reconciler: &reconciler.Reconciler{
				Controller: sess,
				Registry:   reg,
				DryRun:     dryRun,
				Logger:     logger.Named("reconciler"),
				Metrics:    reconciler.NewMetrics(metrics),
			},
			Loader:      loader,
			Logger:      logger.Named("client"),
			Concurrency: concurrency,
		}

		results, err := cli.Apply(ctx, path)
		if derr, ok := err.(*client.DiagnosticsError); ok {
			derr.PrintDiagnostics(os.Stderr)
			return exitCode{code: 1}
		}

		if output == "json" {
			if jerr := writeJSONResults(os.Stdout, results); jerr != nil {
				return jerr
			}
		} else {
			writeTextResults(os.Stdout, results, dryRun)
		}

		if metricsFile != "" {
			if merr := prometheus.WriteToTextfile(metricsFile, metrics); merr != nil {
				logger.Error("Write metrics", zap.Error(merr))
			}
		}
		if err != nil {
			return exitCode{code: 1, err: err}
		}
		return nil
	},
}

func init() {
	f := applyCommand.Flags()
	f.Bool("dry-run", false, "Compute changes without writing them")
	f.Int("concurrency", client.DefaultConcurrency, "Resources to reconcile at the same time")
	f.StringP("output", "o", "text", "Output format: text or json")
	f.String("metrics-file", "", "Write reconciliation metrics in the Prometheus text format to a file")

	cmd.AddCommand(applyCommand)
}

func registry() *resource.Registry {
	if err := avi.AddValidators(schema.Validator()); err != nil {
		panic(err)
	}
	reg := &resource.Registry{}
	avi.Register(reg)
	return reg
}

func writeTextResults(w io.Writer, results []client.Result, dryRun bool) {
	var created, updated, deleted, failed int
	for _, r := range results {
		name := fmt.Sprintf("%s %s", r.Resource.Type, r.Resource.Name)
		if t := r.Resource.TenantUUID + r.Resource.Tenant; t != "" {
			name += " (" + t + ")"
		}
		out := r.Outcome
		switch {
		case out.Err != nil:
			failed++
			fmt.Fprintf(w, "%s %s: %v\n", color.RedString("!"), name, out.Err)
		case out.Action == reconciler.Create:
			created++
			fmt.Fprintf(w, "%s %s\n", color.GreenString("+"), name)
		case out.Action == reconciler.Update:
			updated++
			fmt.Fprintf(w, "%s %s\n", color.YellowString("~"), name)
			for _, d := range out.Diff.Diffs {
				fmt.Fprintf(w, "    %s\n", d)
			}
		case out.Action == reconciler.Delete:
			deleted++
			fmt.Fprintf(w, "%s %s\n", color.RedString("-"), name)
		default:
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
	summary := fmt.Sprintf("%d created, %d updated, %d deleted, %d failed", created, updated, deleted, failed)
	if dryRun {
		summary += " (dry run)"
	}
	fmt.Fprintln(w, summary)
}

type jsonResult struct {
	Type       string   `json:"type"`
	Name       string   `json:"name"`
	Tenant     string   `json:"tenant,omitempty"`
	TenantUUID string   `json:"tenant_uuid,omitempty"`
	Pos        string   `json:"pos"`
	Action     string   `json:"action"`
	Changed    bool     `json:"changed"`
	Diff       []string `json:"diff,omitempty"`
	Error      string   `json:"error,omitempty"`
}

func writeJSONResults(w io.Writer, results []client.Result) error {
	out := make([]jsonResult, len(results))
	for i, r := range results {
		jr := jsonResult{
			Type:       r.Resource.Type,
			Name:       r.Resource.Name,
			Tenant:     r.Resource.Tenant,
			TenantUUID: r.Resource.TenantUUID,
			Pos:        r.Resource.Pos,
			Action:     r.Outcome.Action.String(),
			Changed:    r.Outcome.Changed,
			Diff:       r.Outcome.Diff.Paths(),
		}
		if r.Outcome.Err != nil {
			jr.Error = r.Outcome.Err.Error()
		}
		out[i] = jr
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(out), "write results")
}
