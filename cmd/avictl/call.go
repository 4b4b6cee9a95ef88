package main

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/url"
	"os"
	"strings"

	"github.com/func/avictl/resource/reconciler"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var callCommand = &cobra.Command{
	Use:   "call <method> <path>",
	Short: "Call the controller API",
	Long: `Call issues a single API call. The path is relative to /api/, such as
pool or pool/pool-1234.

put and patch only write when the object would change, delete of a missing
object succeeds. The result is printed as JSON.`,
	Args: args(cobra.ExactArgs(2)),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, _ := cmd.Flags().GetStringArray("param")
		data, _ := cmd.Flags().GetString("data")
		dataFile, _ := cmd.Flags().GetString("data-file")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if data != "" && dataFile != "" {
			return usageError{cmd: cmd, err: errors.New("--data and --data-file are mutually exclusive")}
		}
		if dataFile != "" {
			b, err := ioutil.ReadFile(dataFile)
			if err != nil {
				return errors.Wrap(err, "read data")
			}
			data = string(b)
		}
		vals := url.Values{}
		for _, p := range params {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				return usageError{cmd: cmd, err: errors.Errorf("invalid param %q, must be key=value", p)}
			}
			vals.Add(kv[0], kv[1])
		}

		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signalContext(context.Background(), logger)
		defer stop()
		sess, err := connect(ctx, cmd, logger)
		if err != nil {
			return err
		}
		defer func() { _ = sess.Logout(context.Background()) }()

		r := &reconciler.Reconciler{
			Controller: sess,
			DryRun:     dryRun,
			Logger:     logger.Named("reconciler"),
		}
		out := r.Call(ctx, &reconciler.CallRequest{
			Method:   args[0],
			Path:     args[1],
			Params:   vals,
			DataJSON: data,
		})

		res := callResult(out)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return errors.Wrap(err, "write result")
		}
		if out.Err != nil {
			return exitCode{code: 1, err: out.Err}
		}
		return nil
	},
}

type callJSON struct {
	Changed    bool        `json:"changed"`
	StatusCode int         `json:"status_code,omitempty"`
	Object     interface{} `json:"obj,omitempty"`
	Msg        string      `json:"msg,omitempty"`
}

// callResult renders an outcome. Failed calls carry the response body in
// msg, unchanged.
func callResult(out *reconciler.CallOutcome) callJSON {
	res := callJSON{Changed: out.Changed, StatusCode: out.StatusCode}
	if out.Object != nil {
		res.Object = out.Object
	}
	if out.Err != nil {
		res.Msg = out.Err.Error()
		if len(out.Body) > 0 {
			res.Msg = string(out.Body)
		}
	}
	return res
}

func init() {
	f := callCommand.Flags()
	f.StringArrayP("param", "p", nil, "Query parameter as key=value, may be repeated")
	f.StringP("data", "d", "", "Request body as JSON")
	f.String("data-file", "", "Read the request body from a file")
	f.Bool("dry-run", false, "Report whether a write would change the object without writing")

	cmd.AddCommand(callCommand)
}
