// Command avictl reconciles load balancer controller objects with
// desired-state files.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var cmd = &cobra.Command{
	Use:           "avictl",
	Short:         "Reconcile controller objects with desired-state files",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// A usageError is printed with the command usage and exits with code 2.
type usageError struct {
	cmd *cobra.Command
	err error
}

func (e usageError) Error() string { return e.err.Error() }

// args wraps a positional argument check so failures are usage errors.
func args(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(c *cobra.Command, a []string) error {
		if err := check(c, a); err != nil {
			return usageError{cmd: c, err: err}
		}
		return nil
	}
}

// exitCode is returned from a command to exit with a given code after
// printing err, if set.
type exitCode struct {
	code int
	err  error
}

func (e exitCode) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func main() {
	os.Exit(run())
}

func run() int {
	err := cmd.Execute()
	switch e := err.(type) {
	case nil:
		return 0
	case usageError:
		fmt.Fprintln(os.Stderr, e.err)
		fmt.Fprint(os.Stderr, e.cmd.UsageString())
		return 2
	case exitCode:
		if e.err != nil {
			fmt.Fprintln(os.Stderr, e.err)
		}
		return e.code
	}
	fmt.Fprintln(os.Stderr, err)
	if strings.HasPrefix(err.Error(), "unknown command") {
		return 2
	}
	return 1
}

func init() {
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return usageError{cmd: c, err: err}
	})
	addSettingsFlags(cmd)
}
