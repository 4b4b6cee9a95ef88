package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/func/avictl/resource/schema"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var typesCommand = &cobra.Command{
	Use:   "types [type]",
	Short: "List resource types with a schema",
	Long: `Types lists the resource types that are validated against a schema, or
prints the fields of one type.

Types without a schema can still be used; their fields are passed through as
written.`,
	Args: args(cobra.MaximumNArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := registry()
		if len(args) == 0 {
			for _, t := range reg.Types() {
				fmt.Println(t)
			}
			return nil
		}
		s := reg.Schema(args[0])
		if s == nil {
			msg := fmt.Sprintf("no schema for type %q", args[0])
			if sug := reg.SuggestType(args[0]); sug != "" {
				msg += fmt.Sprintf(", did you mean %q?", sug)
			}
			return exitCode{code: 1, err: errors.New(msg)}
		}
		writeFields(os.Stdout, s, "")
		return nil
	},
}

func init() {
	cmd.AddCommand(typesCommand)
}

func writeFields(w io.Writer, s *schema.Schema, indent string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	writeFieldRows(tw, s, indent)
	_ = tw.Flush()
}

func writeFieldRows(w io.Writer, s *schema.Schema, indent string) {
	names := make([]string, 0, len(s.Fields))
	for n := range s.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		f := s.Fields[n]
		kind := f.Kind.String()
		if f.Kind == schema.List {
			kind += " of " + f.Elem.String()
		}
		var attrs []string
		if f.Required {
			attrs = append(attrs, "required")
		}
		if f.Sensitive {
			attrs = append(attrs, "sensitive")
		}
		if f.ReadOnly {
			attrs = append(attrs, "read-only")
		}
		if f.Rules != "" {
			attrs = append(attrs, f.Rules)
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\n", indent, n, kind, strings.Join(attrs, " "))
		if f.Nested != nil {
			writeFieldRows(w, f.Nested, indent+"  ")
		}
	}
}
