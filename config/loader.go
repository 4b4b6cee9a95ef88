package config

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"

	"github.com/func/avictl/object"
	"github.com/func/avictl/resource"
	"github.com/func/avictl/resource/schema"
	"github.com/hashicorp/hcl2/hcl"
	"github.com/hashicorp/hcl2/hclparse"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"go.uber.org/multierr"
	"golang.org/x/term"
)

// A Loader loads desired-state files from disk.
//
// The zero value is ready to load files.
type Loader struct {
	// Registry validates the fields of registered types and suggests a type
	// for misspelled type names. Optional.
	Registry *resource.Registry

	// LookupEnv backs the env() function in HCL files. If not set,
	// os.LookupEnv is used.
	LookupEnv func(key string) (string, bool)

	files map[string]*hcl.File
}

// loaded is a resource with the source ranges needed for diagnostics.
type loaded struct {
	Resource
	rng    hcl.Range
	fields map[string]hcl.Range
}

var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "resource", LabelNames: []string{"type", "name"}},
	},
}

// WriteDiagnostics writes diagnostics as a human readable string to w. It
// should only be used for diagnostics that originate from files loaded by
// Loader.
//
// If w is a terminal, the output will be colorized and wrap at the terminal
// width. Otherwise, wrap will occur at 78 characters and output won't contain
// ANSI escape characters.
func (l *Loader) WriteDiagnostics(w io.Writer, diags hcl.Diagnostics) {
	cols, color := 78, false
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		color = true
		if c, _, err := term.GetSize(int(f.Fd())); err == nil {
			cols = c
		}
	}
	wr := hcl.NewDiagnosticTextWriter(w, l.files, uint(cols), color)
	if err := wr.WriteDiagnostics(diags); err != nil {
		fmt.Fprintln(w, err)
	}
}

// Load loads resources from a file, or from all .hcl, .yaml and .yml files in
// a directory and its sub directories.
//
// Resources are returned in file order, files in lexical order. Defining the
// same resource twice is an error.
func (l *Loader) Load(root string) ([]Resource, hcl.Diagnostics) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, diagErr(err)
	}
	if !info.IsDir() && !isConfigFile(root) {
		return nil, diagErr(errors.Errorf("%s: unsupported file type, expected .hcl, .yaml or .yml", root))
	}

	var all []loaded
	var diags hcl.Diagnostics
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return errors.WithStack(err)
		}
		if info.IsDir() || !isConfigFile(path) {
			return nil
		}
		res, d := l.loadFile(path)
		diags = append(diags, d...)
		all = append(all, res...)
		return nil
	})
	if err != nil {
		return nil, append(diags, diagErr(err)...)
	}

	seen := make(map[string]loaded, len(all))
	out := make([]Resource, 0, len(all))
	for _, r := range all {
		if prev, ok := seen[r.Key()]; ok {
			rng := r.rng
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate resource",
				Detail:   fmt.Sprintf("A %s named %q is already defined at %s.", r.Type, r.Name, prev.Pos),
				Subject:  &rng,
			})
			continue
		}
		seen[r.Key()] = r
		diags = append(diags, l.validate(r)...)
		out = append(out, r.Resource)
	}
	if diags.HasErrors() {
		return nil, diags
	}
	return out, diags
}

func isConfigFile(filename string) bool {
	switch filepath.Ext(filename) {
	case ".hcl", ".yaml", ".yml":
		return true
	}
	return false
}

func (l *Loader) loadFile(filename string) ([]loaded, hcl.Diagnostics) {
	if l.files == nil {
		l.files = make(map[string]*hcl.File)
	}
	src, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, diagErr(err)
	}
	// Placeholder so diagnostics can show the source if parsing fails.
	l.files[filename] = &hcl.File{Bytes: src}

	if filepath.Ext(filename) == ".hcl" {
		return l.loadHCL(filename, src)
	}
	return loadYAML(filename, src)
}

func (l *Loader) loadHCL(filename string, src []byte) ([]loaded, hcl.Diagnostics) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	l.files[filename] = f

	content, d := f.Body.Content(rootSchema)
	diags = append(diags, d...)
	if d.HasErrors() {
		return nil, diags
	}

	ctx := &hcl.EvalContext{
		Functions: map[string]function.Function{"env": l.envFunc()},
	}
	var out []loaded
	for _, b := range content.Blocks {
		attrs, d := b.Body.JustAttributes()
		diags = append(diags, d...)
		if d.HasErrors() {
			continue
		}
		res := loaded{
			Resource: Resource{
				Type:   b.Labels[0],
				Name:   b.Labels[1],
				Fields: object.New(),
				Pos:    posString(b.DefRange),
			},
			rng:    b.DefRange,
			fields: make(map[string]hcl.Range),
		}

		sorted := make([]*hcl.Attribute, 0, len(attrs))
		for _, a := range attrs {
			sorted = append(sorted, a)
		}
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].Range.Start.Byte < sorted[j].Range.Start.Byte
		})

		valid := true
		for _, a := range sorted {
			val, d := a.Expr.Value(ctx)
			diags = append(diags, d...)
			if d.HasErrors() {
				valid = false
				continue
			}
			rng := a.Expr.Range()
			if isMeta(a.Name) {
				if val.IsNull() || !val.IsKnown() || val.Type() != cty.String {
					diags = append(diags, &hcl.Diagnostic{
						Severity: hcl.DiagError,
						Summary:  "Invalid attribute",
						Detail:   fmt.Sprintf("%s must be a string.", a.Name),
						Subject:  &rng,
					})
					valid = false
					continue
				}
				if d := res.setMeta(a.Name, val.AsString(), rng); d != nil {
					diags = append(diags, d)
					valid = false
				}
				continue
			}
			v, err := object.FromCty(val)
			if err != nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid value",
					Detail:   fmt.Sprintf("%s: %v.", a.Name, err),
					Subject:  &rng,
				})
				valid = false
				continue
			}
			res.Fields.Set(a.Name, v)
			res.fields[a.Name] = a.Range
		}
		if valid {
			out = append(out, res)
		}
	}
	return out, diags
}

func isMeta(name string) bool {
	switch name {
	case "name", "state", "tenant", "tenant_uuid":
		return true
	}
	return false
}

// setMeta sets a resource attribute that is not an object field.
func (r *loaded) setMeta(name, value string, rng hcl.Range) *hcl.Diagnostic {
	switch name {
	case "name":
		if value != r.Name {
			return &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Conflicting name",
				Detail:   fmt.Sprintf("The name is set to %q, which does not match %q.", value, r.Name),
				Subject:  &rng,
			}
		}
	case "state":
		if value != "present" && value != "absent" {
			return &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid state",
				Detail:   fmt.Sprintf("State must be present or absent, not %q.", value),
				Subject:  &rng,
			}
		}
		r.State = value
	case "tenant":
		r.Tenant = value
	case "tenant_uuid":
		r.TenantUUID = value
	}
	return nil
}

func (l *Loader) envFunc() function.Function {
	lookup := l.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "name", Type: cty.String},
		},
		VarParam: &function.Parameter{Name: "default", Type: cty.String},
		Type:     function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			name := args[0].AsString()
			if v, ok := lookup(name); ok {
				return cty.StringVal(v), nil
			}
			if len(args) > 1 {
				return args[1], nil
			}
			return cty.NilVal, errors.Errorf("environment variable %s is not set", name)
		},
	})
}

// validate checks the fields of a present resource against the schema of its
// type.
func (l *Loader) validate(r loaded) hcl.Diagnostics {
	if l.Registry == nil {
		return nil
	}
	s := l.Registry.Schema(r.Type)
	if s == nil {
		// Unregistered types are passed through as is, unless the name looks
		// like a typo of a registered one.
		if sug := l.Registry.SuggestType(r.Type); sug != "" {
			rng := r.rng
			return hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Unsupported resource type",
				Detail:   fmt.Sprintf("Resource type %q is not supported, did you mean %q?", r.Type, sug),
				Subject:  &rng,
			}}
		}
		return nil
	}
	if r.Absent() {
		return nil
	}
	desired := r.Fields.Clone().Set("name", object.StringValue(r.Name))
	_, err := s.Normalize(desired)
	var diags hcl.Diagnostics
	for _, e := range multierr.Errors(err) {
		rng := r.rng
		detail := e.Error()
		if fe, ok := e.(*schema.FieldError); ok {
			detail = fmt.Sprintf("%s: %v.", fe.Path, fe.Err)
			if len(fe.Path) > 0 {
				if key, ok := fe.Path[0].(string); ok {
					if fr, ok := r.fields[key]; ok {
						rng = fr
					}
				}
			}
		}
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid " + r.Type,
			Detail:   detail,
			Subject:  &rng,
		})
	}
	return diags
}

func posString(rng hcl.Range) string {
	return fmt.Sprintf("%s:%d", rng.Filename, rng.Start.Line)
}

// diagErr converts a native error to diagnostics
func diagErr(err error) hcl.Diagnostics {
	return hcl.Diagnostics{{Severity: hcl.DiagError, Summary: err.Error()}}
}
