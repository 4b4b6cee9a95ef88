package config

import (
	"bytes"
	"fmt"

	"github.com/func/avictl/object"
	"github.com/hashicorp/hcl2/hcl"
	"gopkg.in/yaml.v3"
)

// loadYAML loads resources from a document of the form
//
//	resources:
//	  - type: wafpolicy
//	    name: pol
//	    mode: WAF_MODE_ENFORCEMENT
func loadYAML(filename string, src []byte) ([]loaded, hcl.Diagnostics) {
	y := yamlFile{name: filename, src: src}

	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid YAML",
			Detail:   err.Error(),
			Subject:  &hcl.Range{Filename: filename},
		}}
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, y.errorf(root, "Invalid document", "The document must be a mapping with a resources key.")
	}

	var out []loaded
	var diags hcl.Diagnostics
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if k.Value != "resources" {
			diags = append(diags, y.errorf(k, "Unsupported key", fmt.Sprintf("Unexpected key %q, only resources is supported.", k.Value))...)
			continue
		}
		if v.Kind != yaml.SequenceNode {
			diags = append(diags, y.errorf(v, "Invalid resources", "resources must be a list.")...)
			continue
		}
		for _, item := range v.Content {
			res, d := y.resource(item)
			diags = append(diags, d...)
			if !d.HasErrors() {
				out = append(out, res)
			}
		}
	}
	return out, diags
}

type yamlFile struct {
	name string
	src  []byte
}

func (y yamlFile) resource(n *yaml.Node) (loaded, hcl.Diagnostics) {
	res := loaded{
		Resource: Resource{Fields: object.New()},
		rng:      y.rng(n),
		fields:   make(map[string]hcl.Range),
	}
	res.Pos = posString(res.rng)
	if n.Kind != yaml.MappingNode {
		return res, y.errorf(n, "Invalid resource", "A resource must be a mapping.")
	}

	var diags hcl.Diagnostics
	var meta []*yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		switch k.Value {
		case "type":
			if v.Kind != yaml.ScalarNode || v.Value == "" {
				diags = append(diags, y.errorf(v, "Invalid type", "type must be a non-empty string.")...)
				continue
			}
			res.Type = v.Value
		case "name", "state", "tenant", "tenant_uuid":
			if v.Kind != yaml.ScalarNode {
				diags = append(diags, y.errorf(v, "Invalid attribute", fmt.Sprintf("%s must be a string.", k.Value))...)
				continue
			}
			if k.Value == "name" {
				res.Name = v.Value
				continue
			}
			meta = append(meta, k, v)
		default:
			val, err := object.FromYAML(v)
			if err != nil {
				diags = append(diags, y.errorf(v, "Invalid value", fmt.Sprintf("%s: %v.", k.Value, err))...)
				continue
			}
			res.Fields.Set(k.Value, val)
			res.fields[k.Value] = y.rng(k)
		}
	}
	if res.Type == "" || res.Name == "" {
		diags = append(diags, y.errorf(n, "Incomplete resource", "A resource must have a type and a name.")...)
		return res, diags
	}
	for i := 0; i < len(meta); i += 2 {
		if d := res.setMeta(meta[i].Value, meta[i+1].Value, y.rng(meta[i+1])); d != nil {
			diags = append(diags, d)
		}
	}
	return res, diags
}

func (y yamlFile) errorf(n *yaml.Node, summary, detail string) hcl.Diagnostics {
	rng := y.rng(n)
	return hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   detail,
		Subject:  &rng,
	}}
}

// rng returns the source range of a node. yaml.v3 only tracks the start of
// nodes, scalars span their value.
func (y yamlFile) rng(n *yaml.Node) hcl.Range {
	start := y.pos(n.Line, n.Column)
	end := start
	if n.Kind == yaml.ScalarNode {
		end.Column += len(n.Value)
		end.Byte += len(n.Value)
		if end.Byte > len(y.src) {
			end.Byte = len(y.src)
		}
	}
	return hcl.Range{Filename: y.name, Start: start, End: end}
}

func (y yamlFile) pos(line, col int) hcl.Pos {
	off := 0
	for l := 1; l < line; l++ {
		i := bytes.IndexByte(y.src[off:], '\n')
		if i < 0 {
			break
		}
		off += i + 1
	}
	off += col - 1
	if off > len(y.src) {
		off = len(y.src)
	}
	if off < 0 {
		off = 0
	}
	return hcl.Pos{Line: line, Column: col, Byte: off}
}
