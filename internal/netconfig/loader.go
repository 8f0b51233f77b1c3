package netconfig

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/specialistvlad/burstflow/internal/ctxlog"
	"github.com/specialistvlad/burstflow/internal/fsutil"
	"github.com/specialistvlad/burstflow/internal/network"
	"github.com/specialistvlad/burstflow/internal/operator"
	"github.com/specialistvlad/burstflow/internal/registry"
	"github.com/specialistvlad/burstflow/internal/wire"
	"github.com/zclconf/go-cty/cty"
)

// fileRoot decodes the top-level blocks of a single file.
type fileRoot struct {
	Nodes  []*nodeBlock `hcl:"node,block"`
	Remain hcl.Body     `hcl:",remain"`
}

type nodeBlock struct {
	Name   string         `hcl:"name,label"`
	Op     string         `hcl:"op"`
	Args   hcl.Expression `hcl:"args,optional"`
	Inputs hcl.Expression `hcl:"inputs,optional"`
}

// Definition is a network loaded from HCL.
type Definition struct {
	Network *network.Network[wire.Value]
	// Names maps node index to the block label.
	Names []string
	index map[string]int
}

// Index returns the node index of the block labelled name.
func (d *Definition) Index(name string) (int, bool) {
	i, ok := d.index[name]
	return i, ok
}

// Name returns the block label of node index, or its index when out of range.
func (d *Definition) Name(index int) string {
	if index >= 0 && index < len(d.Names) {
		return d.Names[index]
	}
	return fmt.Sprintf("#%d", index)
}

// LoadFiles reads every .hcl file under the given paths (files or
// directories) in lexical order and builds one network from all node blocks.
func LoadFiles(ctx context.Context, reg *registry.Registry, paths ...string) (*Definition, error) {
	logger := ctxlog.FromContext(ctx)
	files, err := findHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	var blocks []*nodeBlock
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		bs, err := decode(hclFile.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, err)
		}
		blocks = append(blocks, bs...)
	}
	return build(ctx, reg, blocks)
}

// LoadSource parses a single in-memory document; filename is used in
// diagnostics only.
func LoadSource(ctx context.Context, reg *registry.Registry, src []byte, filename string) (*Definition, error) {
	hclFile, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	blocks, err := decode(hclFile.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, err)
	}
	return build(ctx, reg, blocks)
}

func decode(body hcl.Body) ([]*nodeBlock, error) {
	var root fileRoot
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return nil, diags
	}
	if attrs, _ := root.Remain.JustAttributes(); len(attrs) > 0 {
		for name, attr := range attrs {
			return nil, fmt.Errorf("%s: unexpected top-level attribute %q", attr.Range, name)
		}
	}
	return root.Nodes, nil
}

func build(ctx context.Context, reg *registry.Registry, blocks []*nodeBlock) (*Definition, error) {
	logger := ctxlog.FromContext(ctx)
	def := &Definition{index: make(map[string]int, len(blocks))}

	b := network.NewBuilder[wire.Value]()
	for _, blk := range blocks {
		if _, dup := def.index[blk.Name]; dup {
			return nil, fmt.Errorf("node %q is declared more than once", blk.Name)
		}
		args, err := evalArgs(blk.Args)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", blk.Name, err)
		}
		op, err := reg.Instantiate(ctx, operator.Opcode(blk.Op), args)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", blk.Name, err)
		}
		def.index[blk.Name] = b.Add(op)
		def.Names = append(def.Names, blk.Name)
	}

	for _, blk := range blocks {
		refs, err := inputRefs(blk.Inputs)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", blk.Name, err)
		}
		dst := def.index[blk.Name]
		for port, ref := range refs {
			src, ok := def.index[ref.node]
			if !ok {
				return nil, fmt.Errorf("%s: node %q references unknown node %s", ref.rng, blk.Name, ref.text)
			}
			b.Connect(src, ref.port, dst, port)
		}
	}

	net, err := b.Build(ctx)
	if err != nil {
		return nil, err
	}
	def.Network = net
	logger.Debug("Network loaded from HCL.", "nodes", net.Len(), "edges", len(net.Edges()))
	return def, nil
}

func evalArgs(expr hcl.Expression) (cty.Value, error) {
	if expr == nil {
		return cty.NilVal, nil
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, diags
	}
	if v.IsNull() {
		return cty.NilVal, nil
	}
	return v, nil
}

type inputRef struct {
	node string
	port int
	text string
	rng  hcl.Range
}

func inputRefs(expr hcl.Expression) ([]inputRef, error) {
	if expr == nil {
		return nil, nil
	}
	// An omitted attribute decodes to a static null.
	if v, diags := expr.Value(nil); !diags.HasErrors() && v.IsNull() {
		return nil, nil
	}
	exprs, diags := hcl.ExprList(expr)
	if diags.HasErrors() {
		return nil, diags
	}
	refs := make([]inputRef, 0, len(exprs))
	for _, e := range exprs {
		ref, err := parseRef(e)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// parseRef accepts "name" or "name.out[k]".
func parseRef(expr hcl.Expression) (inputRef, error) {
	trav, diags := hcl.AbsTraversalForExpr(expr)
	if diags.HasErrors() {
		return inputRef{}, diags
	}
	ref := inputRef{node: trav.RootName(), text: traversalKey(trav), rng: expr.Range()}
	rest := trav[1:]
	if len(rest) == 0 {
		return ref, nil
	}

	bad := fmt.Errorf("%s: input %s must be <node> or <node>.out[<port>]", ref.rng, ref.text)
	if len(rest) != 2 {
		return inputRef{}, bad
	}
	attr, ok := rest[0].(hcl.TraverseAttr)
	if !ok || attr.Name != "out" {
		return inputRef{}, bad
	}
	idx, ok := rest[1].(hcl.TraverseIndex)
	if !ok || !idx.Key.Type().Equals(cty.Number) || !idx.Key.IsKnown() || idx.Key.IsNull() {
		return inputRef{}, bad
	}
	bf := idx.Key.AsBigFloat()
	if !bf.IsInt() {
		return inputRef{}, bad
	}
	port, _ := bf.Int64()
	ref.port = int(port)
	return ref, nil
}

// traversalKey renders a traversal as it was written, e.g. n4.out[1].
func traversalKey(t hcl.Traversal) string {
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

func findHCLFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		var found []string
		if info.IsDir() {
			if found, err = fsutil.FindNetworkFiles(path); err != nil {
				return nil, err
			}
		} else {
			found = []string{path}
		}
		for _, f := range found {
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				all = append(all, f)
			}
		}
	}
	return all, nil
}
