package ukernel

import "github.com/llir/llvm/ir"

// TargetAttrKeys are the function attributes that pin a function to the
// CPU and feature set of the toolchain that produced it.
var TargetAttrKeys = [...]string{"target-cpu", "tune-cpu", "target-features"}

func isTargetKey(key string) bool {
	for _, k := range TargetAttrKeys {
		if key == k {
			return true
		}
	}
	return false
}

func isTargetAttr(a ir.FuncAttribute) bool {
	switch a := a.(type) {
	case ir.AttrPair:
		return isTargetKey(a.Key)
	case *ir.AttrPair:
		return a != nil && isTargetKey(a.Key)
	case ir.AttrString:
		return isTargetKey(string(a))
	}
	return false
}

func countTargetAttrs(attrs []ir.FuncAttribute) int {
	n := 0
	for _, a := range attrs {
		if isTargetAttr(a) {
			n++
		}
	}
	return n
}

func stripTargetAttrs(attrs []ir.FuncAttribute) []ir.FuncAttribute {
	out := make([]ir.FuncAttribute, 0, len(attrs))
	for _, a := range attrs {
		if !isTargetAttr(a) {
			out = append(out, a)
		}
	}
	return out
}

// Sanitize removes target-cpu, tune-cpu and target-features from every
// function of m and returns how many attributes were dropped.
//
// Attributes reached through an attribute group (#N) are handled by pointing
// the function at a stripped copy of the group, appended to
// m.AttrGroupDefs. The original group is never edited since call sites may
// reference it too; it is removed from the module only once nothing refers
// to it anymore. Each group is copied at most once; a copy that would be
// empty is not created and the reference is dropped instead.
func Sanitize(m *ir.Module) int {
	if m == nil {
		return 0
	}
	removed := 0
	nextID := nextGroupID(m)
	clones := make(map[*ir.AttrGroupDef]*ir.AttrGroupDef)
	for _, f := range m.Funcs {
		if len(f.FuncAttrs) == 0 {
			continue
		}
		kept := make([]ir.FuncAttribute, 0, len(f.FuncAttrs))
		for _, a := range f.FuncAttrs {
			if isTargetAttr(a) {
				removed++
				continue
			}
			g, ok := a.(*ir.AttrGroupDef)
			if !ok || g == nil {
				kept = append(kept, a)
				continue
			}
			n := countTargetAttrs(g.FuncAttrs)
			if n == 0 {
				kept = append(kept, a)
				continue
			}
			removed += n
			clone, seen := clones[g]
			if !seen {
				if stripped := stripTargetAttrs(g.FuncAttrs); len(stripped) > 0 {
					clone = &ir.AttrGroupDef{ID: nextID, FuncAttrs: stripped}
					nextID++
					m.AttrGroupDefs = append(m.AttrGroupDefs, clone)
				}
				clones[g] = clone
			}
			if clone != nil {
				kept = append(kept, clone)
			}
		}
		f.FuncAttrs = kept
	}
	pruneGroups(m, clones)
	return removed
}

// pruneGroups drops the replaced groups that no function or call site
// references anymore.
func pruneGroups(m *ir.Module, replaced map[*ir.AttrGroupDef]*ir.AttrGroupDef) {
	if len(replaced) == 0 {
		return
	}
	used := make(map[*ir.AttrGroupDef]bool)
	mark := func(attrs []ir.FuncAttribute) {
		for _, a := range attrs {
			if g, ok := a.(*ir.AttrGroupDef); ok {
				used[g] = true
			}
		}
	}
	for _, f := range m.Funcs {
		mark(f.FuncAttrs)
		for _, b := range f.Blocks {
			for _, inst := range b.Insts {
				if call, ok := inst.(*ir.InstCall); ok {
					mark(call.FuncAttrs)
				}
			}
			if inv, ok := b.Term.(*ir.TermInvoke); ok {
				mark(inv.FuncAttrs)
			}
		}
	}
	groups := make([]*ir.AttrGroupDef, 0, len(m.AttrGroupDefs))
	for _, g := range m.AttrGroupDefs {
		if _, wasReplaced := replaced[g]; wasReplaced && !used[g] {
			continue
		}
		groups = append(groups, g)
	}
	m.AttrGroupDefs = groups
}

func nextGroupID(m *ir.Module) int64 {
	var next int64
	for _, g := range m.AttrGroupDefs {
		if g != nil && g.ID >= next {
			next = g.ID + 1
		}
	}
	return next
}

// TargetAttrs returns the keys of target attributes still visible on f,
// directly or through attribute groups, in declaration order.
func TargetAttrs(f *ir.Func) []string {
	if f == nil {
		return nil
	}
	var keys []string
	var collect func(attrs []ir.FuncAttribute)
	collect = func(attrs []ir.FuncAttribute) {
		for _, a := range attrs {
			switch a := a.(type) {
			case ir.AttrPair:
				if isTargetKey(a.Key) {
					keys = append(keys, a.Key)
				}
			case *ir.AttrPair:
				if a != nil && isTargetKey(a.Key) {
					keys = append(keys, a.Key)
				}
			case ir.AttrString:
				if isTargetKey(string(a)) {
					keys = append(keys, string(a))
				}
			case *ir.AttrGroupDef:
				if a != nil {
					collect(a.FuncAttrs)
				}
			}
		}
	}
	collect(f.FuncAttrs)
	return keys
}

// CountFuncAttrs returns the number of attributes on f, expanding groups.
func CountFuncAttrs(f *ir.Func) int {
	if f == nil {
		return 0
	}
	n := 0
	for _, a := range f.FuncAttrs {
		if g, ok := a.(*ir.AttrGroupDef); ok && g != nil {
			n += len(g.FuncAttrs)
			continue
		}
		n++
	}
	return n
}
