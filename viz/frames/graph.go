// Package frames resolves rigid relationships between named coordinate
// frames.
package frames

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"navview/viz/geom"
)

var (
	ErrUnresolvableFrame = errors.New("unresolvable frame")
	ErrCycle             = errors.New("frame graph cycle")
)

// Graph is the frame-graph contract the renderer consumes.
//
// LookupTransform(source, target) maps points expressed in source into
// target. LookupChain returns the same relation as hops ordered from source
// outward; geom.ComposeChain of the hops equals LookupTransform.
type Graph interface {
	CanTransform(source, target string) bool
	LookupTransform(source, target string) (geom.Transform, error)
	LookupChain(source, target string) ([]geom.Transform, error)
}

// Tree is an in-memory frame tree. Every frame has at most one parent and
// the transform stored with a frame maps its points into the parent.
type Tree struct {
	mu     sync.RWMutex
	parent map[string]string
	local  map[string]geom.Transform
}

var _ Graph = (*Tree)(nil)

func NewTree() *Tree {
	return &Tree{
		parent: make(map[string]string),
		local:  make(map[string]geom.Transform),
	}
}

// Edge attaches Child under Parent with the transform mapping Child points
// into Parent.
type Edge struct {
	Parent    string
	Child     string
	Transform geom.Transform
}

// Set attaches child under parent, replacing any previous attachment.
func (t *Tree) Set(parent, child string, tr geom.Transform) error {
	return t.Apply([]Edge{{Parent: parent, Child: child, Transform: tr}}, nil)
}

// Apply detaches the frames in drop, then attaches edges in order. It is
// all or nothing: on error the tree is left unchanged.
func (t *Tree) Apply(edges []Edge, drop []string) error {
	for _, e := range edges {
		if e.Parent == "" || e.Child == "" {
			return fmt.Errorf("frames: empty frame name")
		}
		if e.Parent == e.Child {
			return fmt.Errorf("frames: %w: %s", ErrCycle, e.Child)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Stage parent links on top of the current ones and check cycles there.
	staged := make(map[string]string, len(t.parent)+len(edges))
	for c, p := range t.parent {
		staged[c] = p
	}
	for _, f := range drop {
		delete(staged, f)
	}
	for _, e := range edges {
		for f := e.Parent; f != ""; f = staged[f] {
			if f == e.Child {
				return fmt.Errorf("frames: %w: %s is an ancestor of %s", ErrCycle, e.Child, e.Parent)
			}
		}
		staged[e.Child] = e.Parent
	}

	for _, f := range drop {
		delete(t.local, f)
	}
	for _, e := range edges {
		t.local[e.Child] = e.Transform
	}
	t.parent = staged
	return nil
}

// Remove detaches frame from its parent. Its children stay attached to it.
func (t *Tree) Remove(frame string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.parent, frame)
	delete(t.local, frame)
}

// Frames lists every known frame name, sorted.
func (t *Tree) Frames() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[string]struct{}, len(t.parent)*2)
	for c, p := range t.parent {
		seen[c] = struct{}{}
		seen[p] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (t *Tree) CanTransform(source, target string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, _, ok := t.paths(source, target)
	return ok
}

func (t *Tree) LookupTransform(source, target string) (geom.Transform, error) {
	hops, err := t.LookupChain(source, target)
	if err != nil {
		return geom.Transform{}, err
	}
	return geom.ComposeChain(hops), nil
}

func (t *Tree) LookupChain(source, target string) ([]geom.Transform, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	up, down, ok := t.paths(source, target)
	if !ok {
		return nil, fmt.Errorf("frames: %w: %s -> %s", ErrUnresolvableFrame, source, target)
	}
	hops := make([]geom.Transform, 0, len(up)+len(down))
	for _, f := range up {
		hops = append(hops, t.local[f])
	}
	for i := len(down) - 1; i >= 0; i-- {
		hops = append(hops, t.local[down[i]].Inverse())
	}
	return hops, nil
}

// paths returns the frames walked from source up to the common ancestor
// (exclusive) and from target up to it. Caller holds the read lock.
func (t *Tree) paths(source, target string) (up, down []string, ok bool) {
	if source == "" || target == "" {
		return nil, nil, false
	}
	if source == target {
		return nil, nil, t.known(source)
	}

	depth := make(map[string]int)
	for f, i := source, 0; f != ""; f, i = t.parent[f], i+1 {
		depth[f] = i
	}
	var fromTarget []string
	for f := target; f != ""; f = t.parent[f] {
		if i, hit := depth[f]; hit {
			chain := make([]string, 0, i)
			for g := source; g != f; g = t.parent[g] {
				chain = append(chain, g)
			}
			return chain, fromTarget, true
		}
		fromTarget = append(fromTarget, f)
	}
	return nil, nil, false
}

func (t *Tree) known(f string) bool {
	if _, ok := t.parent[f]; ok {
		return true
	}
	for _, p := range t.parent {
		if p == f {
			return true
		}
	}
	return false
}
