package coverage

import (
	"github.com/google/earthenterprise-sub002/internal/quadtree"
)

// TilespaceIndex indexes arbitrary per-inset values by the quadtree path of
// their coverage MBR, so a caller building a single quad can cheaply collect
// every inset whose footprint touches it: ancestors of the quad (coarser
// insets already decided at a lower level) plus the quad's own subtree
// (finer insets nested inside it).
//
// Grounded on original_source's InsetTilespaceIndex.{h,cpp}
// (QuadKeyTree/AddElementAtQuadTreePath/GetElementsAtQuadTreePath): a
// multiple-values-per-node quad-key trie, realized here as a generic Go type
// over []T rather than the original's raw pointer vectors.
type TilespaceIndex[T any] struct {
	root *tilespaceIndexNode[T]
}

type tilespaceIndexNode[T any] struct {
	children [4]*tilespaceIndexNode[T]
	values   []T
}

// NewTilespaceIndex returns an empty index.
func NewTilespaceIndex[T any]() *TilespaceIndex[T] {
	return &TilespaceIndex[T]{root: &tilespaceIndexNode[T]{}}
}

// Add stores value at path, creating intermediate trie nodes as needed.
func (idx *TilespaceIndex[T]) Add(path quadtree.Path, value T) {
	n := idx.root
	level := path.Level()
	for i := uint32(0); i < level; i++ {
		child := path.At(i)
		if n.children[child] == nil {
			n.children[child] = &tilespaceIndexNode[T]{}
		}
		n = n.children[child]
	}
	n.values = append(n.values, value)
}

// Query returns every value whose Add path is an ancestor of path at a level
// below startLevel, plus every value stored at path or anywhere in its
// subtree. This mirrors the original's two-part lookup: coarser insets
// already fixed above startLevel, and finer insets nested under the quad
// being built.
func (idx *TilespaceIndex[T]) Query(path quadtree.Path, startLevel uint32) []T {
	var out []T
	n := idx.root
	level := path.Level()
	for i := uint32(0); i < level && i < startLevel; i++ {
		out = append(out, n.values...)
		child := path.At(i)
		if n.children[child] == nil {
			return out
		}
		n = n.children[child]
	}
	for i := startLevel; i < level; i++ {
		child := path.At(i)
		if n.children[child] == nil {
			return out
		}
		n = n.children[child]
	}
	out = append(out, collectSubtree(n, nil)...)
	return out
}

func collectSubtree[T any](n *tilespaceIndexNode[T], out []T) []T {
	if n == nil {
		return out
	}
	out = append(out, n.values...)
	for _, child := range n.children {
		out = collectSubtree(child, out)
	}
	return out
}
