package physics

import (
	"math"
	"sort"

	"github.com/san-kum/bouncer/internal/geom"
)

// ColliderPair is a candidate pair from the broad phase, with A < B.
type ColliderPair struct {
	A, B ColliderHandle
}

type bvhLeaf struct {
	handle  ColliderHandle
	body    BodyHandle
	dynamic bool
	box     geom.AABB
}

type bvhNode struct {
	box         geom.AABB
	left, right int
	// leaves[start:start+count] when count > 0
	start, count int
}

const bvhLeafSize = 2

// BroadPhase finds collider pairs whose padded bounding boxes overlap. The
// tree is rebuilt every step; infinite shapes such as planes are kept out of
// the tree and tested against every other leaf.
type BroadPhase struct {
	leaves   []bvhLeaf
	infinite []bvhLeaf
	nodes    []bvhNode
	rank     map[ColliderHandle]int
}

func NewBroadPhase() *BroadPhase {
	return &BroadPhase{rank: make(map[ColliderHandle]int)}
}

// update rebuilds the tree from the current collider poses. Boxes of moving
// bodies grow by margin plus the distance covered in dt.
func (bp *BroadPhase) update(s *Store, dt, margin float64) []ColliderPair {
	bp.leaves = bp.leaves[:0]
	bp.infinite = bp.infinite[:0]
	bp.nodes = bp.nodes[:0]
	clear(bp.rank)

	s.colliders.each(func(h uint64, c *Collider) {
		leaf := bvhLeaf{handle: ColliderHandle(h), body: c.parent, box: c.aabb}
		if b, ok := s.bodies.get(uint64(c.parent)); ok {
			leaf.dynamic = b.kind == Dynamic
		}
		pad := margin + sweepSpeed(s, c)*dt
		bp.rank[leaf.handle] = len(bp.rank)
		if c.aabb.IsInfinite() {
			bp.infinite = append(bp.infinite, leaf)
			return
		}
		leaf.box = leaf.box.Expand(pad)
		bp.leaves = append(bp.leaves, leaf)
	})

	if len(bp.leaves) > 0 {
		bp.build(0, len(bp.leaves))
	}

	var pairs []ColliderPair
	for i := range bp.leaves {
		a := &bp.leaves[i]
		bp.query(0, a.box, func(b *bvhLeaf) {
			if bp.rank[b.handle] > bp.rank[a.handle] {
				pairs = appendPair(pairs, a, b)
			}
		})
	}
	for i := range bp.infinite {
		p := &bp.infinite[i]
		for j := range bp.leaves {
			pairs = appendPair(pairs, p, &bp.leaves[j])
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	return pairs
}

func appendPair(pairs []ColliderPair, a, b *bvhLeaf) []ColliderPair {
	if a.handle == b.handle {
		return pairs
	}
	if !a.dynamic && !b.dynamic {
		return pairs
	}
	if !a.body.IsZero() && a.body == b.body {
		return pairs
	}
	if a.handle > b.handle {
		a, b = b, a
	}
	return append(pairs, ColliderPair{A: a.handle, B: b.handle})
}

// build splits leaves[start:end] at the median along the longest axis of the
// centroid bounds and returns the node index.
func (bp *BroadPhase) build(start, end int) int {
	box := geom.Empty()
	centroids := geom.Empty()
	for _, l := range bp.leaves[start:end] {
		box = box.Union(l.box)
		c := l.box.Center()
		centroids = centroids.Union(geom.AABB{Min: c, Max: c})
	}

	idx := len(bp.nodes)
	bp.nodes = append(bp.nodes, bvhNode{box: box, left: -1, right: -1})
	if end-start <= bvhLeafSize {
		bp.nodes[idx].start, bp.nodes[idx].count = start, end-start
		return idx
	}

	axis := centroids.LongestAxis()
	part := bp.leaves[start:end]
	sort.Slice(part, func(i, j int) bool {
		ci, cj := part[i].box.Center()[axis], part[j].box.Center()[axis]
		if ci != cj {
			return ci < cj
		}
		return part[i].handle < part[j].handle
	})
	mid := start + (end-start)/2
	left := bp.build(start, mid)
	right := bp.build(mid, end)
	bp.nodes[idx].left, bp.nodes[idx].right = left, right
	return idx
}

func (bp *BroadPhase) query(node int, box geom.AABB, fn func(*bvhLeaf)) {
	n := &bp.nodes[node]
	if !n.box.Overlaps(box) {
		return
	}
	if n.count > 0 {
		for i := n.start; i < n.start+n.count; i++ {
			if bp.leaves[i].box.Overlaps(box) {
				fn(&bp.leaves[i])
			}
		}
		return
	}
	bp.query(n.left, box, fn)
	bp.query(n.right, box, fn)
}

// sweepSpeed bounds how fast any point of c can move.
func sweepSpeed(s *Store, c *Collider) float64 {
	b, ok := s.bodies.get(uint64(c.parent))
	if !ok || b.kind == Fixed || (b.kind == Dynamic && b.sleeping) {
		return 0
	}
	v := b.linVel.Len()
	if w := b.angVel.Len(); w > 0 {
		if r := c.desc.Shape.BoundingRadius() + c.desc.Position.Len(); !math.IsInf(r, 0) {
			v += w * r
		}
	}
	return v
}
