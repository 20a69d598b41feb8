package physics

// Island is a set of dynamic bodies connected through contacts or joints.
// Islands sleep and wake as a unit.
type Island struct {
	Bodies   []BodyHandle
	Sleeping bool
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}

// IslandManager groups bodies each step and decides which islands sleep.
type IslandManager struct {
	islands []Island
}

func NewIslandManager() *IslandManager {
	return &IslandManager{}
}

// build recomputes islands from the current manifolds and joints. Fixed and
// kinematic bodies never join an island, so a floor does not merge
// everything resting on it.
func (im *IslandManager) build(s *Store, manifolds []*ContactManifold) {
	var handles []BodyHandle
	index := make(map[BodyHandle]int)
	s.bodies.each(func(h uint64, b *RigidBody) {
		if b.kind == Dynamic {
			index[BodyHandle(h)] = len(handles)
			handles = append(handles, BodyHandle(h))
		}
	})

	uf := newUnionFind(len(handles))
	link := func(a, b BodyHandle) {
		ia, okA := index[a]
		ib, okB := index[b]
		if okA && okB {
			uf.union(ia, ib)
		}
	}
	for _, m := range manifolds {
		link(m.Body1, m.Body2)
	}
	s.joints.each(func(_ uint64, j *Joint) {
		link(j.Body1, j.Body2)
	})

	im.islands = im.islands[:0]
	slot := make(map[int]int)
	for i, h := range handles {
		root := uf.find(i)
		k, ok := slot[root]
		if !ok {
			k = len(im.islands)
			slot[root] = k
			im.islands = append(im.islands, Island{Sleeping: true})
		}
		im.islands[k].Bodies = append(im.islands[k].Bodies, h)
		if b, _ := s.bodies.get(uint64(h)); !b.sleeping {
			im.islands[k].Sleeping = false
		}
	}
}

// wake wakes sleeping bodies touched by a moving kinematic body, then wakes
// every island that holds at least one awake body.
func (im *IslandManager) wake(s *Store, manifolds []*ContactManifold) {
	for _, m := range manifolds {
		b1, ok1 := s.bodies.get(uint64(m.Body1))
		b2, ok2 := s.bodies.get(uint64(m.Body2))
		if !ok1 || !ok2 {
			continue
		}
		if b1.kind == Kinematic && b1.isMoving() {
			b2.wake()
		}
		if b2.kind == Kinematic && b2.isMoving() {
			b1.wake()
		}
	}

	for i := range im.islands {
		isl := &im.islands[i]
		awake := false
		for _, h := range isl.Bodies {
			if b, _ := s.bodies.get(uint64(h)); !b.sleeping {
				awake = true
				break
			}
		}
		if !awake {
			continue
		}
		isl.Sleeping = false
		for _, h := range isl.Bodies {
			b, _ := s.bodies.get(uint64(h))
			if b.sleeping {
				b.wake()
			}
		}
	}
}

// sleep updates each body's quiet-step counter and puts an island to sleep
// once every body in it has been quiet for p.SleepSteps steps.
func (im *IslandManager) sleep(s *Store, p IntegrationParameters) {
	for i := range im.islands {
		isl := &im.islands[i]
		if isl.Sleeping {
			continue
		}
		ready := p.AllowSleep
		for _, h := range isl.Bodies {
			b, ok := s.bodies.get(uint64(h))
			if !ok {
				continue
			}
			energy := 0.5 * (b.linVel.LenSqr() + b.angVel.LenSqr())
			if energy < p.SleepEnergyThreshold {
				b.quietSteps++
			} else {
				b.quietSteps = 0
			}
			if b.quietSteps < p.SleepSteps {
				ready = false
			}
		}
		if !ready {
			continue
		}
		for _, h := range isl.Bodies {
			if b, ok := s.bodies.get(uint64(h)); ok {
				b.sleep()
			}
		}
		isl.Sleeping = true
	}
}

func (im *IslandManager) sleepingBodies() int {
	n := 0
	for _, isl := range im.islands {
		if isl.Sleeping {
			n += len(isl.Bodies)
		}
	}
	return n
}
