package physics

import "fmt"

// Handles encode a 32-bit arena index in the lower bits and a 32-bit
// generation in the upper bits. Generations start at 1, so the zero value of
// every handle type is never valid.
type (
	BodyHandle     uint64
	ColliderHandle uint64
	JointHandle    uint64
)

func packHandle(index, generation uint32) uint64 {
	return uint64(generation)<<32 | uint64(index)
}

func unpackHandle(h uint64) (index, generation uint32) {
	return uint32(h), uint32(h >> 32)
}

func (h BodyHandle) Index() uint32      { return uint32(h) }
func (h BodyHandle) Generation() uint32 { return uint32(h >> 32) }
func (h BodyHandle) IsZero() bool       { return h == 0 }
func (h BodyHandle) String() string {
	return fmt.Sprintf("body(%d:%d)", h.Index(), h.Generation())
}

func (h ColliderHandle) Index() uint32      { return uint32(h) }
func (h ColliderHandle) Generation() uint32 { return uint32(h >> 32) }
func (h ColliderHandle) IsZero() bool       { return h == 0 }
func (h ColliderHandle) String() string {
	return fmt.Sprintf("collider(%d:%d)", h.Index(), h.Generation())
}

func (h JointHandle) Index() uint32      { return uint32(h) }
func (h JointHandle) Generation() uint32 { return uint32(h >> 32) }
func (h JointHandle) String() string {
	return fmt.Sprintf("joint(%d:%d)", h.Index(), h.Generation())
}

type slot[T any] struct {
	generation uint32
	live       bool
	value      T
}

// arena stores values in reusable slots with a free list. Removing a value
// bumps the slot generation so stale handles never alias a newer entity.
type arena[T any] struct {
	slots    []slot[T]
	freeList []uint32
	count    int
}

func (a *arena[T]) insert(v T) uint64 {
	var idx uint32
	if n := len(a.freeList); n > 0 {
		idx = a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot[T]{})
	}
	s := &a.slots[idx]
	s.generation++
	s.live = true
	s.value = v
	a.count++
	return packHandle(idx, s.generation)
}

func (a *arena[T]) get(h uint64) (*T, bool) {
	idx, gen := unpackHandle(h)
	if int(idx) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[idx]
	if !s.live || s.generation != gen {
		return nil, false
	}
	return &s.value, true
}

func (a *arena[T]) remove(h uint64) (T, bool) {
	var zero T
	idx, gen := unpackHandle(h)
	if int(idx) >= len(a.slots) {
		return zero, false
	}
	s := &a.slots[idx]
	if !s.live || s.generation != gen {
		return zero, false
	}
	v := s.value
	s.value = zero
	s.live = false
	a.freeList = append(a.freeList, idx)
	a.count--
	return v, true
}

// each visits live values in slot order, which keeps iteration deterministic.
func (a *arena[T]) each(fn func(h uint64, v *T)) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.live {
			fn(packHandle(uint32(i), s.generation), &s.value)
		}
	}
}

func (a *arena[T]) len() int { return a.count }
