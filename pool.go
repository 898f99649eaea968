package depot

import (
	"fmt"
	"reflect"
	"unsafe"
)

// componentPool is the contiguous backing store for one component type: a
// fixed-capacity typed array addressed by table slot. The reflect.Value
// keeps the backing array reachable so base stays valid for the pool's
// lifetime.
type componentPool struct {
	typ      reflect.Type
	itemSize uintptr
	capacity int
	ref      reflect.Value
	base     unsafe.Pointer
}

func newComponentPool(c Component, capacity int) componentPool {
	typ := c.Type()
	backing := reflect.MakeSlice(reflect.SliceOf(typ), capacity, capacity)
	return componentPool{
		typ:      typ,
		itemSize: typ.Size(),
		capacity: capacity,
		ref:      backing,
		base:     backing.UnsafePointer(),
	}
}

// at returns the address of a slot. Callers hold the slot invariants, so an
// out of range slot is a corruption bug, not a recoverable condition.
func (p *componentPool) at(slot int) unsafe.Pointer {
	if slot < 0 || slot >= p.capacity {
		panic(fmt.Sprintf("depot: pool slot %d outside [0, %d)", slot, p.capacity))
	}
	return unsafe.Add(p.base, uintptr(slot)*p.itemSize)
}

func (p *componentPool) bytesAt(slot int) []byte {
	return unsafe.Slice((*byte)(p.at(slot)), p.itemSize)
}

func (p *componentPool) copySlot(dst, src int) {
	if p.itemSize == 0 || dst == src {
		return
	}
	copy(p.bytesAt(dst), p.bytesAt(src))
}

func (p *componentPool) swapSlots(a, b int) {
	if p.itemSize == 0 || a == b {
		return
	}
	ab, bb := p.bytesAt(a), p.bytesAt(b)
	for i := range ab {
		ab[i], bb[i] = bb[i], ab[i]
	}
}

func (p *componentPool) zeroSlot(slot int) {
	if p.itemSize == 0 {
		return
	}
	clear(p.bytesAt(slot))
}
