package depot

import (
	"fmt"
	"sort"

	"github.com/TheBitDrifter/mask"
)

var _ placementPolicy = &groupedPolicy{}

// groupedPolicy clusters entities sharing an exact component mask into
// contiguous table ranges tracked by a directory. Ranges stay internally
// gap-free at all times; destroys can strand dead slots between groups,
// which only a refactor reclaims.
type groupedPolicy struct {
	sto        *storage
	directory  []EntityGroup
	groupIndex map[mask.Mask]int
}

func newGroupedPolicy(sto *storage) *groupedPolicy {
	return &groupedPolicy{
		sto:        sto,
		groupIndex: make(map[mask.Mask]int),
	}
}

// extent returns one past the highest slot any populated group covers.
func (p *groupedPolicy) extent() int {
	end := 0
	for _, g := range p.directory {
		if g.count > 0 && g.start+g.count > end {
			end = g.start + g.count
		}
	}
	return end
}

func (p *groupedPolicy) groupOf(index int, m mask.Mask) int {
	pos, ok := p.groupIndex[m]
	if !ok {
		panic(fmt.Sprintf("depot: live slot %d belongs to no group", index))
	}
	g := p.directory[pos]
	if index < g.start || index >= g.start+g.count {
		panic(fmt.Sprintf("depot: slot %d outside its group range [%d, %d)", index, g.start, g.start+g.count))
	}
	return pos
}

func (p *groupedPolicy) place(m mask.Mask) (int, error) {
	pos, found := p.groupIndex[m]
	if !found {
		p.directory = append(p.directory, EntityGroup{start: p.extent(), mask: m})
		pos = len(p.directory) - 1
		p.groupIndex[m] = pos
	}
	grp := &p.directory[pos]
	if grp.count == 0 {
		// An emptied entry keeps its old start; re-point it when that slot
		// is out of range or taken by a group that grew over it.
		if grp.start >= len(p.sto.records) || p.sto.records[grp.start].mask != (mask.Mask{}) {
			grp.start = p.extent()
		}
		if grp.start >= len(p.sto.records) {
			return 0, CapacityError{What: "entity table", Capacity: len(p.sto.records)}
		}
		grp.count = 1
		return grp.start, nil
	}
	target, err := p.freeSlotAfter(pos)
	if err != nil {
		return 0, err
	}
	grp.count++
	return target, nil
}

// freeSlotAfter frees and returns the slot one past the group's last member.
// Any group blocking that slot surrenders its head, shifting one slot right,
// farthest group first; the chain is collected before anything moves so a
// full table fails cleanly. Dead slots stranded between groups can make this
// fail even when the table has room elsewhere; a refactor reclaims them.
func (p *groupedPolicy) freeSlotAfter(pos int) (int, error) {
	chain := []int{pos}
	g := p.directory[pos]
	target := g.start + g.count
	for {
		if target >= len(p.sto.records) {
			return 0, CapacityError{What: "entity table", Capacity: len(p.sto.records)}
		}
		m := p.sto.records[target].mask
		if m == (mask.Mask{}) {
			break
		}
		blockerPos, ok := p.groupIndex[m]
		if !ok {
			panic(fmt.Sprintf("depot: live slot %d belongs to no group", target))
		}
		blocker := p.directory[blockerPos]
		if blocker.start != target {
			panic(fmt.Sprintf("depot: group blocking slot %d does not start there", target))
		}
		chain = append(chain, blockerPos)
		target = blocker.start + blocker.count
	}
	for i := len(chain) - 1; i >= 1; i-- {
		h := &p.directory[chain[i]]
		p.sto.swapEntities(h.start, h.start+h.count)
		h.start++
	}
	g = p.directory[pos]
	return g.start + g.count, nil
}

func (p *groupedPolicy) unplace(index int, m mask.Mask) {
	pos, ok := p.groupIndex[m]
	if !ok {
		panic(fmt.Sprintf("depot: unplacing slot %d for an unknown group", index))
	}
	grp := &p.directory[pos]
	if index != grp.start+grp.count-1 {
		panic(fmt.Sprintf("depot: unplacing slot %d which is not its group's tail", index))
	}
	grp.count--
}

func (p *groupedPolicy) remove(index int) {
	pos := p.groupOf(index, p.sto.records[index].mask)
	grp := &p.directory[pos]
	tail := grp.start + grp.count - 1
	p.sto.swapEntities(index, tail)
	p.sto.clearSlot(tail)
	// The entry stays in the directory even at count zero; a later create
	// with this mask revives it.
	grp.count--
}

func (p *groupedPolicy) reassign(index int, old, next mask.Mask) (int, error) {
	srcPos := p.groupOf(index, old)
	src := &p.directory[srcPos]
	// Detach from the source group: swap to its tail and shrink the range.
	// The entity floats at the vacated tail slot until it joins the
	// destination group.
	limbo := src.start + src.count - 1
	p.sto.swapEntities(index, limbo)
	src.count--

	dstPos, found := p.groupIndex[next]
	if !found {
		p.directory = append(p.directory, EntityGroup{start: limbo, count: 1, mask: next})
		p.groupIndex[next] = len(p.directory) - 1
		return limbo, nil
	}
	dst := &p.directory[dstPos]
	if dst.count == 0 {
		dst.start = limbo
		dst.count = 1
		return limbo, nil
	}
	if limbo >= dst.start+dst.count {
		return p.joinFromRight(dstPos, limbo), nil
	}
	return p.joinFromLeft(dstPos, limbo), nil
}

// joinFromRight merges a floating entity into the destination group from the
// right. Groups between the destination's end and the entity shift one slot
// right; when the chain reaches the entity itself, the unwinding swaps carry
// it down to the destination's end.
func (p *groupedPolicy) joinFromRight(dstPos, limbo int) int {
	chain := []int{dstPos}
	target := p.directory[dstPos].start + p.directory[dstPos].count
	for target != limbo {
		if target > limbo {
			panic(fmt.Sprintf("depot: group walk overshot slot %d", limbo))
		}
		m := p.sto.records[target].mask
		if m == (mask.Mask{}) {
			break
		}
		blockerPos, ok := p.groupIndex[m]
		if !ok {
			panic(fmt.Sprintf("depot: live slot %d belongs to no group", target))
		}
		blocker := p.directory[blockerPos]
		if blocker.start != target {
			panic(fmt.Sprintf("depot: group blocking slot %d does not start there", target))
		}
		chain = append(chain, blockerPos)
		target = blocker.start + blocker.count
	}
	riding := target == limbo
	for i := len(chain) - 1; i >= 1; i-- {
		h := &p.directory[chain[i]]
		p.sto.swapEntities(h.start, h.start+h.count)
		h.start++
	}
	dst := &p.directory[dstPos]
	target = dst.start + dst.count
	if !riding {
		p.sto.swapEntities(limbo, target)
	}
	dst.count++
	return target
}

// joinFromLeft is the mirror image: groups between the entity and the
// destination's start shift one slot left, and the destination grows
// downward to absorb the freed slot.
func (p *groupedPolicy) joinFromLeft(dstPos, limbo int) int {
	chain := []int{dstPos}
	target := p.directory[dstPos].start - 1
	for target != limbo {
		if target < limbo {
			panic(fmt.Sprintf("depot: group walk overshot slot %d", limbo))
		}
		m := p.sto.records[target].mask
		if m == (mask.Mask{}) {
			break
		}
		blockerPos, ok := p.groupIndex[m]
		if !ok {
			panic(fmt.Sprintf("depot: live slot %d belongs to no group", target))
		}
		blocker := p.directory[blockerPos]
		if blocker.start+blocker.count-1 != target {
			panic(fmt.Sprintf("depot: group blocking slot %d does not end there", target))
		}
		chain = append(chain, blockerPos)
		target = blocker.start - 1
	}
	riding := target == limbo
	for i := len(chain) - 1; i >= 1; i-- {
		h := &p.directory[chain[i]]
		p.sto.swapEntities(h.start+h.count-1, h.start-1)
		h.start--
	}
	dst := &p.directory[dstPos]
	target = dst.start - 1
	if !riding {
		p.sto.swapEntities(limbo, target)
	}
	dst.start--
	dst.count++
	return target
}

func (p *groupedPolicy) enumerate(pred func(mask.Mask) bool) []span {
	var spans []span
	for _, g := range p.directory {
		if g.count > 0 && pred(g.mask) {
			spans = append(spans, span{start: g.start, count: g.count})
		}
	}
	return spans
}

func (p *groupedPolicy) groups() []EntityGroup {
	out := make([]EntityGroup, len(p.directory))
	copy(out, p.directory)
	return out
}

// refactor repacks every populated group back to back from slot zero,
// most populated first, and rebuilds the directory. Equal populations keep
// their relative order, so running it twice changes nothing the second time.
func (p *groupedPolicy) refactor() error {
	capacity := len(p.sto.records)
	type sortingGroup struct {
		m       mask.Mask
		members []int
	}
	order := make(map[mask.Mask]int)
	var groups []sortingGroup
	for i := 0; i < capacity; i++ {
		m := p.sto.records[i].mask
		if m == (mask.Mask{}) {
			continue
		}
		gi, ok := order[m]
		if !ok {
			gi = len(groups)
			order[m] = gi
			groups = append(groups, sortingGroup{m: m})
		}
		groups[gi].members = append(groups[gi].members, i)
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return len(groups[a].members) > len(groups[b].members)
	})

	// Apply the permutation with live tracking of where every original
	// occupant currently sits, so displaced entities are found again after
	// their slot was handed to someone else.
	at := make([]int, capacity)
	cur := make([]int, capacity)
	for i := range at {
		at[i] = i
		cur[i] = i
	}
	moves := 0
	targetSlot := 0
	for _, sg := range groups {
		for _, orig := range sg.members {
			from := cur[orig]
			if from != targetSlot {
				other := at[targetSlot]
				p.sto.swapEntities(from, targetSlot)
				at[targetSlot], at[from] = orig, other
				cur[orig], cur[other] = targetSlot, from
				moves++
			}
			targetSlot++
		}
	}

	p.directory = p.directory[:0]
	p.groupIndex = make(map[mask.Mask]int)
	start := 0
	for _, sg := range groups {
		p.directory = append(p.directory, EntityGroup{start: start, count: len(sg.members), mask: sg.m})
		p.groupIndex[sg.m] = len(p.directory) - 1
		start += len(sg.members)
	}
	p.sto.log.Debug("storage refactored", "groups", len(groups), "moves", moves, "live", p.sto.live)
	return nil
}
