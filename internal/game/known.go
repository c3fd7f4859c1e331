package game

import "container/list"

// KnownCreatureSet is the bounded set of creature ids a client has cached.
// Members are kept in insertion order so eviction is deterministic.
type KnownCreatureSet struct {
	capacity int
	order    *list.List
	members  map[uint32]*list.Element
}

func NewKnownCreatureSet(capacity int) *KnownCreatureSet {
	if capacity < 1 {
		capacity = 1
	}
	return &KnownCreatureSet{
		capacity: capacity,
		order:    list.New(),
		members:  make(map[uint32]*list.Element),
	}
}

func (k *KnownCreatureSet) Len() int { return len(k.members) }

func (k *KnownCreatureSet) Contains(id uint32) bool {
	_, ok := k.members[id]
	return ok
}

// CheckKnown marks id as known. It reports whether id was already known and,
// when adding it overflowed the set, the id that was evicted (0 otherwise,
// which is also what clients read as "none"; the map never hands out id 0).
// The oldest member visible reports false for is evicted first; if every
// member is visible the oldest one goes.
func (k *KnownCreatureSet) CheckKnown(id uint32, visible func(id uint32) bool) (known bool, evicted uint32) {
	if k.Contains(id) {
		return true, 0
	}

	if len(k.members) >= k.capacity {
		evicted = k.evict(visible)
	}
	k.members[id] = k.order.PushBack(id)
	return false, evicted
}

func (k *KnownCreatureSet) evict(visible func(id uint32) bool) uint32 {
	victim := k.order.Front()
	if visible != nil {
		for e := k.order.Front(); e != nil; e = e.Next() {
			if !visible(e.Value.(uint32)) {
				victim = e
				break
			}
		}
	}

	id := victim.Value.(uint32)
	k.order.Remove(victim)
	delete(k.members, id)
	return id
}

func (k *KnownCreatureSet) Remove(id uint32) {
	if e, ok := k.members[id]; ok {
		k.order.Remove(e)
		delete(k.members, id)
	}
}

func (k *KnownCreatureSet) Clear() {
	k.order.Init()
	k.members = make(map[uint32]*list.Element)
}
