package isopick

// ObjectID identifies a tracked object. It is the owning Node's ID.
type ObjectID uint32

// indexEntry is the reverse-map value for one tracked object.
type indexEntry struct {
	index ColorIndex
	proxy *Proxy
}

// IndexTable maps color indices to objects and back. Both directions are
// kept in lockstep: every forward entry has exactly one reverse entry.
//
// New indices are derived from the live count modulo the index space rather
// than from a free list, so after deletions the derived slot may already be
// taken. Allocation then probes forward to the next free slot.
type IndexTable struct {
	forward map[ColorIndex]ObjectID
	reverse map[ObjectID]indexEntry
	space   int
	log     *logger
}

// NewIndexTable returns an empty table over the full 24-bit index space.
func NewIndexTable() *IndexTable {
	return newIndexTable(indexSpace, nil)
}

func newIndexTable(space int, l *logger) *IndexTable {
	if space <= 0 || space > indexSpace {
		space = indexSpace
	}
	if l == nil {
		l = newLogger(nil, "", false)
	}
	return &IndexTable{
		forward: make(map[ColorIndex]ObjectID),
		reverse: make(map[ObjectID]indexEntry),
		space:   space,
		log:     l,
	}
}

// Add assigns a color index to id. If id is already present its existing
// index is returned. Returns false when every index is in use; the table
// is left unchanged in that case.
func (t *IndexTable) Add(id ObjectID) (ColorIndex, bool) {
	if e, ok := t.reverse[id]; ok {
		return e.index, true
	}
	if len(t.forward) >= t.space {
		t.log.overflow.Do(func() {
			t.log.warnf("index space exhausted (%d live objects); object %d not indexed", len(t.forward), id)
		})
		return 0, false
	}
	idx := ColorIndex(len(t.reverse) % t.space)
	for {
		if _, taken := t.forward[idx]; !taken {
			break
		}
		idx++
		if int(idx) >= t.space {
			idx = 0
		}
	}
	t.forward[idx] = id
	t.reverse[id] = indexEntry{index: idx}
	return idx, true
}

// SetProxy attaches the draw proxy for an already-added id.
// No-op if id is not in the table.
func (t *IndexTable) SetProxy(id ObjectID, p *Proxy) {
	e, ok := t.reverse[id]
	if !ok {
		return
	}
	e.proxy = p
	t.reverse[id] = e
}

// Remove drops id from both maps and returns the proxy it owned, if any.
func (t *IndexTable) Remove(id ObjectID) (*Proxy, bool) {
	e, ok := t.reverse[id]
	if !ok {
		return nil, false
	}
	delete(t.reverse, id)
	delete(t.forward, e.index)
	return e.proxy, true
}

// Get returns the color index assigned to id.
func (t *IndexTable) Get(id ObjectID) (ColorIndex, bool) {
	e, ok := t.reverse[id]
	return e.index, ok
}

// Proxy returns the draw proxy attached to id.
func (t *IndexTable) Proxy(id ObjectID) (*Proxy, bool) {
	e, ok := t.reverse[id]
	if !ok || e.proxy == nil {
		return nil, false
	}
	return e.proxy, true
}

// Resolve returns the object that owns idx.
func (t *IndexTable) Resolve(idx ColorIndex) (ObjectID, bool) {
	id, ok := t.forward[idx]
	return id, ok
}

// Has reports whether id is tracked.
func (t *IndexTable) Has(id ObjectID) bool {
	_, ok := t.reverse[id]
	return ok
}

// Len returns the number of tracked objects.
func (t *IndexTable) Len() int {
	return len(t.reverse)
}

// IDs appends every tracked id to buf and returns it. Order is unspecified.
func (t *IndexTable) IDs(buf []ObjectID) []ObjectID {
	for id := range t.reverse {
		buf = append(buf, id)
	}
	return buf
}

// reset empties both maps.
func (t *IndexTable) reset() {
	clear(t.forward)
	clear(t.reverse)
}
