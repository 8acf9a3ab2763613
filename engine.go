package isopick

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hajimehoshi/ebiten/v2"
)

var (
	// ErrEngineDestroyed is returned by Init on a destroyed engine and by
	// buffer reads after disposal.
	ErrEngineDestroyed = errors.New("isopick: engine destroyed")
	// ErrAlreadyInitialized is returned by a second Init.
	ErrAlreadyInitialized = errors.New("isopick: engine already initialized")
	// ErrInvalidBounds is returned by Init when Config.Bounds has no area.
	ErrInvalidBounds = errors.New("isopick: index buffer bounds must have positive size")
)

// Config configures a picking engine. Zero fields take the defaults listed
// on each field.
type Config struct {
	// Name tags log lines and events. Default "pick".
	Name string
	// Bounds is the world-space area the index buffer covers. Required.
	Bounds Rect
	// Scale is the number of world units per buffer pixel. Larger values
	// trade edge precision for a smaller buffer. Default 1.
	Scale float64
	// AlphaThreshold is the source alpha a texel must exceed to be
	// pickable. Default 0: any non-transparent texel.
	AlphaThreshold float64
	// TargetFPS sizes the debounce window. Default ebiten.TPS().
	TargetFPS int
	// MinDebounce is the floor for the debounce window.
	MinDebounce time.Duration
	// Backend selects the index buffer implementation. Default BackendGPU.
	Backend Backend
	// Clock drives the rebuild scheduler. Default SystemClock.
	Clock Clock
	// AutoSync reconciles the whole layer on every Update.
	AutoSync bool

	// GlowColor, GlowRadius and GlowDuration configure the hover highlight.
	// Defaults: warm yellow, 4 pixels, 0.15 seconds.
	GlowColor    Color
	GlowRadius   int
	GlowDuration float32

	// Logger receives warnings and debug output. Default log.Default().
	Logger *log.Logger
	// Debug enables per-rebuild statistics in the log.
	Debug bool

	// space narrows the index space; tests use it to reach overflow and
	// wrap-around cheaply.
	space int
}

// withDefaults returns a copy of c with zero fields filled in.
func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "pick"
	}
	if c.Scale <= 0 {
		c.Scale = 1
	}
	if c.AlphaThreshold < 0 {
		c.AlphaThreshold = 0
	}
	if c.TargetFPS <= 0 {
		c.TargetFPS = ebiten.TPS()
	}
	if c.Clock == nil {
		c.Clock = SystemClock
	}
	if c.GlowColor == (Color{}) {
		c.GlowColor = Color{R: 1, G: 0.85, B: 0.3, A: 1}
	}
	if c.GlowRadius <= 0 {
		c.GlowRadius = 4
	}
	if c.GlowDuration <= 0 {
		c.GlowDuration = 0.15
	}
	return c
}

// TileConfig returns the preset for large, mostly static background tiles:
// a buffer at a quarter of world resolution, any non-zero alpha pickable,
// and a one-frame debounce.
func TileConfig(bounds Rect) Config {
	return Config{
		Name:           "tiles",
		Bounds:         bounds,
		Scale:          4,
		AlphaThreshold: 0,
	}
}

// TokenConfig returns the preset for small, frequently moving tokens: a
// full-resolution buffer, a small alpha threshold, and a debounce of at
// least 50ms so dragging does not rebuild every frame.
func TokenConfig(bounds Rect) Config {
	return Config{
		Name:           "tokens",
		Bounds:         bounds,
		Scale:          1,
		AlphaThreshold: 0.01,
		MinDebounce:    50 * time.Millisecond,
	}
}

// State is an engine's lifecycle stage.
type State uint8

const (
	StateUninitialized State = iota // constructed, no buffer yet
	StateInitialized                // buffer created, first render pending
	StateActive                     // at least one render completed
	StateDestroyed                  // resources released; terminal
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateActive:
		return "active"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Changes is a set of node fields reported as changed to HandleUpdate.
type Changes uint16

const (
	ChangePosition Changes = 1 << iota
	ChangeSize
	ChangeRotation
	ChangeScale
	ChangeVisibility
	ChangeSortKey
	ChangeTexture
	ChangeOther // anything that does not affect picking (names, tint, user data)
)

// pickRelevant is every change that can move or reshape a proxy.
const pickRelevant = ChangePosition | ChangeSize | ChangeRotation | ChangeScale |
	ChangeVisibility | ChangeSortKey | ChangeTexture

// Engine tracks the sprites under one layer node and answers pixel-exact
// picking queries for them. All methods must be called from the host's
// update thread.
type Engine struct {
	cfg   Config
	layer *Node
	state State
	log   *logger

	table  *IndexTable
	cache  *ProxyCache
	buffer *IndexBuffer
	probe  *Probe
	sched  *Scheduler
	pool   renderTexturePool

	nodes      map[ObjectID]*Node
	strategies map[ObjectID]*PickStrategy
	hover      hoverState
	sink       EventSink

	scene        *Scene
	hoverHandles []CallbackHandle

	batching bool
	dirty    bool
	seen     map[ObjectID]struct{}
	walkBuf  []*Node

	noSurface map[ObjectID]struct{}
}

// NewEngine returns an uninitialized engine for the sprites under layer.
// Panics if layer is nil.
func NewEngine(layer *Node, cfg Config) *Engine {
	if layer == nil {
		panic("isopick: engine layer must not be nil")
	}
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:        cfg,
		layer:      layer,
		log:        newLogger(cfg.Logger, cfg.Name, cfg.Debug),
		nodes:      make(map[ObjectID]*Node),
		strategies: make(map[ObjectID]*PickStrategy),
		seen:       make(map[ObjectID]struct{}),
		noSurface:  make(map[ObjectID]struct{}),
	}
	e.hover.init(cfg)
	return e
}

// Init creates the index buffer, indexes every eligible sprite under the
// layer and performs the first render. Returns ErrAlreadyInitialized on a
// second call and ErrEngineDestroyed after Destroy.
func (e *Engine) Init() error {
	switch e.state {
	case StateDestroyed:
		return ErrEngineDestroyed
	case StateInitialized, StateActive:
		return ErrAlreadyInitialized
	}
	b := e.cfg.Bounds
	if !(b.Width > 0 && b.Height > 0) {
		return fmt.Errorf("init %s: %w", e.cfg.Name, ErrInvalidBounds)
	}

	w, h := bufferDims(b, e.cfg.Scale)
	origin := Vec2{X: b.X, Y: b.Y}
	var backend indexBackend
	switch e.cfg.Backend {
	case BackendSoftware:
		backend = newSoftBackend(w, h, e.cfg.AlphaThreshold)
	default:
		backend = newGPUBackend(&e.pool, w, h, e.cfg.AlphaThreshold)
	}

	e.table = newIndexTable(e.cfg.space, e.log)
	e.cache = newProxyCache(backend, origin, e.cfg.Scale)
	e.buffer = newIndexBuffer(e.cfg.Backend, backend, w, h, origin, e.cfg.Scale, e.log)
	e.probe = newProbe(e.buffer, e.table, e.log)
	e.sched = NewScheduler(e.cfg.Clock, debounceWindow(e.cfg.TargetFPS, e.cfg.MinDebounce), e.rebuild)
	e.state = StateInitialized
	e.log.debugf("init: %dx%d %s buffer, scale %g, debounce %v", w, h, e.cfg.Backend, e.cfg.Scale, e.sched.Window())

	e.Sync()
	e.sched.Invalidate()
	e.sched.Flush()
	return nil
}

// Destroy cancels any pending rebuild, restores every installed HitShape,
// removes the hover highlight and releases the index buffer. Further calls
// are logged no-ops.
func (e *Engine) Destroy() {
	if e.state == StateDestroyed {
		return
	}
	if e.sched != nil {
		e.sched.Stop()
	}
	e.clearHover()
	for _, h := range e.hoverHandles {
		h.Remove()
	}
	e.hoverHandles = nil
	if e.scene != nil {
		e.scene.Detach(e)
	}
	e.restoreAll()
	if e.cache != nil {
		e.cache.destroyAll()
	}
	if e.table != nil {
		e.table.reset()
	}
	if e.buffer != nil {
		e.buffer.Dispose()
	}
	clear(e.nodes)
	clear(e.noSurface)
	e.state = StateDestroyed
	e.log.debugf("destroyed")
}

// usable reports whether the engine accepts operations, logging a
// throttled warning when it does not.
func (e *Engine) usable(op string) bool {
	switch e.state {
	case StateInitialized, StateActive:
		return true
	}
	e.log.lifecycle.Do(func() {
		e.log.warnf("%s ignored: engine is %s", op, e.state)
	})
	return false
}

// State returns the engine's lifecycle stage.
func (e *Engine) State() State {
	return e.state
}

// Name returns the configured engine name.
func (e *Engine) Name() string {
	return e.cfg.Name
}

// Layer returns the node whose subtree the engine tracks.
func (e *Engine) Layer() *Node {
	return e.layer
}

// Table returns the engine's index table. Nil before Init.
func (e *Engine) Table() *IndexTable {
	return e.table
}

// Buffer returns the engine's index buffer. Nil before Init.
func (e *Engine) Buffer() *IndexBuffer {
	return e.buffer
}

// Probe returns the engine's pixel probe. Nil before Init.
func (e *Engine) Probe() *Probe {
	return e.probe
}

// Scheduler returns the engine's rebuild scheduler. Nil before Init.
func (e *Engine) Scheduler() *Scheduler {
	return e.sched
}

// SetEventSink routes picking events to sink. Nil disables events.
func (e *Engine) SetEventSink(sink EventSink) {
	e.sink = sink
}

func (e *Engine) emit(kind PickEventKind, id ObjectID, idx ColorIndex) {
	if e.sink == nil {
		return
	}
	e.sink.HandlePickEvent(PickEvent{Kind: kind, Object: id, Index: idx, Engine: e.cfg.Name})
}

// invalidate schedules a rebuild, or records the need for one while a
// batch is open.
func (e *Engine) invalidate() {
	if e.batching {
		e.dirty = true
		return
	}
	e.sched.Invalidate()
}

// eligible reports whether n can be tracked: alive, under the layer,
// visible all the way up, and carrying a texture with area.
func (e *Engine) eligible(n *Node) bool {
	if n.IsDisposed() || !isAncestor(e.layer, n) || !n.visibleInTree() {
		return false
	}
	w, h := n.Size()
	return w > 0 && h > 0
}

// lookup finds the node for id among tracked nodes, then under the layer.
func (e *Engine) lookup(id ObjectID) *Node {
	if n, ok := e.nodes[id]; ok && !n.IsDisposed() {
		return n
	}
	return e.layer.FindByID(uint32(id))
}

// Reindex adds the node with the given id to the index, or refreshes its
// proxy if already tracked, and schedules a rebuild when anything changed.
// A node that is gone, hidden or has no texture leaves the index instead.
// Reports whether the node is tracked afterwards.
func (e *Engine) Reindex(id ObjectID) bool {
	if !e.usable("Reindex") {
		return false
	}
	n := e.lookup(id)
	if n == nil {
		e.untrack(id)
		return false
	}
	return e.reindexNode(n)
}

// ReindexNode is Reindex for a node reference.
func (e *Engine) ReindexNode(n *Node) bool {
	if n == nil || !e.usable("Reindex") {
		return false
	}
	return e.reindexNode(n)
}

func (e *Engine) reindexNode(n *Node) bool {
	id := n.PickID()
	if !e.eligible(n) {
		if n.Texture == nil && !n.IsDisposed() && n.visibleInTree() && n != e.layer {
			e.warnNoSurface(n)
		}
		e.untrack(id)
		return false
	}

	if p, ok := e.table.Proxy(id); ok {
		if e.cache.Update(p, n) {
			e.invalidate()
		}
		return true
	}

	idx, ok := e.table.Add(id)
	if !ok {
		return false
	}
	delete(e.noSurface, id)
	p := e.cache.Create(n, idx)
	e.table.SetProxy(id, p)
	e.nodes[id] = n
	e.HitTest(n)
	e.log.debugf("indexed node %d (%q) as %#06x", id, n.Name, uint32(idx))
	e.emit(PickIndexed, id, idx)
	e.invalidate()
	return true
}

// warnNoSurface logs a textureless node once per node; repeats go to the
// debug log, throttled.
func (e *Engine) warnNoSurface(n *Node) {
	id := n.PickID()
	if _, ok := e.noSurface[id]; !ok {
		e.noSurface[id] = struct{}{}
		e.log.warnf("node %d (%q) has no texture; not indexed", id, n.Name)
		return
	}
	e.log.missingSurface.Do(func() {
		e.log.debugf("node %d (%q) still has no texture", id, n.Name)
	})
}

// DeleteFromIndex removes id from the index and schedules a rebuild.
// Reports whether id was tracked.
func (e *Engine) DeleteFromIndex(id ObjectID) bool {
	if !e.usable("DeleteFromIndex") {
		return false
	}
	return e.untrack(id)
}

// untrack drops id from the table and proxy cache and restores its
// HitShape.
func (e *Engine) untrack(id ObjectID) bool {
	idx, _ := e.table.Get(id)
	p, ok := e.table.Remove(id)
	if !ok {
		return false
	}
	e.cache.Destroy(p)
	if n := e.nodes[id]; n != nil {
		if e.hover.node == n {
			e.clearHover()
		}
		e.Restore(n)
	}
	delete(e.nodes, id)
	e.log.debugf("removed node %d from index", id)
	e.emit(PickRemoved, id, idx)
	e.invalidate()
	return true
}

// HandleUpdate is the change-notification entry point: it reindexes id only
// when changes include something that affects picking.
func (e *Engine) HandleUpdate(id ObjectID, changes Changes) bool {
	if changes&pickRelevant == 0 {
		return false
	}
	return e.Reindex(id)
}

// Sync reconciles the index with the layer in one pass: sprites that
// vanished, were hidden or lost their texture are dropped, new eligible
// sprites are added, and the rest are refreshed. At most one rebuild is
// scheduled for the whole pass.
func (e *Engine) Sync() {
	if !e.usable("Sync") {
		return
	}
	e.batching = true
	e.dirty = false
	clear(e.seen)

	e.walkBuf = paintOrder(e.layer, e.walkBuf[:0])
	for _, n := range e.walkBuf {
		if e.reindexNode(n) {
			e.seen[n.PickID()] = struct{}{}
		}
	}
	for id := range e.nodes {
		if _, ok := e.seen[id]; !ok {
			e.untrack(id)
		}
	}
	if e.rankProxies(e.walkBuf) {
		e.dirty = true
	}
	clear(e.walkBuf)
	for id := range e.noSurface {
		if e.layer.FindByID(uint32(id)) == nil {
			delete(e.noSurface, id)
		}
	}

	e.batching = false
	if e.dirty {
		e.sched.Invalidate()
	}
}

// paintOrder appends every visible textured node under n to buf in the
// order the scene paints them: siblings by ZIndex, ties in tree order.
func paintOrder(n *Node, buf []*Node) []*Node {
	if !n.Visible {
		return buf
	}
	if n.Texture != nil {
		buf = append(buf, n)
	}
	if len(n.children) == 0 {
		return buf
	}
	children := n.children
	if !n.childrenSorted {
		rebuildSortedChildren(n)
	}
	if n.sortedChildren != nil {
		children = n.sortedChildren
	}
	for _, c := range children {
		buf = paintOrder(c, buf)
	}
	return buf
}

// rankProxies numbers the tracked proxies by their owners' position in
// order and reports whether any rank moved.
func (e *Engine) rankProxies(order []*Node) bool {
	changed := false
	for i, n := range order {
		id := n.PickID()
		if e.nodes[id] != n {
			continue
		}
		if p, ok := e.table.Proxy(id); ok {
			changed = syncField(&p.rank, i+1) || changed
		}
	}
	return changed
}

// rebuild redraws the index buffer from the live proxies. Run by the
// scheduler.
func (e *Engine) rebuild() {
	e.walkBuf = paintOrder(e.layer, e.walkBuf[:0])
	e.rankProxies(e.walkBuf)
	clear(e.walkBuf)
	e.buffer.Render(e.cache.Live())
	if e.state == StateInitialized {
		e.state = StateActive
	}
	e.logRebuild()
	e.emit(PickRebuilt, 0, 0)
}

// Update runs one host frame: optional full reconciliation, the debounced
// rebuild if due, and the hover glow animation.
func (e *Engine) Update(dt float32) {
	if e.state != StateInitialized && e.state != StateActive {
		return
	}
	if e.cfg.AutoSync {
		e.Sync()
	}
	e.sched.Poll()
	e.hover.tick(dt)
}

// Flush performs a pending rebuild immediately. Reports whether one ran.
func (e *Engine) Flush() bool {
	if !e.usable("Flush") {
		return false
	}
	return e.sched.Flush()
}

// QueryAt returns the tracked node whose opaque pixel is topmost at the
// world point (x, y) as of the last rebuild, or nil.
func (e *Engine) QueryAt(x, y float64) *Node {
	if !e.usable("QueryAt") {
		return nil
	}
	id, ok := e.probe.QueryWorldPoint(x, y)
	if !ok {
		return nil
	}
	return e.nodes[id]
}

// Tracked reports whether id is currently indexed.
func (e *Engine) Tracked(id ObjectID) bool {
	return e.table != nil && e.table.Has(id)
}

// IndexOf returns the color index assigned to id.
func (e *Engine) IndexOf(id ObjectID) (ColorIndex, bool) {
	if e.table == nil {
		return 0, false
	}
	return e.table.Get(id)
}

// Len returns the number of tracked nodes.
func (e *Engine) Len() int {
	return len(e.nodes)
}

// Stats is a snapshot of engine counters.
type Stats struct {
	Name             string
	State            State
	Backend          Backend
	Tracked          int
	Proxies          int
	ProxiesCreated   int
	ProxiesDestroyed int
	Rebuilds         int
	Invalidations    int
	Pending          bool
	LastDrawn        int
	LastRender       time.Duration
	Queries          int
	Hits             int
	BufferWidth      int
	BufferHeight     int
	BufferBytes      int
}

// String formats the stats on one line.
func (s Stats) String() string {
	return fmt.Sprintf("%s [%s/%s]: %d tracked, %d rebuilds (last %v, %d drawn), %d/%d hits, %dx%d buffer %s",
		s.Name, s.State, s.Backend, s.Tracked, s.Rebuilds, s.LastRender, s.LastDrawn,
		s.Hits, s.Queries, s.BufferWidth, s.BufferHeight, humanize.Bytes(uint64(s.BufferBytes)))
}

// Stats returns the current counters.
func (e *Engine) Stats() Stats {
	st := Stats{
		Name:    e.cfg.Name,
		State:   e.state,
		Backend: e.cfg.Backend,
		Tracked: len(e.nodes),
	}
	if e.cache != nil {
		st.Proxies = e.cache.Len()
		st.ProxiesCreated = e.cache.created
		st.ProxiesDestroyed = e.cache.destroyed
	}
	if e.sched != nil {
		st.Invalidations = e.sched.Invalidations()
		st.Pending = e.sched.Pending()
	}
	if b := e.buffer; b != nil {
		st.Rebuilds = b.rebuilds
		st.LastDrawn = b.lastDrawn
		st.LastRender = b.lastRender
		st.BufferWidth, st.BufferHeight = b.Size()
		if !b.disposed {
			st.BufferBytes = b.backend.bytes()
		}
	}
	if e.probe != nil {
		st.Queries = e.probe.queries
		st.Hits = e.probe.hits
	}
	return st
}
