package isopick

import (
	"image"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

const defaultCommandCap = 1024

// Scene is the top-level object that owns the node tree, cameras, input
// state, render buffers and the picking engines driven by its update loop.
type Scene struct {
	root  *Node
	debug bool
	log   *logger

	cameras []*Camera

	// Render state
	commands   []RenderCommand
	drawOp     ebiten.DrawImageOptions
	rtPool     renderTexturePool
	rtDeferred []*ebiten.Image

	// Input state
	handlers    handlerRegistry
	pointer     pointerState
	hitBuf      []*Node
	injectQueue []syntheticPointerEvent

	engines []*Engine
	script  *PickScript
}

// NewScene creates a new scene with a pre-created root container.
func NewScene() *Scene {
	root := NewContainer("root")
	root.Interactable = true
	return &Scene{
		root:     root,
		log:      newLogger(nil, "scene", false),
		commands: make([]RenderCommand, 0, defaultCommandCap),
	}
}

// Root returns the scene's root container node.
func (s *Scene) Root() *Node {
	return s.root
}

// Update refreshes world transforms, advances cameras and attached picking
// engines, then processes pointer input. Engines run before input so hover
// and click hit tests see the latest index buffers.
func (s *Scene) Update() {
	s.update(float32(1.0 / float64(ebiten.TPS())))
}

func (s *Scene) update(dt float32) {
	updateWorldTransforms(s.root)
	for _, cam := range s.cameras {
		cam.update(dt)
	}
	for _, e := range s.engines {
		e.Update(dt)
	}
	if s.script != nil {
		s.script.step(s)
	}
	s.processInput()
}

// Draw traverses the scene tree and draws every visible sprite to screen,
// once per camera viewport.
func (s *Scene) Draw(screen *ebiten.Image) {
	updateWorldTransforms(s.root)

	if len(s.cameras) == 0 {
		s.drawWithCamera(screen, nil)
		return
	}
	for _, cam := range s.cameras {
		vp := cam.Viewport
		viewportImg := screen.SubImage(image.Rect(
			int(vp.X), int(vp.Y),
			int(vp.X+vp.Width), int(vp.Y+vp.Height),
		)).(*ebiten.Image)
		s.drawWithCamera(viewportImg, cam)
	}
}

// drawWithCamera renders the scene from a camera's perspective.
// If cam is nil, uses identity view (no camera).
func (s *Scene) drawWithCamera(target *ebiten.Image, cam *Camera) {
	s.commands = s.commands[:0]

	view := identityTransform
	if cam != nil {
		view = cam.computeViewMatrix()
	}

	var stats debugStats
	var t0 time.Time
	if s.debug {
		t0 = time.Now()
	}

	treeOrder := 0
	s.traverse(s.root, view, 1.0, &treeOrder)

	if s.debug {
		stats.traverseTime = time.Since(t0)
		stats.commandCount = len(s.commands)
		t0 = time.Now()
	}

	s.submitCommands(target)

	if s.debug {
		stats.submitTime = time.Since(t0)
		stats.pooled = s.rtPool.idle()
		s.debugLog(stats)
	}

	// Release pooled filter targets used during this frame.
	for _, img := range s.rtDeferred {
		s.rtPool.Release(img)
	}
	s.rtDeferred = s.rtDeferred[:0]
}

// NewCamera creates a camera with the given viewport and adds it to the scene.
// The first camera is the primary camera used for pointer input.
func (s *Scene) NewCamera(viewport Rect) *Camera {
	cam := newCamera(viewport)
	s.cameras = append(s.cameras, cam)
	return cam
}

// RemoveCamera removes a camera from the scene.
func (s *Scene) RemoveCamera(cam *Camera) {
	for i, c := range s.cameras {
		if c == cam {
			s.cameras = append(s.cameras[:i], s.cameras[i+1:]...)
			return
		}
	}
}

// Cameras returns the scene's camera list. The returned slice MUST NOT be mutated.
func (s *Scene) Cameras() []*Camera {
	return s.cameras
}

func (s *Scene) primaryCamera() *Camera {
	if len(s.cameras) == 0 {
		return nil
	}
	return s.cameras[0]
}

// ScreenToWorld converts a screen point to world space through the primary
// camera. Without a camera the two spaces coincide.
func (s *Scene) ScreenToWorld(sx, sy float64) (wx, wy float64) {
	return screenToWorld(s.primaryCamera(), sx, sy)
}

// Attach makes the scene drive e from its Update. An engine is attached to
// at most one scene; attaching it again moves it.
func (s *Scene) Attach(e *Engine) {
	if e.scene == s {
		return
	}
	if e.scene != nil {
		e.scene.Detach(e)
	}
	s.engines = append(s.engines, e)
	e.scene = s
}

// Detach stops driving e. No-op if e is not attached to s.
func (s *Scene) Detach(e *Engine) {
	for i, x := range s.engines {
		if x == e {
			copy(s.engines[i:], s.engines[i+1:])
			s.engines[len(s.engines)-1] = nil
			s.engines = s.engines[:len(s.engines)-1]
			e.scene = nil
			return
		}
	}
}

// Engines returns the attached picking engines. The returned slice MUST NOT be mutated.
func (s *Scene) Engines() []*Engine {
	return s.engines
}

// SetDebugMode enables or disables debug mode. When enabled, disposed-node
// tree operations panic, deep trees are reported and per-frame timing
// stats are logged.
func (s *Scene) SetDebugMode(enabled bool) {
	s.debug = enabled
	s.log.debug = enabled
	globalDebug = enabled
}

// globalDebug mirrors the most recently set Scene debug flag so that node
// operations (which lack a Scene pointer) can check it cheaply.
var globalDebug bool
