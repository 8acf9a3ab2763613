package isopick

import (
	"encoding/json"
	"errors"
	"fmt"
)

// scriptStep is a single action in a pick script. Coordinates are in
// screen space and go through the primary camera like real input.
type scriptStep struct {
	Action string  `json:"action"`
	Engine string  `json:"engine,omitempty"`
	Node   string  `json:"node,omitempty"`
	Label  string  `json:"label,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Frames int     `json:"frames,omitempty"`
}

type scriptFile struct {
	SnapshotDir string       `json:"snapshotDir,omitempty"`
	Steps       []scriptStep `json:"steps"`
}

// PickScript replays pointer input against a scene and checks what the
// picking engines report under given points. Actions:
//
//	move, press, release, click  inject pointer input at (x, y)
//	wait                         idle for frames frames
//	flush                        rebuild engine's index buffer now
//	expect                       engine's topmost node at (x, y) must be named node ("" for none)
//	hover                        the scene's hover node must be named node
//	snapshot                     save engine's index buffer under label
//
// Attach to a Scene with SetScript.
type PickScript struct {
	// SnapshotDir is where snapshot steps write. Defaults to "snapshots".
	SnapshotDir string

	steps     []scriptStep
	cursor    int
	waitCount int
	done      bool
	failures  []error
}

// LoadPickScript parses a JSON pick script.
func LoadPickScript(jsonData []byte) (*PickScript, error) {
	var f scriptFile
	if err := json.Unmarshal(jsonData, &f); err != nil {
		return nil, fmt.Errorf("parse pick script: %w", err)
	}
	if len(f.Steps) == 0 {
		return nil, errors.New("parse pick script: no steps")
	}
	for i, st := range f.Steps {
		switch st.Action {
		case "move", "press", "release", "click", "wait", "hover":
		case "flush", "expect", "snapshot":
			if st.Engine == "" {
				return nil, fmt.Errorf("parse pick script: step %d: %s needs an engine", i, st.Action)
			}
		default:
			return nil, fmt.Errorf("parse pick script: step %d: unknown action %q", i, st.Action)
		}
	}
	dir := f.SnapshotDir
	if dir == "" {
		dir = "snapshots"
	}
	return &PickScript{SnapshotDir: dir, steps: f.Steps}, nil
}

// SetScript attaches a pick script. It advances one step per Update, after
// the engines and before input processing. Nil detaches.
func (s *Scene) SetScript(script *PickScript) {
	s.script = script
}

// Done reports whether every step has run.
func (r *PickScript) Done() bool {
	return r.done
}

// Failures returns the expectations that did not hold, in step order.
func (r *PickScript) Failures() []error {
	return r.failures
}

// Err joins all failures, or returns nil.
func (r *PickScript) Err() error {
	return errors.Join(r.failures...)
}

func (r *PickScript) failf(format string, v ...any) {
	r.failures = append(r.failures, fmt.Errorf("step %d: "+format, append([]any{r.cursor}, v...)...))
}

// engine finds an attached engine by name.
func (r *PickScript) engine(s *Scene, name string) *Engine {
	for _, e := range s.engines {
		if e.Name() == name {
			return e
		}
	}
	r.failf("no engine %q attached", name)
	return nil
}

// step advances the script by one frame.
func (r *PickScript) step(s *Scene) {
	if r.done {
		return
	}
	// Let queued input drain before the next step.
	if len(s.injectQueue) > 0 {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	switch st.Action {
	case "move":
		s.InjectMove(st.X, st.Y)
	case "press":
		s.InjectPress(st.X, st.Y)
	case "release":
		s.InjectRelease(st.X, st.Y)
	case "click":
		s.InjectClick(st.X, st.Y)
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1
		}
	case "flush":
		if e := r.engine(s, st.Engine); e != nil {
			e.Flush()
		}
	case "expect":
		if e := r.engine(s, st.Engine); e != nil {
			wx, wy := s.ScreenToWorld(st.X, st.Y)
			if got := nodeName(e.QueryAt(wx, wy)); got != st.Node {
				r.failf("%s at (%v, %v): got %q, want %q", st.Engine, st.X, st.Y, got, st.Node)
			}
		}
	case "hover":
		if got := nodeName(s.HoverNode()); got != st.Node {
			r.failf("hover: got %q, want %q", got, st.Node)
		}
	case "snapshot":
		if e := r.engine(s, st.Engine); e != nil {
			if _, err := e.SaveSnapshot(r.SnapshotDir, st.Label); err != nil {
				r.failf("%v", err)
			}
		}
	}
	r.cursor++

	if r.cursor >= len(r.steps) && r.waitCount == 0 && len(s.injectQueue) == 0 {
		r.done = true
	}
}

func nodeName(n *Node) string {
	if n == nil {
		return ""
	}
	return n.Name
}
