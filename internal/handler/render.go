package handler

import (
	"fmt"
	"io"
	"strings"
)

// Render writes a human-readable outline of the scene.
//
//	scene main (triggers: main, interval: 500ms, priority: None)
//	  [A, 0, 1] "attack"
//	    -> press, wait
func Render(w io.Writer, s *SceneHandler) error {
	if _, err := fmt.Fprintf(w, "scene %s (triggers: %s, interval: %s, priority: %s)\n",
		s.Name, s.TriggerDisplay(), s.Interval, s.Priority); err != nil {
		return err
	}
	for _, h := range s.Handlers {
		if err := renderHandler(w, h, 1); err != nil {
			return err
		}
	}
	return nil
}

func renderHandler(w io.Writer, h *StateHandler, depth int) error {
	indent := strings.Repeat("  ", depth)
	line := indent + h.Condition.String()
	if h.DebugName != "" {
		line += fmt.Sprintf(" %q", h.DebugName)
	}
	if len(h.InterruptStates) > 0 {
		line += " interrupt=[" + strings.Join(h.InterruptStates, ", ") + "]"
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}

	if h.IsLeaf() {
		names := make([]string, len(h.Operations))
		for i, op := range h.Operations {
			names[i] = op.Name()
		}
		_, err := fmt.Fprintf(w, "%s  -> %s\n", indent, strings.Join(names, ", "))
		return err
	}
	for _, sub := range h.SubStates {
		if err := renderHandler(w, sub, depth+1); err != nil {
			return err
		}
	}
	return nil
}
