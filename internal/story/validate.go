package story

import (
	"fmt"
	"strings"
)

// ValidationError aggregates every structural problem found in one pass so
// callers can report them all at once.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid graph: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid graph: %d problems: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// Validate checks the structural invariants every compiler depends on. It
// walks the whole graph and returns a *ValidationError listing all
// violations, or nil when the graph is sound.
func (g *Graph) Validate() error {
	var problems []string
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	entry, hasEntry := g.stages[g.Entrypoint]
	switch {
	case g.Entrypoint == "":
		report("no entrypoint")
	case !hasEntry:
		report("entrypoint %s is not a stage node", g.Entrypoint)
	case entry.Kind != KindEntrypoint:
		report("entrypoint %s has kind %s", g.Entrypoint, entry.Kind)
	}
	for _, id := range g.stageOrder {
		node := g.stages[id]
		if node.Kind == KindEntrypoint && id != g.Entrypoint {
			report("stage %s: second entrypoint", id)
		}
	}

	// Action nodes: non-empty, options resolve, entrypoint never an option.
	for _, id := range g.actionOrder {
		action := g.actions[id]
		if len(action.Options) == 0 {
			report("action %s: empty option list", id)
		}
		for i, option := range action.Options {
			target, ok := g.stages[option]
			if !ok {
				report("action %s: option %d references missing stage %s", id, i, option)
				continue
			}
			if target.ID == g.Entrypoint {
				report("action %s: option %d routes into the entrypoint", id, i)
			}
		}
	}

	// Stage transitions resolve and restore a valid wheel position.
	checkTransition := func(stageID, label string, tr *Transition) {
		if tr == nil {
			return
		}
		action, ok := g.actions[tr.Action]
		if !ok {
			report("stage %s: %s transition references missing action %s", stageID, label, tr.Action)
			return
		}
		if tr.Option < 0 || tr.Option >= len(action.Options) {
			report("stage %s: %s transition option %d out of range for action %s", stageID, label, tr.Option, tr.Action)
		}
	}
	for _, id := range g.stageOrder {
		node := g.stages[id]
		checkTransition(id, "ok", node.OK)
		checkTransition(id, "home", node.Home)
		switch node.Kind {
		case KindEntrypoint, KindMenu:
			if node.OK == nil {
				report("stage %s: %s node has no ok transition", id, node.Kind)
			}
		case KindStory:
			if node.StoryAudio == "" {
				report("stage %s: story node has no playback audio", id)
			}
		case KindEmbeddedPack:
			if node.PackID == "" {
				report("stage %s: embedded pack node names no pack", id)
			}
		}
	}

	// Each action is owned by exactly one navigable node's ok edge.
	owners := make(map[string][]string, len(g.actions))
	for _, id := range g.stageOrder {
		node := g.stages[id]
		if node.OK == nil {
			continue
		}
		if node.Kind == KindEntrypoint || node.Kind == KindMenu {
			owners[node.OK.Action] = append(owners[node.OK.Action], id)
		}
	}
	for _, id := range g.actionOrder {
		switch n := len(owners[id]); {
		case n == 0:
			report("action %s: no owning choice edge", id)
		case n > 1:
			report("action %s: owned by %d stages (%s)", id, n, strings.Join(owners[id], ", "))
		}
	}

	// Choice edges form a DAG; every node is reachable from the entrypoint.
	if hasEntry && entry.Kind == KindEntrypoint {
		const (
			visiting = 1
			done     = 2
		)
		state := make(map[string]int, len(g.stages))
		var walk func(id string)
		walk = func(id string) {
			switch state[id] {
			case visiting:
				report("stage %s: choice cycle", id)
				return
			case done:
				return
			}
			state[id] = visiting
			node := g.stages[id]
			if node != nil && node.OK != nil && (node.Kind == KindEntrypoint || node.Kind == KindMenu) {
				if action, ok := g.actions[node.OK.Action]; ok {
					for _, option := range action.Options {
						walk(option)
					}
				}
			}
			state[id] = done
		}
		walk(g.Entrypoint)

		for _, id := range g.stageOrder {
			if state[id] == 0 {
				report("stage %s: unreachable from entrypoint", id)
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}
