package story

import (
	"github.com/google/uuid"
)

// NodeKind distinguishes the stage node variants. Compiler behavior for each
// variant is fully disjoint; every consumer switches exhaustively.
type NodeKind int

const (
	KindEntrypoint NodeKind = iota
	KindMenu
	KindStory
	KindEmbeddedPack
)

func (k NodeKind) String() string {
	switch k {
	case KindEntrypoint:
		return "entrypoint"
	case KindMenu:
		return "menu"
	case KindStory:
		return "story"
	case KindEmbeddedPack:
		return "pack"
	default:
		return "unknown"
	}
}

// ParseNodeKind maps the archive document's type string to a NodeKind.
func ParseNodeKind(s string) (NodeKind, bool) {
	switch s {
	case "entrypoint", "cover":
		return KindEntrypoint, true
	case "menu":
		return KindMenu, true
	case "story":
		return KindStory, true
	case "pack":
		return KindEmbeddedPack, true
	default:
		return 0, false
	}
}

// AssetRef names a canonical asset by digest plus extension
// ("<sha1hex>.mp3"). Empty means no asset.
type AssetRef string

// ControlSettings lists the hardware controls enabled on a stage.
type ControlSettings struct {
	Wheel    bool
	OK       bool
	Home     bool
	Pause    bool
	Autoplay bool
}

// MenuControls are the defaults for navigable screens.
func MenuControls() ControlSettings {
	return ControlSettings{Wheel: true, OK: true, Home: true}
}

// StoryControls are the defaults for playback screens.
func StoryControls(nightMode bool) ControlSettings {
	return ControlSettings{OK: true, Home: true, Pause: true, Autoplay: nightMode}
}

// Transition routes a hardware event to an action node, restoring the given
// option index as the wheel position.
type Transition struct {
	Action string
	Option int
}

// StageNode is one screen of the device.
type StageNode struct {
	ID   string
	Kind NodeKind
	Name string

	Image      AssetRef
	Audio      AssetRef // announce audio played while the node is highlighted
	StoryAudio AssetRef // playback audio, story nodes only

	OK   *Transition
	Home *Transition

	Controls ControlSettings

	// PackID references another compiled pack, embedded-pack nodes only.
	PackID string
}

// ActionNode is an ordered, non-empty choice list of stage node IDs.
type ActionNode struct {
	ID      string
	Options []string
}

// Graph is the full navigation graph: the entrypoint plus every stage and
// action node, with insertion order retained for deterministic serialization.
type Graph struct {
	Title       string
	Description string
	NightMode   bool

	Entrypoint string

	stages      map[string]*StageNode
	actions     map[string]*ActionNode
	stageOrder  []string
	actionOrder []string
}

// NewGraph creates an empty graph with the given metadata.
func NewGraph(title, description string) *Graph {
	return &Graph{
		Title:       title,
		Description: description,
		stages:      make(map[string]*StageNode),
		actions:     make(map[string]*ActionNode),
	}
}

// NewID mints a stable unique node identifier.
func NewID() string {
	return uuid.NewString()
}

// AddStage registers a stage node. The first entrypoint added becomes the
// graph's entrypoint.
func (g *Graph) AddStage(node *StageNode) {
	if _, exists := g.stages[node.ID]; !exists {
		g.stageOrder = append(g.stageOrder, node.ID)
	}
	g.stages[node.ID] = node
	if node.Kind == KindEntrypoint && g.Entrypoint == "" {
		g.Entrypoint = node.ID
	}
}

// AddAction registers an action node.
func (g *Graph) AddAction(node *ActionNode) {
	if _, exists := g.actions[node.ID]; !exists {
		g.actionOrder = append(g.actionOrder, node.ID)
	}
	g.actions[node.ID] = node
}

// Stage returns the stage node with the given ID.
func (g *Graph) Stage(id string) (*StageNode, bool) {
	node, ok := g.stages[id]
	return node, ok
}

// Action returns the action node with the given ID.
func (g *Graph) Action(id string) (*ActionNode, bool) {
	node, ok := g.actions[id]
	return node, ok
}

// Stages returns stage nodes in insertion order.
func (g *Graph) Stages() []*StageNode {
	out := make([]*StageNode, 0, len(g.stageOrder))
	for _, id := range g.stageOrder {
		out = append(out, g.stages[id])
	}
	return out
}

// Actions returns action nodes in insertion order.
func (g *Graph) Actions() []*ActionNode {
	out := make([]*ActionNode, 0, len(g.actionOrder))
	for _, id := range g.actionOrder {
		out = append(out, g.actions[id])
	}
	return out
}

// StageCount returns the number of stage nodes.
func (g *Graph) StageCount() int { return len(g.stageOrder) }

// ActionCount returns the number of action nodes.
func (g *Graph) ActionCount() int { return len(g.actionOrder) }

// AssetRefs returns every asset reference in the graph, images first then
// audio, deduplicated, in stage insertion order.
func (g *Graph) AssetRefs() (images, audio []AssetRef) {
	seenImage := map[AssetRef]struct{}{}
	seenAudio := map[AssetRef]struct{}{}
	for _, id := range g.stageOrder {
		node := g.stages[id]
		if node.Image != "" {
			if _, ok := seenImage[node.Image]; !ok {
				seenImage[node.Image] = struct{}{}
				images = append(images, node.Image)
			}
		}
		for _, ref := range []AssetRef{node.Audio, node.StoryAudio} {
			if ref == "" {
				continue
			}
			if _, ok := seenAudio[ref]; !ok {
				seenAudio[ref] = struct{}{}
				audio = append(audio, ref)
			}
		}
	}
	return images, audio
}

// Embed imports every node of sub into g, demoting sub's entrypoint to a
// menu so the embedded pack can hang off one of g's choice lists. It returns
// the ID of the demoted entrypoint. Node IDs are assumed unique across packs
// (they are minted UUIDs).
func (g *Graph) Embed(sub *Graph) (string, error) {
	entry, ok := sub.Stage(sub.Entrypoint)
	if !ok {
		return "", &ValidationError{Problems: []string{"embedded graph has no entrypoint"}}
	}
	for _, node := range sub.Stages() {
		copied := *node
		if copied.ID == sub.Entrypoint {
			copied.Kind = KindMenu
		}
		g.AddStage(&copied)
	}
	for _, action := range sub.Actions() {
		copied := *action
		copied.Options = append([]string(nil), action.Options...)
		g.AddAction(&copied)
	}
	return entry.ID, nil
}
