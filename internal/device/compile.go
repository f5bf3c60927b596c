package device

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"storyforge/internal/imaging"
	"storyforge/internal/story"
)

// Cipher schemes. SchemeV3 is the device-unique-key wire form; without the
// device's key material compilation falls back to the fixed-key scheme, so
// both values produce the same bundle today.
const (
	SchemeV2 = "v2"
	SchemeV3 = "v3"
)

// AssetSource provides canonical asset bytes by object name
// ("<digest>.<ext>"). *asset.Store satisfies it.
type AssetSource interface {
	ReadNamed(name string) ([]byte, error)
}

// Options control one compilation.
type Options struct {
	// PackUUID is the pack identity. Zero mints a fresh one; supply it to
	// make the bundle fully reproducible.
	PackUUID uuid.UUID
	// CipherScheme is SchemeV2 or SchemeV3.
	CipherScheme string
	// StoryVersion stamps the ni header; zero means 1.
	StoryVersion int
}

// Bundle is a compiled device pack: identity plus every file keyed by its
// path relative to the pack's content directory.
type Bundle struct {
	UUID  uuid.UUID
	Ref   string
	Meta  Metadata
	Files map[string][]byte
}

// PackRef derives the pack's directory name: upper-case hex of the UUID's
// low four bytes.
func PackRef(id uuid.UUID) string {
	return strings.ToUpper(fmt.Sprintf("%x", id[12:16]))
}

// Compile lowers a validated graph into the device-native pack layout.
// Output bytes depend only on the graph, the asset digests, and the options.
func Compile(graph *story.Graph, src AssetSource, opts Options) (*Bundle, error) {
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	switch opts.CipherScheme {
	case "", SchemeV2, SchemeV3:
	default:
		return nil, fmt.Errorf("compile pack: unknown cipher scheme %q", opts.CipherScheme)
	}
	for _, node := range graph.Stages() {
		if node.Kind == story.KindEmbeddedPack {
			return nil, fmt.Errorf("compile pack: embedded pack node %s must be inlined first", node.ID)
		}
	}

	scheme := opts.CipherScheme
	if scheme == "" {
		scheme = SchemeV2
	}
	packUUID := opts.PackUUID
	if packUUID == uuid.Nil {
		packUUID = uuid.New()
	}
	storyVersion := opts.StoryVersion
	if storyVersion <= 0 {
		storyVersion = 1
	}

	order := newIndexOrder(graph)

	var (
		imageIndex = map[story.AssetRef]int32{}
		imageRefs  []story.AssetRef
		soundIndex = map[story.AssetRef]int32{}
		soundRefs  []story.AssetRef
	)
	internImage := func(ref story.AssetRef) int32 {
		if ref == "" {
			return -1
		}
		if idx, ok := imageIndex[ref]; ok {
			return idx
		}
		idx := int32(len(imageRefs))
		imageIndex[ref] = idx
		imageRefs = append(imageRefs, ref)
		return idx
	}
	internSound := func(ref story.AssetRef) int32 {
		if ref == "" {
			return -1
		}
		if idx, ok := soundIndex[ref]; ok {
			return idx
		}
		idx := int32(len(soundRefs))
		soundIndex[ref] = idx
		soundRefs = append(soundRefs, ref)
		return idx
	}

	records := make([]nodeRecord, 0, len(order.stages))
	for _, node := range order.stages {
		rec := nodeRecord{
			Image: internImage(node.Image),
			Audio: internSound(playbackAudio(node)),
			OK:    order.transitionTriple(node.OK),
			Home:  order.transitionTriple(node.Home),
			Controls: [5]int16{
				flag(node.Controls.Wheel),
				flag(node.Controls.OK),
				flag(node.Controls.Home),
				flag(node.Controls.Pause),
				flag(node.Controls.Autoplay),
			},
		}
		records = append(records, rec)
	}

	files := map[string][]byte{
		"ni": encodeNI(storyVersion, records, len(imageRefs), len(soundRefs)),
		"li": encodeLI(order.lists()),
		"ri": encodeResourceIndex(len(imageRefs)),
		"si": encodeResourceIndex(len(soundRefs)),
		"bt": encodeBT(),
	}

	for i, ref := range imageRefs {
		raw, err := src.ReadNamed(string(ref))
		if err != nil {
			return nil, err
		}
		img, err := imaging.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("compile pack: image %s: %w", ref, err)
		}
		bmp, err := imaging.DeviceBMP(img)
		if err != nil {
			return nil, fmt.Errorf("compile pack: image %s: %w", ref, err)
		}
		files[resourcePath("rf", i)] = EncryptResource(bmp)
	}
	for i, ref := range soundRefs {
		raw, err := src.ReadNamed(string(ref))
		if err != nil {
			return nil, err
		}
		files[resourcePath("sf", i)] = EncryptResource(raw)
	}

	meta := Metadata{
		Title:        graph.Title,
		Description:  graph.Description,
		UUID:         packUUID.String(),
		Ref:          PackRef(packUUID),
		PackType:     packType,
		CipherScheme: scheme,
		Version:      storyVersion,
		StageCount:   len(records),
		ImageCount:   len(imageRefs),
		SoundCount:   len(soundRefs),
	}
	files["md"] = encodeMD(meta)

	return &Bundle{
		UUID:  packUUID,
		Ref:   meta.Ref,
		Meta:  meta,
		Files: files,
	}, nil
}

// playbackAudio picks the sound a stage record points at: stories play
// their story track, navigable nodes their announce track.
func playbackAudio(node *story.StageNode) story.AssetRef {
	if node.Kind == story.KindStory && node.StoryAudio != "" {
		return node.StoryAudio
	}
	return node.Audio
}

func flag(b bool) int16 {
	if b {
		return 1
	}
	return 0
}

// indexOrder assigns dense stage and action indices by an entrypoint-first
// walk over choice edges, mirroring how the firmware discovers nodes.
type indexOrder struct {
	graph       *story.Graph
	stages      []*story.StageNode
	stageIndex  map[string]int32
	actionOrder []*story.ActionNode
	actionIndex map[string]int32
}

func newIndexOrder(graph *story.Graph) *indexOrder {
	o := &indexOrder{
		graph:       graph,
		stageIndex:  map[string]int32{},
		actionIndex: map[string]int32{},
	}
	o.visit(graph.Entrypoint)
	return o
}

func (o *indexOrder) visit(stageID string) {
	if _, seen := o.stageIndex[stageID]; seen {
		return
	}
	node, ok := o.graph.Stage(stageID)
	if !ok {
		return
	}
	o.stageIndex[stageID] = int32(len(o.stages))
	o.stages = append(o.stages, node)

	if node.OK == nil {
		return
	}
	if node.Kind != story.KindEntrypoint && node.Kind != story.KindMenu {
		return
	}
	action, ok := o.graph.Action(node.OK.Action)
	if !ok {
		return
	}
	if _, seen := o.actionIndex[action.ID]; !seen {
		o.actionIndex[action.ID] = int32(len(o.actionOrder))
		o.actionOrder = append(o.actionOrder, action)
	}
	for _, option := range action.Options {
		o.visit(option)
	}
}

// transitionTriple encodes a transition as (action index, option count,
// selected option), or the all -1 triple when absent.
func (o *indexOrder) transitionTriple(t *story.Transition) [3]int32 {
	if t == nil {
		return noTransition
	}
	idx, ok := o.actionIndex[t.Action]
	if !ok {
		return noTransition
	}
	action, _ := o.graph.Action(t.Action)
	return [3]int32{idx, int32(len(action.Options)), int32(t.Option)}
}

// lists renders every action's option stage indices in action index order.
func (o *indexOrder) lists() [][]int32 {
	out := make([][]int32, len(o.actionOrder))
	for i, action := range o.actionOrder {
		list := make([]int32, 0, len(action.Options))
		for _, option := range action.Options {
			list = append(list, o.stageIndex[option])
		}
		out[i] = list
	}
	return out
}
