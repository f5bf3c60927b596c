package archive

import (
	"fmt"

	"storyforge/internal/story"
)

// formatVersion identifies the document layout inside story.json.
const formatVersion = "v1"

type document struct {
	Format      string       `json:"format"`
	Version     int          `json:"version"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	NightMode   bool         `json:"nightMode"`
	Entrypoint  string       `json:"entrypoint"`
	StageNodes  []stageDoc   `json:"stageNodes"`
	ActionNodes []actionDoc  `json:"actionNodes"`
}

type stageDoc struct {
	UUID       string         `json:"uuid"`
	Type       string         `json:"type"`
	Name       string         `json:"name"`
	Image      string         `json:"image,omitempty"`
	Audio      string         `json:"audio,omitempty"`
	StoryAudio string         `json:"storyAudio,omitempty"`
	OK         *transitionDoc `json:"okTransition,omitempty"`
	Home       *transitionDoc `json:"homeTransition,omitempty"`
	Controls   controlsDoc    `json:"controlSettings"`
	PackID     string         `json:"packId,omitempty"`
}

type transitionDoc struct {
	ActionNode  string `json:"actionNode"`
	OptionIndex int    `json:"optionIndex"`
}

type controlsDoc struct {
	Wheel    bool `json:"wheel"`
	OK       bool `json:"ok"`
	Home     bool `json:"home"`
	Pause    bool `json:"pause"`
	Autoplay bool `json:"autoplay"`
}

type actionDoc struct {
	ID      string   `json:"id"`
	Options []string `json:"options"`
}

func documentFromGraph(graph *story.Graph) document {
	doc := document{
		Format:      formatVersion,
		Version:     1,
		Title:       graph.Title,
		Description: graph.Description,
		NightMode:   graph.NightMode,
		Entrypoint:  graph.Entrypoint,
	}
	for _, node := range graph.Stages() {
		doc.StageNodes = append(doc.StageNodes, stageDoc{
			UUID:       node.ID,
			Type:       node.Kind.String(),
			Name:       node.Name,
			Image:      assetEntry(node.Image),
			Audio:      assetEntry(node.Audio),
			StoryAudio: assetEntry(node.StoryAudio),
			OK:         transitionFrom(node.OK),
			Home:       transitionFrom(node.Home),
			Controls: controlsDoc{
				Wheel:    node.Controls.Wheel,
				OK:       node.Controls.OK,
				Home:     node.Controls.Home,
				Pause:    node.Controls.Pause,
				Autoplay: node.Controls.Autoplay,
			},
			PackID: node.PackID,
		})
	}
	for _, action := range graph.Actions() {
		doc.ActionNodes = append(doc.ActionNodes, actionDoc{
			ID:      action.ID,
			Options: append([]string(nil), action.Options...),
		})
	}
	return doc
}

func (doc document) toGraph() (*story.Graph, error) {
	if doc.Format != formatVersion {
		return nil, formatErrorf(documentName, "unsupported format %q", doc.Format)
	}
	graph := story.NewGraph(doc.Title, doc.Description)
	graph.NightMode = doc.NightMode

	for _, sd := range doc.StageNodes {
		kind, ok := story.ParseNodeKind(sd.Type)
		if !ok {
			return nil, formatErrorf(documentName, "stage %s: unknown type %q", sd.UUID, sd.Type)
		}
		if sd.UUID == "" {
			return nil, formatErrorf(documentName, "stage node without uuid")
		}
		image, err := parseAssetEntry(sd.Image)
		if err != nil {
			return nil, formatErrorf(documentName, "stage %s: %v", sd.UUID, err)
		}
		audio, err := parseAssetEntry(sd.Audio)
		if err != nil {
			return nil, formatErrorf(documentName, "stage %s: %v", sd.UUID, err)
		}
		storyAudio, err := parseAssetEntry(sd.StoryAudio)
		if err != nil {
			return nil, formatErrorf(documentName, "stage %s: %v", sd.UUID, err)
		}
		graph.AddStage(&story.StageNode{
			ID:         sd.UUID,
			Kind:       kind,
			Name:       sd.Name,
			Image:      image,
			Audio:      audio,
			StoryAudio: storyAudio,
			OK:         transitionTo(sd.OK),
			Home:       transitionTo(sd.Home),
			Controls: story.ControlSettings{
				Wheel:    sd.Controls.Wheel,
				OK:       sd.Controls.OK,
				Home:     sd.Controls.Home,
				Pause:    sd.Controls.Pause,
				Autoplay: sd.Controls.Autoplay,
			},
			PackID: sd.PackID,
		})
	}
	for _, ad := range doc.ActionNodes {
		if ad.ID == "" {
			return nil, formatErrorf(documentName, "action node without id")
		}
		graph.AddAction(&story.ActionNode{
			ID:      ad.ID,
			Options: append([]string(nil), ad.Options...),
		})
	}
	if doc.Entrypoint != "" {
		graph.Entrypoint = doc.Entrypoint
	}
	return graph, nil
}

func transitionFrom(t *story.Transition) *transitionDoc {
	if t == nil {
		return nil
	}
	return &transitionDoc{ActionNode: t.Action, OptionIndex: t.Option}
}

func transitionTo(t *transitionDoc) *story.Transition {
	if t == nil {
		return nil
	}
	return &story.Transition{Action: t.ActionNode, Option: t.OptionIndex}
}

// assetEntry renders a ref as its archive path under assets/.
func assetEntry(ref story.AssetRef) string {
	if ref == "" {
		return ""
	}
	return assetDir + "/" + string(ref)
}

// parseAssetEntry strips the assets/ prefix back off a document entry.
func parseAssetEntry(entry string) (story.AssetRef, error) {
	if entry == "" {
		return "", nil
	}
	const prefix = assetDir + "/"
	if len(entry) <= len(prefix) || entry[:len(prefix)] != prefix {
		return "", fmt.Errorf("asset entry %q not under %s", entry, assetDir)
	}
	return story.AssetRef(entry[len(prefix):]), nil
}
