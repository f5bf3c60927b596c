package builder

import (
	"fmt"

	"storyforge/internal/asset"
	"storyforge/internal/story"
)

// Metadata carries the pack-level fields the graph is stamped with.
type Metadata struct {
	Title       string
	Description string
	NightMode   bool
}

// CollectAssets lists every source file the tree references as admission
// requests, depth first, deduplicated, with opts applied to audio. The
// caller admits them (usually through Store.AdmitBatch) and hands the
// resulting refs to Build.
func CollectAssets(tree *Node, opts asset.Options) []asset.Request {
	var requests []asset.Request
	seen := map[string]bool{}
	add := func(path string, kind asset.Kind, withOpts bool) {
		if path == "" || seen[path] {
			return
		}
		seen[path] = true
		req := asset.Request{Path: path, Kind: kind}
		if withOpts {
			req.Options = opts
		}
		requests = append(requests, req)
	}

	var walk func(n *Node)
	walk = func(n *Node) {
		add(n.ItemImage, asset.KindImage, false)
		add(n.ItemAudio, asset.KindAudio, false)
		add(n.Story, asset.KindAudio, true)
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(tree)
	return requests
}

// Build transforms the scanned tree into a validated navigation graph.
// assets maps every source path the tree references to its admitted ref.
func Build(tree *Node, meta Metadata, assets map[string]story.AssetRef) (*story.Graph, error) {
	if tree == nil || !tree.IsDir {
		return nil, fmt.Errorf("build graph: root must be a folder")
	}
	title := meta.Title
	if title == "" {
		title = tree.Name
	}
	graph := story.NewGraph(title, meta.Description)
	graph.NightMode = meta.NightMode

	lookup := func(path string) (story.AssetRef, error) {
		if path == "" {
			return "", nil
		}
		ref, ok := assets[path]
		if !ok || ref == "" {
			return "", fmt.Errorf("build graph: no admitted asset for %s", path)
		}
		return ref, nil
	}

	entryAction := &story.ActionNode{ID: story.NewID()}
	entryImage, err := lookup(tree.ItemImage)
	if err != nil {
		return nil, err
	}
	entryAudio, err := lookup(tree.ItemAudio)
	if err != nil {
		return nil, err
	}
	entry := &story.StageNode{
		ID:       story.NewID(),
		Kind:     story.KindEntrypoint,
		Name:     title,
		Image:    entryImage,
		Audio:    entryAudio,
		OK:       &story.Transition{Action: entryAction.ID},
		Controls: story.MenuControls(),
	}
	graph.AddStage(entry)
	graph.AddAction(entryAction)

	home := &story.Transition{Action: entryAction.ID}

	var buildChildren func(parent *Node, parentAction *story.ActionNode) error
	buildChildren = func(parent *Node, parentAction *story.ActionNode) error {
		for i, child := range parent.Children {
			position := i
			image, err := lookup(child.ItemImage)
			if err != nil {
				return err
			}
			audio, err := lookup(child.ItemAudio)
			if err != nil {
				return err
			}

			if child.IsDir {
				menuAction := &story.ActionNode{ID: story.NewID()}
				menu := &story.StageNode{
					ID:       story.NewID(),
					Kind:     story.KindMenu,
					Name:     child.Name,
					Image:    image,
					Audio:    audio,
					OK:       &story.Transition{Action: menuAction.ID},
					Home:     &story.Transition{Action: home.Action},
					Controls: story.MenuControls(),
				}
				graph.AddStage(menu)
				graph.AddAction(menuAction)
				parentAction.Options = append(parentAction.Options, menu.ID)
				if err := buildChildren(child, menuAction); err != nil {
					return err
				}
				continue
			}

			storyAudio, err := lookup(child.Story)
			if err != nil {
				return err
			}
			node := &story.StageNode{
				ID:         story.NewID(),
				Kind:       story.KindStory,
				Name:       child.Name,
				Image:      image,
				Audio:      audio,
				StoryAudio: storyAudio,
				// OK returns to the owning menu with the wheel back on this
				// story; home restarts from the entrypoint.
				OK:       &story.Transition{Action: parentAction.ID, Option: position},
				Home:     &story.Transition{Action: home.Action},
				Controls: story.StoryControls(meta.NightMode),
			}
			graph.AddStage(node)
			parentAction.Options = append(parentAction.Options, node.ID)
		}
		return nil
	}

	if err := buildChildren(tree, entryAction); err != nil {
		return nil, err
	}

	if err := graph.Validate(); err != nil {
		return nil, err
	}
	return graph, nil
}
