package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"storyforge/internal/archive"
	"storyforge/internal/fileutil"
	"storyforge/internal/story"
)

// packInfo is the metadata.json document written at the extraction root.
type packInfo struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	NightMode   bool   `json:"nightMode,omitempty"`
}

// Extract unpacks the archive at archivePath into a content folder at
// outDir. The result round-trips: scanning and rebuilding it produces a pack
// with the same structure. outDir must not already exist.
func Extract(archivePath, outDir string) error {
	graph, assets, err := archive.Read(archivePath)
	if err != nil {
		return err
	}

	if _, err := os.Stat(outDir); err == nil {
		return fmt.Errorf("extract: %s already exists", outDir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	e := &extractor{graph: graph, assets: assets, titleCaser: cases.Title(language.Und)}

	info, err := json.MarshalIndent(packInfo{
		Title:       graph.Title,
		Description: graph.Description,
		NightMode:   graph.NightMode,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("extract: encode metadata: %w", err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(outDir, "metadata.json"), append(info, '\n'), 0o644); err != nil {
		return err
	}

	entry, ok := graph.Stage(graph.Entrypoint)
	if !ok {
		return fmt.Errorf("extract: graph has no entrypoint")
	}
	if err := e.writeOwnAssets(outDir, entry); err != nil {
		return err
	}
	return e.writeChildren(outDir, entry)
}

type extractor struct {
	graph      *story.Graph
	assets     map[story.AssetRef][]byte
	titleCaser cases.Caser
}

// writeChildren emits the options of node's choice action into dir, with
// numeric ordering prefixes so a rescan preserves the order.
func (e *extractor) writeChildren(dir string, node *story.StageNode) error {
	action := e.resolveAction(node)
	if action == nil {
		return nil
	}
	used := map[string]bool{}
	for i, optionID := range action.Options {
		child, ok := e.graph.Stage(optionID)
		if !ok {
			continue
		}
		name := e.uniqueName(used, child, i)
		prefixed := fmt.Sprintf("%02d-%s", i+1, name)

		switch child.Kind {
		case story.KindStory:
			if err := e.writeStory(dir, prefixed, child); err != nil {
				return err
			}
		case story.KindMenu, story.KindEntrypoint:
			// A chain of single-menu children folds into one folder.
			folded := e.fold(child)
			childDir := filepath.Join(dir, prefixed)
			if err := os.MkdirAll(childDir, 0o755); err != nil {
				return fmt.Errorf("extract: %w", err)
			}
			if err := e.writeOwnAssets(childDir, child); err != nil {
				return err
			}
			if err := e.writeChildren(childDir, folded); err != nil {
				return err
			}
		default:
			// Unknown shape: nothing extractable, keep going.
			continue
		}
	}
	return nil
}

// fold skips intermediate menus that offer exactly one submenu, so the
// extracted tree stays as shallow as the content allows.
func (e *extractor) fold(node *story.StageNode) *story.StageNode {
	for {
		action := e.resolveAction(node)
		if action == nil || len(action.Options) != 1 {
			return node
		}
		only, ok := e.graph.Stage(action.Options[0])
		if !ok || only.Kind != story.KindMenu {
			return node
		}
		node = only
	}
}

// resolveAction returns the choice action a navigable node owns, nil for
// leaves and malformed nodes.
func (e *extractor) resolveAction(node *story.StageNode) *story.ActionNode {
	if node.OK == nil {
		return nil
	}
	if node.Kind != story.KindMenu && node.Kind != story.KindEntrypoint {
		return nil
	}
	action, ok := e.graph.Action(node.OK.Action)
	if !ok {
		return nil
	}
	return action
}

func (e *extractor) writeStory(dir, prefixed string, node *story.StageNode) error {
	if node.StoryAudio != "" {
		if err := e.writeAsset(filepath.Join(dir, prefixed+refExt(node.StoryAudio)), node.StoryAudio); err != nil {
			return err
		}
	}
	if node.Audio != "" {
		if err := e.writeAsset(filepath.Join(dir, prefixed+".item"+refExt(node.Audio)), node.Audio); err != nil {
			return err
		}
	}
	if node.Image != "" {
		if err := e.writeAsset(filepath.Join(dir, prefixed+".item"+refExt(node.Image)), node.Image); err != nil {
			return err
		}
	}
	return nil
}

// writeOwnAssets re-emits a folder's announce pair as 0-item files.
func (e *extractor) writeOwnAssets(dir string, node *story.StageNode) error {
	if node.Audio != "" {
		if err := e.writeAsset(filepath.Join(dir, "0-item"+refExt(node.Audio)), node.Audio); err != nil {
			return err
		}
	}
	if node.Image != "" {
		if err := e.writeAsset(filepath.Join(dir, "0-item"+refExt(node.Image)), node.Image); err != nil {
			return err
		}
	}
	return nil
}

func (e *extractor) writeAsset(path string, ref story.AssetRef) error {
	payload, ok := e.assets[ref]
	if !ok {
		return fmt.Errorf("extract: asset %s missing from archive", ref)
	}
	return fileutil.WriteFileAtomic(path, payload, 0o644)
}

// uniqueName derives a file-system-safe display name, disambiguating
// collisions with a numeric suffix.
func (e *extractor) uniqueName(used map[string]bool, node *story.StageNode, position int) string {
	name := sanitizeName(node.Name)
	if name == "" {
		name = e.titleCaser.String(node.Kind.String()) + fmt.Sprintf(" %d", position+1)
	}
	candidate := name
	for n := 2; used[candidate]; n++ {
		candidate = fmt.Sprintf("%s (%d)", name, n)
	}
	used[candidate] = true
	return candidate
}

// sanitizeName strips path separators and control characters from a node
// name so it is safe as a file name component.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':':
			b.WriteRune(' ')
		case r < 0x20:
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// refExt returns the ref's extension including the dot.
func refExt(ref story.AssetRef) string {
	if idx := strings.LastIndexByte(string(ref), '.'); idx >= 0 {
		return string(ref)[idx:]
	}
	return ""
}
