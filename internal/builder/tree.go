package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Node is one entry of the scanned content tree: a folder (future menu) or a
// single story. Asset fields hold source file paths; admission into the
// store happens later.
type Node struct {
	Name     string
	Index    int // numeric "NN-" prefix, -1 when absent
	IsDir    bool
	Children []*Node

	Story     string // story audio source, leaves only
	ItemAudio string // announce audio played while highlighted
	ItemImage string // announce image shown while highlighted
}

var audioExtensions = map[string]bool{
	".mp3":  true,
	".ogg":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
}

// folderItemBase is the basename that attaches announce assets to the
// containing folder instead of a sibling story.
const folderItemBase = "0-item"

// ScanTree reads the content folder at root into a tree. Hidden entries and
// unrecognized file types are ignored; empty folders are dropped. The root
// node carries the folder's display name.
func ScanTree(root string) (*Node, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan content tree: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan content tree: %s is not a directory", root)
	}

	node, err := scanDir(root, filepath.Base(filepath.Clean(root)))
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, fmt.Errorf("scan content tree: %s contains no stories", root)
	}
	return node, nil
}

func scanDir(dir, rawName string) (*Node, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read content folder %s: %w", dir, err)
	}

	index, name := splitIndexPrefix(rawName)
	node := &Node{Name: cleanName(name), Index: index, IsDir: true}

	// Announce assets are matched to their owner by basename, so collect
	// stories first and item files second.
	type itemAsset struct {
		base  string
		path  string
		audio bool
	}
	var items []itemAsset
	byBase := map[string]*Node{}

	for _, entry := range entries {
		entryName := entry.Name()
		if strings.HasPrefix(entryName, ".") {
			continue
		}
		full := filepath.Join(dir, entryName)

		if entry.IsDir() {
			child, err := scanDir(full, entryName)
			if err != nil {
				return nil, err
			}
			if child != nil {
				child = collapseSingleStory(child)
				node.Children = append(node.Children, child)
				byBase[entryName] = child
			}
			continue
		}

		ext := strings.ToLower(filepath.Ext(entryName))
		base := strings.TrimSuffix(entryName, filepath.Ext(entryName))

		if base == folderItemBase || strings.HasSuffix(base, ".item") {
			owner := strings.TrimSuffix(base, ".item")
			switch {
			case audioExtensions[ext]:
				items = append(items, itemAsset{base: owner, path: full, audio: true})
			case imageExtensions[ext]:
				items = append(items, itemAsset{base: owner, path: full})
			}
			continue
		}

		if audioExtensions[ext] {
			childIndex, childName := splitIndexPrefix(base)
			child := &Node{
				Name:  cleanName(childName),
				Index: childIndex,
				Story: full,
			}
			node.Children = append(node.Children, child)
			byBase[base] = child
		}
	}

	for _, item := range items {
		target := node
		if item.base != folderItemBase {
			owner, ok := byBase[item.base]
			if !ok {
				// Announce asset without an owning story or folder.
				continue
			}
			target = owner
		}
		if item.audio {
			target.ItemAudio = item.path
		} else {
			target.ItemImage = item.path
		}
	}

	if len(node.Children) == 0 {
		return nil, nil
	}

	sortChildren(node.Children)
	return node, nil
}

// collapseSingleStory flattens a folder holding exactly one story and no
// announce assets of its own into that story, named after the folder. A
// "Cat/cat.mp3" layout becomes the story "Cat" rather than a one-entry menu.
func collapseSingleStory(dir *Node) *Node {
	if dir.ItemAudio != "" || dir.ItemImage != "" || len(dir.Children) != 1 {
		return dir
	}
	child := dir.Children[0]
	if child.IsDir || child.Story == "" {
		return dir
	}
	return &Node{
		Name:      dir.Name,
		Index:     dir.Index,
		Story:     child.Story,
		ItemAudio: child.ItemAudio,
		ItemImage: child.ItemImage,
	}
}

// sortChildren orders by numeric prefix when both sides carry one, indexed
// entries ahead of unindexed, then by cleaned name.
func sortChildren(children []*Node) {
	sort.SliceStable(children, func(i, j int) bool {
		a, b := children[i], children[j]
		switch {
		case a.Index >= 0 && b.Index >= 0 && a.Index != b.Index:
			return a.Index < b.Index
		case a.Index >= 0 && b.Index < 0:
			return true
		case a.Index < 0 && b.Index >= 0:
			return false
		default:
			return a.Name < b.Name
		}
	})
}

// splitIndexPrefix peels a leading "NN-" or "NN " ordering prefix.
func splitIndexPrefix(name string) (int, string) {
	for i := 0; i < len(name); i++ {
		if name[i] >= '0' && name[i] <= '9' {
			continue
		}
		if i > 0 && (name[i] == '-' || name[i] == '_' || name[i] == ' ') {
			index, err := strconv.Atoi(name[:i])
			if err == nil {
				return index, name[i+1:]
			}
		}
		break
	}
	return -1, name
}

// cleanName turns a file-system name into a display name.
func cleanName(name string) string {
	cleaned := strings.ReplaceAll(name, "_", " ")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return name
	}
	return cleaned
}
