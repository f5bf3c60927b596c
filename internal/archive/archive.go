package archive

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/klauspost/compress/flate"

	"storyforge/internal/asset"
	"storyforge/internal/fileutil"
	"storyforge/internal/story"
)

// Archive entry names.
const (
	documentName  = "story.json"
	thumbnailName = "thumbnail.png"
	assetDir      = "assets"
)

// flateLevel is fixed: compression level is part of the deterministic output.
const flateLevel = flate.BestCompression

// AssetSource provides canonical asset bytes by object name
// ("<digest>.<ext>"). *asset.Store satisfies it.
type AssetSource interface {
	ReadNamed(name string) ([]byte, error)
}

// Write serializes the graph and every asset it references into a portable
// archive at path. The graph is validated first; output is deterministic
// (fixed entry order, zeroed timestamps, fixed compression level).
func Write(path string, graph *story.Graph, src AssetSource) error {
	if err := graph.Validate(); err != nil {
		return err
	}

	doc := documentFromGraph(graph)
	docBytes, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", documentName, err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flateLevel)
	})

	addEntry := func(name string, payload []byte) error {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("create archive entry %s: %w", name, err)
		}
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("write archive entry %s: %w", name, err)
		}
		return nil
	}

	if err := addEntry(documentName, docBytes); err != nil {
		return err
	}

	// The entrypoint's image doubles as the pack thumbnail.
	if entry, ok := graph.Stage(graph.Entrypoint); ok && entry.Image != "" {
		thumb, err := src.ReadNamed(string(entry.Image))
		if err != nil {
			return err
		}
		if err := addEntry(thumbnailName, thumb); err != nil {
			return err
		}
	}

	images, audio := graph.AssetRefs()
	names := make([]string, 0, len(images)+len(audio))
	for _, ref := range images {
		names = append(names, string(ref))
	}
	for _, ref := range audio {
		names = append(names, string(ref))
	}
	sort.Strings(names)
	for _, name := range names {
		payload, err := src.ReadNamed(name)
		if err != nil {
			return err
		}
		if err := addEntry(assetDir+"/"+name, payload); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// Read parses a portable archive back into a graph and its asset payloads.
// Container or document problems yield a *FormatError; a structurally
// unsound graph yields a *story.ValidationError.
func Read(path string) (*story.Graph, map[story.AssetRef][]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, &FormatError{Reason: fmt.Sprintf("open %s: %v", path, err)}
	}
	defer zr.Close()

	var doc *document
	assets := map[story.AssetRef][]byte{}

	for _, file := range zr.File {
		switch {
		case file.Name == documentName:
			payload, err := readEntry(file)
			if err != nil {
				return nil, nil, err
			}
			var parsed document
			if err := json.Unmarshal(payload, &parsed); err != nil {
				return nil, nil, formatErrorf(documentName, "invalid document: %v", err)
			}
			doc = &parsed
		case strings.HasPrefix(file.Name, assetDir+"/"):
			name := strings.TrimPrefix(file.Name, assetDir+"/")
			if _, err := asset.ParseRefName(name); err != nil {
				return nil, nil, formatErrorf(file.Name, "invalid asset name: %v", err)
			}
			payload, err := readEntry(file)
			if err != nil {
				return nil, nil, err
			}
			assets[story.AssetRef(name)] = payload
		}
	}

	if doc == nil {
		return nil, nil, formatErrorf(documentName, "missing")
	}
	graph, err := doc.toGraph()
	if err != nil {
		return nil, nil, err
	}

	// Every referenced asset must travel inside the archive.
	images, audio := graph.AssetRefs()
	for _, ref := range append(images, audio...) {
		if _, ok := assets[ref]; !ok {
			return nil, nil, formatErrorf(assetDir+"/"+string(ref), "referenced asset missing from archive")
		}
	}

	if err := graph.Validate(); err != nil {
		return nil, nil, err
	}
	return graph, assets, nil
}

func readEntry(file *zip.File) ([]byte, error) {
	r, err := file.Open()
	if err != nil {
		return nil, formatErrorf(file.Name, "open entry: %v", err)
	}
	defer r.Close()
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, formatErrorf(file.Name, "read entry: %v", err)
	}
	return payload, nil
}
