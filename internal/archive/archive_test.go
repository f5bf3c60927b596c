package archive

import (
	"archive/zip"
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"storyforge/internal/story"
)

// mapSource serves asset payloads from memory.
type mapSource map[string][]byte

func (m mapSource) ReadNamed(name string) ([]byte, error) {
	payload, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("no asset %s", name)
	}
	return payload, nil
}

func namedAsset(src mapSource, payload []byte, ext string) story.AssetRef {
	sum := sha1.Sum(payload)
	name := hex.EncodeToString(sum[:]) + "." + ext
	src[name] = payload
	return story.AssetRef(name)
}

// packFixture builds a two-story graph with in-memory assets.
func packFixture(t *testing.T) (*story.Graph, mapSource) {
	t.Helper()
	src := mapSource{}
	cover := namedAsset(src, []byte("cover-png-bytes"), "png")
	announce := namedAsset(src, []byte("announce-mp3"), "mp3")

	g := story.NewGraph("Bedtime", "two tales")
	g.NightMode = true

	entryAction := &story.ActionNode{ID: story.NewID()}
	entry := &story.StageNode{
		ID:       story.NewID(),
		Kind:     story.KindEntrypoint,
		Name:     "Bedtime",
		Image:    cover,
		Audio:    announce,
		OK:       &story.Transition{Action: entryAction.ID},
		Controls: story.MenuControls(),
	}
	g.AddStage(entry)
	g.AddAction(entryAction)

	for i, name := range []string{"Fox", "Owl"} {
		playback := namedAsset(src, []byte("story-"+name), "mp3")
		node := &story.StageNode{
			ID:         story.NewID(),
			Kind:       story.KindStory,
			Name:       name,
			Audio:      announce,
			StoryAudio: playback,
			OK:         &story.Transition{Action: entryAction.ID, Option: i},
			Home:       &story.Transition{Action: entryAction.ID},
			Controls:   story.StoryControls(true),
		}
		entryAction.Options = append(entryAction.Options, node.ID)
		g.AddStage(node)
	}
	return g, src
}

func TestWriteReadRoundTrip(t *testing.T) {
	graph, src := packFixture(t)
	path := filepath.Join(t.TempDir(), "bedtime.zip")

	if err := Write(path, graph, src); err != nil {
		t.Fatal(err)
	}

	got, assets, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Bedtime" || got.Description != "two tales" || !got.NightMode {
		t.Fatalf("metadata = %q/%q night=%v", got.Title, got.Description, got.NightMode)
	}
	if got.StageCount() != graph.StageCount() || got.ActionCount() != graph.ActionCount() {
		t.Fatalf("counts = %d/%d", got.StageCount(), got.ActionCount())
	}

	for _, want := range graph.Stages() {
		node, ok := got.Stage(want.ID)
		if !ok {
			t.Fatalf("stage %s lost", want.ID)
		}
		if node.Kind != want.Kind || node.Image != want.Image ||
			node.Audio != want.Audio || node.StoryAudio != want.StoryAudio {
			t.Fatalf("stage %s = %+v, want %+v", want.ID, node, want)
		}
		if node.Controls != want.Controls {
			t.Fatalf("stage %s controls = %+v, want %+v", want.ID, node.Controls, want.Controls)
		}
		if want.OK != nil && (node.OK == nil || *node.OK != *want.OK) {
			t.Fatalf("stage %s ok transition = %+v, want %+v", want.ID, node.OK, want.OK)
		}
	}

	images, audio := graph.AssetRefs()
	for _, ref := range append(images, audio...) {
		payload, ok := assets[ref]
		if !ok {
			t.Fatalf("asset %s lost", ref)
		}
		if !bytes.Equal(payload, src[string(ref)]) {
			t.Fatalf("asset %s payload changed", ref)
		}
	}
}

func TestWriteIsDeterministic(t *testing.T) {
	graph, src := packFixture(t)
	dir := t.TempDir()
	first := filepath.Join(dir, "a.zip")
	second := filepath.Join(dir, "b.zip")

	if err := Write(first, graph, src); err != nil {
		t.Fatal(err)
	}
	if err := Write(second, graph, src); err != nil {
		t.Fatal(err)
	}

	a, err := os.ReadFile(first)
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(second)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("identical packs must serialize to identical archives")
	}
}

func TestWriteIncludesThumbnail(t *testing.T) {
	graph, src := packFixture(t)
	path := filepath.Join(t.TempDir(), "pack.zip")
	if err := Write(path, graph, src); err != nil {
		t.Fatal(err)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	for _, file := range zr.File {
		if file.Name == thumbnailName {
			return
		}
	}
	t.Fatal("thumbnail.png missing")
}

func TestWriteRejectsInvalidGraph(t *testing.T) {
	graph := story.NewGraph("broken", "")
	err := Write(filepath.Join(t.TempDir(), "x.zip"), graph, mapSource{})
	var verr *story.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestReadRejectsNonArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.zip")
	if err := os.WriteFile(path, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := Read(path)
	var ferr *FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("err = %v, want format error", err)
	}
}

func TestReadRejectsMissingDocument(t *testing.T) {
	path := writeRawArchive(t, map[string][]byte{"readme.txt": []byte("hello")})
	_, _, err := Read(path)
	var ferr *FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("err = %v, want format error", err)
	}
}

func TestReadRejectsBadDocumentJSON(t *testing.T) {
	path := writeRawArchive(t, map[string][]byte{documentName: []byte("{not json")})
	_, _, err := Read(path)
	var ferr *FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("err = %v, want format error", err)
	}
}

func TestReadRejectsMissingAsset(t *testing.T) {
	graph, src := packFixture(t)
	path := filepath.Join(t.TempDir(), "pack.zip")
	if err := Write(path, graph, src); err != nil {
		t.Fatal(err)
	}

	// Rebuild the archive without its audio entries.
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	pruned := map[string][]byte{}
	for _, file := range zr.File {
		if filepath.Ext(file.Name) == ".mp3" {
			continue
		}
		payload, err := readEntry(file)
		if err != nil {
			t.Fatal(err)
		}
		pruned[file.Name] = payload
	}
	zr.Close()
	truncated := writeRawArchive(t, pruned)

	_, _, err = Read(truncated)
	var ferr *FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("err = %v, want format error", err)
	}
}

func TestReadRejectsBogusAssetName(t *testing.T) {
	doc := []byte(`{"format":"v1","version":1,"title":"t","stageNodes":[],"actionNodes":[]}`)
	path := writeRawArchive(t, map[string][]byte{
		documentName:        doc,
		assetDir + "/x.mp3": []byte("payload"),
	})
	_, _, err := Read(path)
	var ferr *FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("err = %v, want format error", err)
	}
}

func writeRawArchive(t *testing.T, entries map[string][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raw.zip")
	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(out)
	for name, payload := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(payload); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}
