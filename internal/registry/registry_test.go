package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"storyforge/internal/device"
)

func testBundle(t *testing.T, title string) *device.Bundle {
	t.Helper()
	id := uuid.New()
	ref := device.PackRef(id)
	meta := device.Metadata{Title: title, UUID: id.String(), Ref: ref}
	return &device.Bundle{
		UUID: id,
		Ref:  ref,
		Meta: meta,
		Files: map[string][]byte{
			"ni":              make([]byte, 556),
			"li":              {1, 0, 0, 0},
			"ri":              []byte(`000\00000000`),
			"si":              []byte(`000\00000000`),
			"bt":              {1, 0, 0, 0},
			"md":              mdPayload(meta),
			"rf/000/00000000": {0xAA, 0xBB},
			"sf/000/00000000": {0xCC, 0xDD},
		},
	}
}

func mdPayload(meta device.Metadata) []byte {
	return []byte("title: " + meta.Title + "\nuuid: " + meta.UUID + "\nref: " + meta.Ref + "\n")
}

func TestInstallAndList(t *testing.T) {
	root := t.TempDir()
	mgr := New(root, nil)
	bundle := testBundle(t, "Bedtime")

	if err := mgr.Install(bundle); err != nil {
		t.Fatal(err)
	}

	// Content lands under .content/<REF>/ with nested resource dirs.
	for _, name := range []string{"ni", "md", "rf/000/00000000", "sf/000/00000000"} {
		path := filepath.Join(root, ".content", bundle.Ref, filepath.FromSlash(name))
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}

	pi, err := os.ReadFile(filepath.Join(root, ".pi"))
	if err != nil {
		t.Fatal(err)
	}
	if len(pi) != 16 {
		t.Fatalf(".pi length = %d", len(pi))
	}
	var got uuid.UUID
	copy(got[:], pi)
	if got != bundle.UUID {
		t.Fatalf(".pi holds %s, want %s", got, bundle.UUID)
	}

	packs, err := mgr.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(packs) != 1 {
		t.Fatalf("packs = %d", len(packs))
	}
	if packs[0].Meta.Title != "Bedtime" || packs[0].UUID != bundle.UUID {
		t.Fatalf("pack = %+v", packs[0])
	}
	if packs[0].SizeBytes == 0 {
		t.Fatal("pack size should count content files")
	}
}

func TestInstallRejectsDuplicate(t *testing.T) {
	mgr := New(t.TempDir(), nil)
	bundle := testBundle(t, "Bedtime")

	if err := mgr.Install(bundle); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Install(bundle); err == nil {
		t.Fatal("expected duplicate install error")
	}
}

func TestRemove(t *testing.T) {
	root := t.TempDir()
	mgr := New(root, nil)
	first := testBundle(t, "First")
	second := testBundle(t, "Second")

	if err := mgr.Install(first); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Install(second); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Remove(first.UUID); err != nil {
		t.Fatal(err)
	}

	packs, err := mgr.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(packs) != 1 || packs[0].UUID != second.UUID {
		t.Fatalf("packs = %+v", packs)
	}
	if _, err := os.Stat(filepath.Join(root, ".content", first.Ref)); !os.IsNotExist(err) {
		t.Fatal("removed pack content still present")
	}

	if err := mgr.Remove(first.UUID); err == nil {
		t.Fatal("expected error removing absent pack")
	}
}

func TestReorder(t *testing.T) {
	mgr := New(t.TempDir(), nil)
	a := testBundle(t, "A")
	b := testBundle(t, "B")
	c := testBundle(t, "C")
	for _, bundle := range []*device.Bundle{a, b, c} {
		if err := mgr.Install(bundle); err != nil {
			t.Fatal(err)
		}
	}

	if err := mgr.Reorder([]uuid.UUID{c.UUID, a.UUID, b.UUID}); err != nil {
		t.Fatal(err)
	}

	packs, err := mgr.List()
	if err != nil {
		t.Fatal(err)
	}
	want := []uuid.UUID{c.UUID, a.UUID, b.UUID}
	for i, pack := range packs {
		if pack.UUID != want[i] {
			t.Fatalf("position %d = %s, want %s", i, pack.UUID, want[i])
		}
	}
}

func TestReorderRejectsWrongSet(t *testing.T) {
	mgr := New(t.TempDir(), nil)
	a := testBundle(t, "A")
	b := testBundle(t, "B")
	for _, bundle := range []*device.Bundle{a, b} {
		if err := mgr.Install(bundle); err != nil {
			t.Fatal(err)
		}
	}

	if err := mgr.Reorder([]uuid.UUID{a.UUID}); err == nil {
		t.Fatal("expected length mismatch error")
	}
	if err := mgr.Reorder([]uuid.UUID{a.UUID, uuid.New()}); err == nil {
		t.Fatal("expected unknown identifier error")
	}
	if err := mgr.Reorder([]uuid.UUID{a.UUID, a.UUID}); err == nil {
		t.Fatal("expected duplicate identifier error")
	}
}

func TestCorruptIdentifierFile(t *testing.T) {
	root := t.TempDir()
	mgr := New(root, nil)
	if err := os.WriteFile(filepath.Join(root, ".pi"), []byte("truncated"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := mgr.List()
	var ferr *FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("err = %v, want format error", err)
	}
}

func TestUnsupportedRootVariant(t *testing.T) {
	root := t.TempDir()
	mgr := New(root, nil)
	if err := os.WriteFile(filepath.Join(root, ".md"), []byte{0x07, 0x00}, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := mgr.Install(testBundle(t, "X")); err == nil {
		t.Fatal("expected variant error")
	}
	if _, err := mgr.List(); err == nil {
		t.Fatal("expected variant error")
	}
}

func TestListToleratesMissingPackDescriptor(t *testing.T) {
	root := t.TempDir()
	mgr := New(root, nil)
	bundle := testBundle(t, "Bedtime")
	if err := mgr.Install(bundle); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(root, ".content", bundle.Ref, "md")); err != nil {
		t.Fatal(err)
	}

	packs, err := mgr.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(packs) != 1 || packs[0].Meta.Title != "(unknown pack)" {
		t.Fatalf("packs = %+v", packs)
	}
}

func TestLockContention(t *testing.T) {
	root := t.TempDir()
	mgr := New(root, nil)

	// Hold the lock the way a concurrent process would.
	held, err := mgr.lock()
	if err != nil {
		t.Fatal(err)
	}
	defer held.Unlock()

	other := New(root, nil)
	if err := other.Install(testBundle(t, "X")); !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}
