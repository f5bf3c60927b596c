package asset

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"storyforge/internal/config"
	"storyforge/internal/imaging"
)

// stubEngine writes a shell script that stands in for ffmpeg: volumedetect
// passes report a fixed peak, transcode passes copy the source to the output.
// Canonicalization behavior itself is covered in the ffmpeg package; here we
// only need deterministic bytes out.
func stubEngine(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	script := `#!/bin/sh
src=""
prev=""
last=""
for a in "$@"; do
  if [ "$prev" = "-i" ]; then src="$a"; fi
  prev="$a"
  last="$a"
done
if [ "$last" = "-" ]; then
  echo "[Parsed_volumedetect_0] max_volume: -6.0 dB" >&2
  exit 0
fi
cat "$src" > "$last"
`
	path := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func testStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Transcode.FFmpegBinary = stubEngine(t)
	cfg.Transcode.TimeoutSecs = 30

	store, err := Open(&cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func writeTestPNG(t *testing.T, dir, name string, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, c)
		}
	}
	data, err := imaging.EncodePNG(img)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeTestAudio(t *testing.T, dir, name string, payload []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAdmitImage(t *testing.T) {
	store := testStore(t)
	src := writeTestPNG(t, t.TempDir(), "cover.png", color.White)

	ref, err := store.Admit(context.Background(), src, KindImage, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if ref.Ext != "png" || len(ref.Digest) != 40 {
		t.Fatalf("ref = %+v", ref)
	}
	if _, err := os.Stat(store.ObjectPath(ref)); err != nil {
		t.Fatalf("object not published: %v", err)
	}
}

func TestAdmitIsDeterministic(t *testing.T) {
	store := testStore(t)
	dir := t.TempDir()
	first := writeTestPNG(t, dir, "a.png", color.White)
	second := writeTestPNG(t, dir, "b.png", color.White)

	refA, err := store.Admit(context.Background(), first, KindImage, Options{})
	if err != nil {
		t.Fatal(err)
	}
	refB, err := store.Admit(context.Background(), second, KindImage, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if refA != refB {
		t.Fatalf("identical content produced different refs: %v vs %v", refA, refB)
	}
}

func TestAdmitMemoizesAcrossOpens(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Transcode.FFmpegBinary = stubEngine(t)

	src := writeTestPNG(t, t.TempDir(), "cover.png", color.Black)

	store, err := Open(&cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	first, err := store.Admit(context.Background(), src, KindImage, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(&cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	second, err := reopened.Admit(context.Background(), src, KindImage, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("memoized ref changed across opens: %v vs %v", first, second)
	}
}

func TestAdmitAudioOptionsChangeIdentity(t *testing.T) {
	store := testStore(t)
	src := writeTestAudio(t, t.TempDir(), "tale.mp3", []byte("fake-mp3-payload"))

	plain, err := store.Admit(context.Background(), src, KindAudio, Options{})
	if err != nil {
		t.Fatal(err)
	}
	padded, err := store.Admit(context.Background(), src, KindAudio, Options{SilencePad: true})
	if err != nil {
		t.Fatal(err)
	}
	if plain.Ext != "mp3" || padded.Ext != "mp3" {
		t.Fatalf("refs = %v, %v", plain, padded)
	}
	if memoKey([]byte("fake-mp3-payload"), KindAudio, Options{}) ==
		memoKey([]byte("fake-mp3-payload"), KindAudio, Options{SilencePad: true}) {
		t.Fatal("options must be part of the memo key")
	}

	trimmed, err := store.Admit(context.Background(), src, KindAudio, Options{TrimLead: 1500 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if trimmed.IsZero() {
		t.Fatal("trimmed admission returned zero ref")
	}
}

func TestAdmitMissingSource(t *testing.T) {
	store := testStore(t)

	_, err := store.Admit(context.Background(), filepath.Join(t.TempDir(), "absent.mp3"), KindAudio, Options{})
	if err == nil {
		t.Fatal("expected error for missing source")
	}
	var aerr *Error
	if !errors.As(err, &aerr) {
		t.Fatalf("error type = %T", err)
	}
	if aerr.Path == "" {
		t.Fatal("error must carry the source path")
	}
}

func TestAdmitGarbageImage(t *testing.T) {
	store := testStore(t)
	src := writeTestAudio(t, t.TempDir(), "broken.png", []byte("not a png"))

	if _, err := store.Admit(context.Background(), src, KindImage, Options{}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestAdmitConcurrentSharesOneRef(t *testing.T) {
	store := testStore(t)
	src := writeTestPNG(t, t.TempDir(), "cover.png", color.White)

	const goroutines = 8
	refs := make([]Ref, goroutines)
	errs := make([]error, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			refs[i], errs[i] = store.Admit(context.Background(), src, KindImage, Options{})
		}(i)
	}
	wg.Wait()

	for i := 0; i < goroutines; i++ {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: %v", i, errs[i])
		}
		if refs[i] != refs[0] {
			t.Fatalf("goroutine %d ref %v differs from %v", i, refs[i], refs[0])
		}
	}
}

func TestAdmitBatch(t *testing.T) {
	store := testStore(t)
	dir := t.TempDir()

	requests := []Request{
		{Path: writeTestPNG(t, dir, "a.png", color.White), Kind: KindImage},
		{Path: writeTestPNG(t, dir, "b.png", color.Black), Kind: KindImage},
		{Path: writeTestAudio(t, dir, "c.mp3", []byte("payload-c")), Kind: KindAudio},
	}

	var calls int
	refs, err := store.AdmitBatch(context.Background(), requests, 2, func(done, total int) {
		calls++
		if total != len(requests) {
			t.Errorf("progress total = %d", total)
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if calls != len(requests) {
		t.Fatalf("progress calls = %d", calls)
	}
	for i, ref := range refs {
		if ref.IsZero() {
			t.Fatalf("request %d returned zero ref", i)
		}
	}
}

func TestAdmitBatchAccumulatesErrors(t *testing.T) {
	store := testStore(t)
	dir := t.TempDir()

	requests := []Request{
		{Path: writeTestPNG(t, dir, "good.png", color.White), Kind: KindImage},
		{Path: filepath.Join(dir, "missing-1.png"), Kind: KindImage},
		{Path: filepath.Join(dir, "missing-2.mp3"), Kind: KindAudio},
	}

	refs, err := store.AdmitBatch(context.Background(), requests, 2, nil)
	if err == nil {
		t.Fatal("expected batch errors")
	}
	list, ok := err.(ErrorList)
	if !ok {
		t.Fatalf("error type = %T", err)
	}
	if len(list) != 2 {
		t.Fatalf("error count = %d, want 2", len(list))
	}
	if refs[0].IsZero() {
		t.Fatal("good request should still produce a ref")
	}
	if !refs[1].IsZero() || !refs[2].IsZero() {
		t.Fatal("failed requests must return zero refs")
	}
}

func TestParseRefName(t *testing.T) {
	ref, err := ParseRefName("da39a3ee5e6b4b0d3255bfef95601890afd80709.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if ref.Digest != "da39a3ee5e6b4b0d3255bfef95601890afd80709" || ref.Ext != "mp3" {
		t.Fatalf("ref = %+v", ref)
	}

	for _, bad := range []string{"", "short.mp3", "da39a3ee5e6b4b0d3255bfef95601890afd80709", "ZZ39a3ee5e6b4b0d3255bfef95601890afd80709.png"} {
		if _, err := ParseRefName(bad); err == nil {
			t.Fatalf("ParseRefName(%q) accepted invalid name", bad)
		}
	}
}
