package asset

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"storyforge/internal/config"
	"storyforge/internal/fileutil"
	"storyforge/internal/imaging"
	"storyforge/internal/logging"
	"storyforge/internal/media/ffmpeg"
)

// Store is the content-addressed asset store. Objects live under
// <cache>/objects/<digest>.<ext>; the memo index lives next to them.
type Store struct {
	root       string
	engine     ffmpeg.Engine
	canvas     imaging.Canvas
	memo       *memoIndex
	logger     *slog.Logger
	headroomDB float64
	maxGainDB  float64

	mu       sync.Mutex
	inflight map[string]*admission
}

// admission tracks one in-progress canonicalization so concurrent admits of
// identical input wait for the first instead of transcoding again.
type admission struct {
	done chan struct{}
	ref  Ref
	err  error
}

// Open prepares the store directories and memo index under the cache dir.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	root := cfg.Paths.CacheDir
	for _, dir := range []string{root, filepath.Join(root, "objects"), filepath.Join(root, "tmp")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %q: %w", dir, err)
		}
	}

	memo, err := openMemoIndex(filepath.Join(root, "memo.db"))
	if err != nil {
		return nil, err
	}

	return &Store{
		root: root,
		engine: ffmpeg.New(
			cfg.Transcode.FFmpegBinary,
			cfg.Transcode.FFprobeBinary,
			time.Duration(cfg.Transcode.TimeoutSecs)*time.Second,
		),
		canvas: imaging.Canvas{
			Width:      cfg.Image.CanvasWidth,
			Height:     cfg.Image.CanvasHeight,
			CropMargin: cfg.Image.CropMargin,
		},
		memo:       memo,
		logger:     logging.NewComponentLogger(logger, "asset"),
		headroomDB: cfg.Transcode.HeadroomDB,
		maxGainDB:  cfg.Transcode.MaxGainDB,
		inflight:   make(map[string]*admission),
	}, nil
}

// Close releases the memo index.
func (s *Store) Close() error {
	return s.memo.Close()
}

// ObjectPath returns the on-disk location of a stored asset.
func (s *Store) ObjectPath(ref Ref) string {
	return filepath.Join(s.root, "objects", ref.Name())
}

// ReadObject loads a stored asset's canonical bytes.
func (s *Store) ReadObject(ref Ref) ([]byte, error) {
	data, err := os.ReadFile(s.ObjectPath(ref))
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", ref.Name(), err)
	}
	return data, nil
}

// ReadNamed loads a stored asset's bytes by object name ("<digest>.<ext>").
func (s *Store) ReadNamed(name string) ([]byte, error) {
	ref, err := ParseRefName(name)
	if err != nil {
		return nil, err
	}
	return s.ReadObject(ref)
}

// Admit canonicalizes the file at path and stores the result, returning its
// content-addressed ref. Identical bytes with identical options return the
// memoized ref without touching the transcoder; concurrent admissions of the
// same input share one canonicalization.
func (s *Store) Admit(ctx context.Context, path string, kind Kind, opts Options) (Ref, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Ref{}, &Error{Path: path, Err: err}
	}

	key := memoKey(raw, kind, opts)
	if ref, ok, err := s.memoized(ctx, key); err != nil {
		return Ref{}, &Error{Path: path, Err: err}
	} else if ok {
		return ref, nil
	}

	s.mu.Lock()
	if pending, ok := s.inflight[key]; ok {
		s.mu.Unlock()
		select {
		case <-pending.done:
			return pending.ref, pending.err
		case <-ctx.Done():
			return Ref{}, &Error{Path: path, Err: ctx.Err()}
		}
	}
	pending := &admission{done: make(chan struct{})}
	s.inflight[key] = pending
	s.mu.Unlock()

	ref, err := s.canonicalize(ctx, path, raw, kind, opts)
	if err == nil {
		err = s.memo.record(ctx, key, ref)
	}
	if err != nil {
		err = &Error{Path: path, Err: err}
	}

	pending.ref, pending.err = ref, err
	s.mu.Lock()
	delete(s.inflight, key)
	s.mu.Unlock()
	close(pending.done)

	if err != nil {
		return Ref{}, err
	}
	s.logger.DebugContext(ctx, "asset admitted",
		logging.String("source", path),
		logging.String("digest", ref.Digest),
		logging.String("kind", kind.String()))
	return ref, nil
}

// memoized consults the memo index and verifies the object still exists.
func (s *Store) memoized(ctx context.Context, key string) (Ref, bool, error) {
	ref, ok, err := s.memo.lookup(ctx, key)
	if err != nil || !ok {
		return Ref{}, false, err
	}
	if _, statErr := os.Stat(s.ObjectPath(ref)); statErr != nil {
		// Object evicted behind the index's back; re-admit.
		return Ref{}, false, nil
	}
	return ref, true, nil
}

func (s *Store) canonicalize(ctx context.Context, path string, raw []byte, kind Kind, opts Options) (Ref, error) {
	switch kind {
	case KindImage:
		return s.canonicalizeImage(raw)
	case KindAudio:
		return s.canonicalizeAudio(ctx, path, opts)
	default:
		return Ref{}, fmt.Errorf("unsupported asset kind %d", kind)
	}
}

func (s *Store) canonicalizeImage(raw []byte) (Ref, error) {
	canonical, err := s.canvas.CanonicalPNG(raw)
	if err != nil {
		return Ref{}, err
	}
	return s.publish(canonical, KindImage)
}

func (s *Store) canonicalizeAudio(ctx context.Context, path string, opts Options) (Ref, error) {
	spec := ffmpeg.AudioSpec{
		Normalize:  opts.GainNormalize,
		SilencePad: opts.SilencePad,
		TrimLead:   opts.TrimLead,
	}
	if opts.GainNormalize {
		peak, err := s.engine.MeasurePeak(ctx, path, opts.TrimLead)
		if err != nil {
			return Ref{}, err
		}
		spec.GainDB = s.gainFor(peak)
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, "tmp"), "admit-*.mp3")
	if err != nil {
		return Ref{}, fmt.Errorf("create transcode temp: %w", err)
	}
	tmpName := tmp.Name()
	_ = tmp.Close()
	_ = os.Remove(tmpName) // the engine creates the output itself
	defer os.Remove(tmpName)

	if err := s.engine.TranscodeAudio(ctx, path, tmpName, spec); err != nil {
		return Ref{}, err
	}

	canonical, err := os.ReadFile(tmpName)
	if err != nil {
		return Ref{}, fmt.Errorf("read transcode output: %w", err)
	}
	return s.publish(canonical, KindAudio)
}

// gainFor computes the gain stage that lifts peak up to the configured
// headroom, capped at the configured maximum. Sources already at or above
// headroom get no gain stage.
func (s *Store) gainFor(peak float64) float64 {
	gain := s.headroomDB - peak
	if gain <= 0 {
		return 0
	}
	if s.maxGainDB > 0 && gain > s.maxGainDB {
		return s.maxGainDB
	}
	return gain
}

// publish hashes the canonical bytes and moves them into the object
// directory. Publishing is idempotent: an existing object is kept as is.
func (s *Store) publish(canonical []byte, kind Kind) (Ref, error) {
	ref := Ref{Digest: digest(canonical), Ext: kind.Ext()}
	target := s.ObjectPath(ref)
	if _, err := os.Stat(target); err == nil {
		return ref, nil
	}
	if err := fileutil.WriteFileAtomic(target, canonical, 0o644); err != nil {
		return Ref{}, err
	}
	return ref, nil
}

func digest(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// memoKey derives the memoization key from the raw source bytes, the asset
// kind, and the processing options.
func memoKey(raw []byte, kind Kind, opts Options) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s|%s|", kind, opts.encode())
	h.Write(raw)
	return hex.EncodeToString(h.Sum(nil))
}
