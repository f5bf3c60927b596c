package registry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"storyforge/internal/device"
	"storyforge/internal/fileutil"
	"storyforge/internal/logging"
)

// Registry file names under the device root.
const (
	identifierFile = ".pi"
	rootMetadata   = ".md"
	contentDir     = ".content"
	lockFile       = ".pi.lock"
)

// rootLayoutVariant is the registry layout this tool writes and accepts,
// stamped as the root .md's leading u16.
const rootLayoutVariant = 1

// identifierSize is one pack identifier's width in the .pi file.
const identifierSize = 16

// ErrConflict reports that another process holds the registry lock. The
// operation made no changes and can be retried.
var ErrConflict = errors.New("registry locked by another process")

// FormatError reports registry state this tool cannot interpret.
type FormatError struct {
	Path   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("registry format: %s: %s", e.Path, e.Reason)
}

// Manager operates the registry under one device root.
type Manager struct {
	root   string
	logger *slog.Logger
}

// New returns a Manager for the device root directory.
func New(root string, logger *slog.Logger) *Manager {
	return &Manager{
		root:   root,
		logger: logging.NewComponentLogger(logger, "registry"),
	}
}

// Pack is one registry entry as reported by List.
type Pack struct {
	UUID      uuid.UUID
	Ref       string
	Meta      device.Metadata
	SizeBytes int64
}

// lock takes the registry lock without blocking. Contention surfaces as
// ErrConflict so callers can retry on their own schedule.
func (m *Manager) lock() (*flock.Flock, error) {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, fmt.Errorf("create device root: %w", err)
	}
	fl := flock.New(filepath.Join(m.root, lockFile))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire registry lock: %w", err)
	}
	if !locked {
		return nil, ErrConflict
	}
	return fl, nil
}

// Install writes the bundle's files under .content/<REF>/ and then appends
// its identifier to .pi. The identifier goes last so a crash mid-install
// never leaves the registry pointing at missing content.
func (m *Manager) Install(bundle *device.Bundle) error {
	fl, err := m.lock()
	if err != nil {
		return err
	}
	defer func() { _ = fl.Unlock() }()

	if err := m.checkRootVariant(); err != nil {
		return err
	}
	ids, err := m.readIdentifiers()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == bundle.UUID {
			return fmt.Errorf("pack %s already installed", bundle.UUID)
		}
	}

	packDir := filepath.Join(m.root, contentDir, bundle.Ref)
	for name, payload := range bundle.Files {
		target := filepath.Join(packDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create pack directory: %w", err)
		}
		if err := fileutil.WriteFileAtomic(target, payload, 0o644); err != nil {
			return err
		}
	}

	if err := m.ensureRootMetadata(); err != nil {
		return err
	}
	if err := m.writeIdentifiers(append(ids, bundle.UUID)); err != nil {
		return err
	}

	m.logger.Info("pack installed",
		logging.String("uuid", bundle.UUID.String()),
		logging.String("ref", bundle.Ref),
		logging.Int("files", len(bundle.Files)))
	return nil
}

// Remove drops a pack: the identifier leaves .pi first, then the content
// directory goes away.
func (m *Manager) Remove(id uuid.UUID) error {
	fl, err := m.lock()
	if err != nil {
		return err
	}
	defer func() { _ = fl.Unlock() }()

	ids, err := m.readIdentifiers()
	if err != nil {
		return err
	}
	remaining := ids[:0:0]
	found := false
	for _, existing := range ids {
		if existing == id {
			found = true
			continue
		}
		remaining = append(remaining, existing)
	}
	if !found {
		return fmt.Errorf("pack %s not installed", id)
	}

	if err := m.writeIdentifiers(remaining); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(m.root, contentDir, device.PackRef(id))); err != nil {
		return fmt.Errorf("remove pack content: %w", err)
	}

	m.logger.Info("pack removed", logging.String("uuid", id.String()))
	return nil
}

// Reorder rewrites .pi in the given order. The new order must contain
// exactly the installed identifiers.
func (m *Manager) Reorder(order []uuid.UUID) error {
	fl, err := m.lock()
	if err != nil {
		return err
	}
	defer func() { _ = fl.Unlock() }()

	current, err := m.readIdentifiers()
	if err != nil {
		return err
	}
	if len(order) != len(current) {
		return fmt.Errorf("reorder: %d identifiers given, %d installed", len(order), len(current))
	}
	installed := make(map[uuid.UUID]int, len(current))
	for _, id := range current {
		installed[id]++
	}
	for _, id := range order {
		if installed[id] == 0 {
			return fmt.Errorf("reorder: pack %s not installed", id)
		}
		installed[id]--
	}

	return m.writeIdentifiers(order)
}

// List reports every registered pack in .pi order. A missing or corrupt
// per-pack descriptor degrades to a placeholder title instead of failing
// the whole listing.
func (m *Manager) List() ([]Pack, error) {
	fl, err := m.lock()
	if err != nil {
		return nil, err
	}
	defer func() { _ = fl.Unlock() }()

	if err := m.checkRootVariant(); err != nil {
		return nil, err
	}
	ids, err := m.readIdentifiers()
	if err != nil {
		return nil, err
	}

	packs := make([]Pack, 0, len(ids))
	for _, id := range ids {
		ref := device.PackRef(id)
		pack := Pack{UUID: id, Ref: ref}

		packDir := filepath.Join(m.root, contentDir, ref)
		if mdBytes, err := os.ReadFile(filepath.Join(packDir, "md")); err == nil {
			pack.Meta = device.ParseMetadata(mdBytes)
		}
		if pack.Meta.Title == "" {
			pack.Meta.Title = "(unknown pack)"
		}
		pack.SizeBytes = dirSize(packDir)
		packs = append(packs, pack)
	}
	return packs, nil
}

func (m *Manager) identifierPath() string {
	return filepath.Join(m.root, identifierFile)
}

func (m *Manager) readIdentifiers() ([]uuid.UUID, error) {
	data, err := os.ReadFile(m.identifierPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	if len(data)%identifierSize != 0 {
		return nil, &FormatError{
			Path:   m.identifierPath(),
			Reason: fmt.Sprintf("length %d is not a multiple of %d", len(data), identifierSize),
		}
	}

	ids := make([]uuid.UUID, 0, len(data)/identifierSize)
	for off := 0; off < len(data); off += identifierSize {
		var id uuid.UUID
		copy(id[:], data[off:off+identifierSize])
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *Manager) writeIdentifiers(ids []uuid.UUID) error {
	data := make([]byte, 0, len(ids)*identifierSize)
	for _, id := range ids {
		data = append(data, id[:]...)
	}
	return fileutil.WriteFileAtomic(m.identifierPath(), data, 0o644)
}

// ensureRootMetadata writes the root descriptor once per root.
func (m *Manager) ensureRootMetadata() error {
	path := filepath.Join(m.root, rootMetadata)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data := binary.LittleEndian.AppendUint16(nil, rootLayoutVariant)
	return fileutil.WriteFileAtomic(path, data, 0o644)
}

// checkRootVariant rejects roots written in a layout this tool does not
// understand. A missing descriptor is fine: it appears on first install.
func (m *Manager) checkRootVariant() error {
	path := filepath.Join(m.root, rootMetadata)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read root descriptor: %w", err)
	}
	if len(data) < 2 {
		return &FormatError{Path: path, Reason: "descriptor shorter than its variant field"}
	}
	if variant := binary.LittleEndian.Uint16(data); variant != rootLayoutVariant {
		return &FormatError{Path: path, Reason: fmt.Sprintf("unsupported layout variant %d", variant)}
	}
	return nil
}

func dirSize(dir string) int64 {
	var total int64
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}
