package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var labelChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// FileBackend keeps the document in one JSON file. Writes go to a temporary
// file in the same directory which then replaces the old one.
type FileBackend struct {
	path      string
	backupDir string
	sealer    Sealer
	now       func() time.Time
}

func NewFileBackend(path, backupDir string, sealer Sealer) *FileBackend {
	if sealer == nil {
		sealer = plainSealer{}
	}
	return &FileBackend{path: path, backupDir: backupDir, sealer: sealer, now: time.Now}
}

func (b *FileBackend) Load(ctx context.Context) (*Document, error) {
	raw, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewDocument(b.now().UTC()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}
	return decodeDocument(raw, b.sealer, b.now().UTC())
}

func (b *FileBackend) Save(ctx context.Context, doc *Document) error {
	raw, err := encodeDocument(doc, b.sealer)
	if err != nil {
		return err
	}
	return writeAtomic(b.path, raw)
}

func (b *FileBackend) Backup(ctx context.Context, doc *Document, label string) (string, error) {
	raw, err := encodeDocument(doc, b.sealer)
	if err != nil {
		return "", err
	}
	dir := b.backupDir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(b.path), "backups")
	}
	name := "ledger-" + b.now().UTC().Format("20060102-150405.000")
	if clean := labelChars.ReplaceAllString(label, "-"); clean != "" {
		name += "-" + clean
	}
	path := filepath.Join(dir, name+".json")
	if err := writeAtomic(path, raw); err != nil {
		return "", err
	}
	return path, nil
}

func (b *FileBackend) Ping(ctx context.Context) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

func writeAtomic(path string, raw []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
