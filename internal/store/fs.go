package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/dropDatabas3/tollgate/internal/maintenance"
	"gopkg.in/yaml.v3"
)

// FS persiste el Record como YAML en un archivo (p.ej. en un volumen compartido).
// Archivo ausente, vacío o sin la key "maintenance" = sin mantenimiento.
// Un Record en cero bajo la key sí es mantenimiento (start sin ventana ni mensaje).
type FS struct {
	path string
	mu   sync.Mutex
}

func NewFS(path string) *FS { return &FS{path: path} }

type fsDoc struct {
	Maintenance *maintenance.Record `yaml:"maintenance"`
}

func (s *FS) Load(ctx context.Context) (*maintenance.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}
	var doc fsDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", s.path, err)
	}
	return doc.Maintenance, nil
}

func (s *FS) Save(ctx context.Context, rec maintenance.Record) error {
	b, err := yaml.Marshal(fsDoc{Maintenance: &rec})
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFileAtomic(s.path, b, 0o600)
}

func (s *FS) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("store: remove %s: %w", s.path, err)
	}
	return nil
}

// writeFileAtomic: tmp en el mismo dir → fsync → rename. Si rename falla
// (Windows con destino bloqueado) intenta remove+rename.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".maintenance-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	_ = os.Chmod(tmpPath, perm)

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(path)
		if err2 := os.Rename(tmpPath, path); err2 != nil {
			return fmt.Errorf("rename: %v (after remove: %v)", err, err2)
		}
	}
	return nil
}
