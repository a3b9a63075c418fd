// Package storage stores generated files (catalog exports) on a named disk.
//
//	storage.Connect()
//	storage.Default().Put(ctx, "exports/catalog.json", r)
//	url := storage.Use("s3").URL("exports/catalog.json")
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/anfisaforfriends/anfisa/config"
	"github.com/anfisaforfriends/anfisa/pkg/logger"
)

var ErrNotExist = errors.New("storage: file does not exist")

// Disk is a flat, slash-separated key space.
type Disk interface {
	Put(ctx context.Context, path string, r io.Reader) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
	// Files lists every path under dir, recursively and sorted.
	Files(ctx context.Context, dir string) ([]string, error)
	URL(path string) string
}

type Manager struct {
	mu    sync.RWMutex
	disks map[string]Disk
	def   string
}

func NewManager(defaultDisk string) *Manager {
	return &Manager{disks: map[string]Disk{}, def: defaultDisk}
}

func (m *Manager) Register(name string, d Disk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disks[name] = d
}

func (m *Manager) Use(name string) (Disk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.disks[name]
	if !ok {
		return nil, fmt.Errorf("storage: disk %q is not configured", name)
	}
	return d, nil
}

func (m *Manager) Default() (Disk, error) { return m.Use(m.def) }

func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.disks))
	for name := range m.disks {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var (
	defaultMu sync.RWMutex
	manager   = NewManager("local")
)

// Connect builds the process-wide manager from config. The local disk is
// always present; the s3 disk only when S3_BUCKET is set.
func Connect(ctx context.Context) error {
	m := NewManager(config.StorageDefault())
	m.Register("local", NewLocalDisk(config.StorageLocalRoot(), config.StorageURL()))

	if bucket := config.StorageS3Bucket(); bucket != "" {
		d, err := NewS3Disk(ctx, S3Options{
			Bucket:   bucket,
			Region:   config.StorageS3Region(),
			Key:      config.StorageS3Key(),
			Secret:   config.StorageS3Secret(),
			Endpoint: config.StorageS3Endpoint(),
			BaseURL:  config.StorageS3URL(),
		})
		if err != nil {
			return err
		}
		m.Register("s3", d)
	}

	if _, err := m.Default(); err != nil {
		return err
	}
	SetManager(m)
	logger.Info("storage: connected", "default", config.StorageDefault(), "disks", m.Names())
	return nil
}

func SetManager(m *Manager) {
	defaultMu.Lock()
	manager = m
	defaultMu.Unlock()
}

func current() *Manager {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return manager
}

func Use(name string) (Disk, error) { return current().Use(name) }
func Default() (Disk, error)        { return current().Default() }
