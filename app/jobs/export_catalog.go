// Package jobs holds the queue jobs of the application.
package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/anfisaforfriends/anfisa/app/services"
	"github.com/anfisaforfriends/anfisa/pkg/logger"
	"github.com/anfisaforfriends/anfisa/pkg/queue"
	"github.com/anfisaforfriends/anfisa/pkg/storage"
)

const ExportCatalogName = "catalog.export"

// DiskResolver returns the named storage disk; "" means the default one.
type DiskResolver func(name string) (storage.Disk, error)

// DefaultDisks resolves disks through the process-wide storage manager.
func DefaultDisks(name string) (storage.Disk, error) {
	if name == "" {
		return storage.Default()
	}
	return storage.Use(name)
}

// ExportCatalog writes a JSON snapshot of the whole catalog to
// exports/catalog-<id>.json on Disk.
type ExportCatalog struct {
	ID   string `json:"id"`
	Disk string `json:"disk,omitempty"`

	catalog *services.Catalog
	disks   DiskResolver
}

func NewExportCatalog(disk string) *ExportCatalog {
	return &ExportCatalog{ID: uuid.NewString(), Disk: disk}
}

func (*ExportCatalog) JobName() string { return ExportCatalogName }

func (j *ExportCatalog) Path() string { return "exports/catalog-" + j.ID + ".json" }

func (j *ExportCatalog) Handle(ctx context.Context) error {
	if j.catalog == nil || j.disks == nil {
		return errors.New("export: job was not registered with its dependencies")
	}
	if j.ID == "" {
		j.ID = uuid.NewString()
	}

	snap, err := j.catalog.Snapshot(ctx)
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("export: encode: %w", err)
	}

	disk, err := j.disks(j.Disk)
	if err != nil {
		return err
	}
	if err := disk.Put(ctx, j.Path(), bytes.NewReader(body)); err != nil {
		return err
	}

	logger.WithCtx(ctx).Info("export: catalog written",
		"path", j.Path(),
		"url", disk.URL(j.Path()),
		"categories", len(snap.Categories),
	)
	return nil
}

// Register makes m able to run the jobs in this package.
func Register(m *queue.Manager, catalog *services.Catalog, disks DiskResolver) {
	m.Register(ExportCatalogName, func() queue.Job {
		return &ExportCatalog{catalog: catalog, disks: disks}
	})
}

// RunExport performs an export inline, without the queue.
func RunExport(ctx context.Context, catalog *services.Catalog, disks DiskResolver, disk string) (*ExportCatalog, error) {
	j := NewExportCatalog(disk)
	j.catalog, j.disks = catalog, disks
	return j, j.Handle(ctx)
}
