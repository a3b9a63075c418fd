package controllers

import (
	"github.com/anfisaforfriends/anfisa/app/jobs"
	"github.com/anfisaforfriends/anfisa/pkg/ctx"
	"github.com/anfisaforfriends/anfisa/pkg/queue"
)

type ExportController struct {
	queue *queue.Manager
	disks jobs.DiskResolver
}

func NewExportController(q *queue.Manager, disks jobs.DiskResolver) *ExportController {
	return &ExportController{queue: q, disks: disks}
}

// Store queues a catalog export and answers 202 with where it will land.
func (e *ExportController) Store(c *ctx.Context) {
	var in struct {
		Disk string `json:"disk" validate:"omitempty,max=32"`
	}
	if c.R.ContentLength > 0 && !c.BindJSON(&in) {
		return
	}
	if _, err := e.disks(in.Disk); err != nil {
		c.ValidationError(map[string]string{"disk": "Unknown storage disk."})
		return
	}

	job := jobs.NewExportCatalog(in.Disk)
	if err := e.queue.Dispatch(c.Context(), job); err != nil {
		fail(c, err)
		return
	}
	c.Accepted(map[string]string{"id": job.ID, "path": job.Path()})
}
