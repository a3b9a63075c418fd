package migrations

import (
	"gorm.io/gorm"

	"github.com/anfisaforfriends/anfisa/pkg/migration"
	"github.com/anfisaforfriends/anfisa/pkg/queue"
)

func init() {
	migration.Register("20240301000002_create_failed_jobs_table", &CreateFailedJobsTable{})
}

type CreateFailedJobsTable struct{}

func (m *CreateFailedJobsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&queue.FailedJobRecord{})
}

func (m *CreateFailedJobsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(&queue.FailedJobRecord{})
}
