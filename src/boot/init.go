package boot

import (
	"log"
	"time"

	"github.com/IndSumit07/SPass/src/db"
	"github.com/IndSumit07/SPass/src/lib"
	"github.com/IndSumit07/SPass/src/models"
	"github.com/IndSumit07/SPass/src/utils"
	"gorm.io/gorm"
)

// InitDb migrates the schema. The partial unique index cannot be expressed
// with struct tags, so it is created with raw DDL after migration.
func InitDb(d *gorm.DB) error {
	if err := d.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.Pass{},
	); err != nil {
		log.Printf("Error migrating schema: %s\n", err.Error())
		return err
	}
	if err := d.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uq_passes_active ON passes (event_id, user_id) WHERE status IN ('issued','checked-in')`).Error; err != nil {
		log.Printf("Error creating active-pass index: %s\n", err.Error())
		return err
	}
	return nil
}

func InitScheduler() error {
	sched, err := lib.GetScheduler()
	if err != nil {
		return err
	}
	if _, err := lib.CreateCronJob(utils.ExpireEndedEventPasses, 15*time.Minute); err != nil {
		return err
	}
	sched.Start()
	return nil
}

func Init() error {
	if err := InitDb(db.GetDb()); err != nil {
		return err
	}
	return InitScheduler()
}
