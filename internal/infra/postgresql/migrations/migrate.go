package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/commercekit/slack-relay/internal/domain"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_slack_notification_events",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&domain.SlackNotificationEvent{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.SlackNotificationEvent{})
			},
		},
		{
			ID: "000002_create_notifications",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&domain.NotificationRecord{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_notifications_event_name_created ON notifications (event_name, created_at)`,
					`CREATE INDEX IF NOT EXISTS idx_notifications_correlation_id ON notifications (correlation_id)`,
					`CREATE INDEX IF NOT EXISTS idx_notifications_resend_of_id ON notifications (resend_of_id) WHERE resend_of_id IS NOT NULL`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&domain.NotificationRecord{})
			},
		},
	})

	return m.Migrate()
}
