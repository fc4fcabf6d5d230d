package migration

import (
	"github.com/coursegate/coursegate/internal/config"
	subscriberdomain "github.com/coursegate/coursegate/internal/subscriber/domain"
	webhookdomain "github.com/coursegate/coursegate/internal/webhook/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// The versioned SQL migrations target postgres; other dialects
		// (mysql for legacy installs, sqlite for local runs) get the schema
		// from the models directly.
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&subscriberdomain.Subscriber{},
				&webhookdomain.WebhookEvent{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		return RunMigrations(sqlDB)
	}),
)
