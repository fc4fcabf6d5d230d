package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/coursegate/coursegate/internal/config"
	"github.com/coursegate/coursegate/internal/entitlement"
	"github.com/coursegate/coursegate/internal/hotmart"
	"github.com/coursegate/coursegate/internal/logger"
	"github.com/coursegate/coursegate/internal/migration"
	"github.com/coursegate/coursegate/internal/server"
	"github.com/coursegate/coursegate/internal/subscriber"
	"github.com/coursegate/coursegate/internal/webhook"
	"github.com/coursegate/coursegate/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		subscriber.Module,
		webhook.Module,
		entitlement.Module,
		hotmart.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
