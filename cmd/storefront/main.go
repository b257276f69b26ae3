package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/emberhollow/storefront/internal/server"
	"github.com/emberhollow/storefront/pkg/db"
	"github.com/emberhollow/storefront/pkg/redisclient"
)

func main() {
	fx.New(
		fx.Provide(registerSnowflake),
		db.Module,
		redisclient.Module,
		server.Module,
	).Run()
}

func registerSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
