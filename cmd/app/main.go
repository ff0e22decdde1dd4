package main

import (
	"go.uber.org/fx"

	"teleindex-backend/internal/app"
)

// @title           TeleIndex API
// @version         1.0
// @description     Catalog of Telegram channels and their creators with aggregated creator metrics.

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer access token from /auth/login

// @tag.name auth
// @tag.description First admin bootstrap, login and current user

// @tag.name channels
// @tag.description Public channel catalog and moderation

// @tag.name creators
// @tag.description Creators, their linked channels and aggregated metrics

// @tag.name categories
// @tag.description Category directory

// @tag.name admin
// @tag.description Summary, link checks and demo data

// @tag.name parser
// @tag.description Import of channels from listing pages

func main() {
	fx.New(app.CreateApp()).Run()
}
