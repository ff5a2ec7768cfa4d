package main

import (
	"log"

	"github.com/inkwell-dev/inkwell/config"
	"github.com/inkwell-dev/inkwell/models"
	"github.com/inkwell-dev/inkwell/routes"
	"github.com/inkwell-dev/inkwell/utils"
)

func main() {
	cfg := config.Load()
	config.RequireIdentityProvider(cfg)

	if err := utils.InitLogger(cfg); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer utils.Logger.Sync()

	db := config.InitDatabase(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Reaction{},
	)

	verifier := utils.NewTokenVerifier(cfg)
	router := routes.SetupRouter(db, verifier)

	utils.Sugar.Infof("listening on :%s", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, router); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
