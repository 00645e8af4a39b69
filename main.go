package main

import (
	"time"

	"github.com/askboard/askboard/config"
	"github.com/askboard/askboard/models"
	"github.com/askboard/askboard/routes"
	"github.com/askboard/askboard/services"
	"github.com/askboard/askboard/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(&models.User{}, &models.Tag{}, &models.Post{}, &models.Comment{}, &models.Image{})

	r := routes.SetupRouter(db)

	// Background reaper for image rows whose post or comment is gone
	if cfg.OrphanSweep {
		services.StartOrphanImageSweep(db, 30*time.Minute)
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
