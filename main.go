package main

import (
	"os"

	"github.com/leyuan/points-mall/config"
	"github.com/leyuan/points-mall/models"
	"github.com/leyuan/points-mall/routes"
	"github.com/leyuan/points-mall/services"
	"github.com/leyuan/points-mall/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Admin{},
		&models.Activity{},
		&models.Submission{},
		&models.PointsLog{},
		&models.Product{},
		&models.Order{},
	)

	if err := services.EnsureBootstrapAdmin(db, os.Getenv("ADMIN_INIT_USERNAME"), os.Getenv("ADMIN_INIT_PASSWORD")); err != nil {
		utils.Sugar.Errorf("bootstrap admin failed: %v", err)
	}

	r := routes.SetupRouter(db)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
