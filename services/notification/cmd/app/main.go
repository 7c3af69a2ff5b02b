package main

import (
	"taskflow/pkg/cache"
	"taskflow/pkg/config"
	"taskflow/pkg/database"
	"taskflow/pkg/logger"
	notificationApp "taskflow/services/notification/internal/app"
	"taskflow/services/notification/internal/model"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New()
	db, err := database.Open(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		panic(err)
	}

	if cfg.AutoMigrate {
		if err := database.Migrate(db, model.All()...); err != nil {
			log.Error("Failed to migrate database: %v", err)
			panic(err)
		}
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Error("Failed to connect to redis: %v", err)
		panic(err)
	}

	notificationApp.Run(cfg, log, db, redisClient)
}
