package main

import (
	"log"

	"github.com/joho/godotenv"

	"fuel-station-go/internal/bankbook"
	"fuel-station-go/internal/config"
	"fuel-station-go/internal/database"
	httpserver "fuel-station-go/internal/http"
	"fuel-station-go/internal/models"
)

func main() {
	_ = godotenv.Load(".env")

	db, err := database.Connect()
	if err != nil {
		log.Fatal(err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Account{}, &models.BankTransaction{}); err != nil {
		log.Fatal(err)
	}

	cfg := config.Load()
	store := bankbook.NewGormStore(db)
	users := httpserver.NewGormUserStore(db)

	r := httpserver.NewServer(cfg, store, users)
	log.Printf("listening on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
