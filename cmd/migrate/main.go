// This file is used to run database migrations
// How to run:
// go run cmd/migrate/main.go        # Apply the schema and seed the platform account
package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/meshcompute/clearing/internal/config"
	"github.com/meshcompute/clearing/internal/constants"
	"github.com/meshcompute/clearing/internal/db"
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	database, err := db.New(db.Options{
		Host:     config.GetEnv(constants.EnvDBHost, db.DefaultHost),
		Port:     config.GetEnvInt(constants.EnvDBPort, db.DefaultPort),
		User:     config.GetEnv(constants.EnvDBUser, db.DefaultUser),
		Password: config.GetEnv(constants.EnvDBPassword, db.DefaultPassword),
		DBName:   config.GetEnv(constants.EnvDBName, db.DefaultDBName),
	})
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	sqlDB, err := database.DB()
	if err == nil {
		_ = sqlDB.Close()
	}

	log.Println("Migration complete")
}
