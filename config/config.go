package config

import (
	"log"

	"github.com/joho/godotenv"
)

// LoadEnv pulls a local .env into the process environment. Missing
// files are fine in production where everything comes from the real env.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}
}
