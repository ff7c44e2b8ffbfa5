package main

import (
	"log"

	"aniso-smooth/internal/app"

	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a TOML config file")
	pflag.Parse()

	application, err := app.NewApplication(*configPath)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}
