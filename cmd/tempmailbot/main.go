package main

import (
	"log"

	"github.com/m3rciful/tempmail-bot/core/cmd"
	"github.com/m3rciful/tempmail-bot/internal/app"
)

func main() {
	err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	})
	if err != nil {
		log.Fatalf("tempmailbot: %v", err)
	}
}
