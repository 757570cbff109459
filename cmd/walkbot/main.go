// Command walkbot runs the walk announcement bot.
package main

import (
	"log"

	"github.com/m3rciful/walkbot/core/buildinfo"
	corecmd "github.com/m3rciful/walkbot/core/cmd"
	"github.com/m3rciful/walkbot/internal/app"
)

func main() {
	log.Printf("walkbot %s", buildinfo.String())
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.Load(path)
		},
		Bootstrap: func(cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return app.Bootstrap(cfg.(*app.Config))
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
