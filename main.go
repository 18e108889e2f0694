package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/anicoll/senec-integration/cmd"
)

func main() {
	app := &cli.App{
		Name:   "senec-integration",
		Usage:  "polls a SENEC storage system locally and through mein-senec.de",
		Action: cmd.SenecCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				EnvVars: []string{"ENV_FILE"},
				Value:   "",
				Usage:   "optional dotenv file read before the environment",
			},
			&cli.StringFlag{
				Name:    "senec-host",
				EnvVars: []string{"SENEC_HOST"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "inverter-host",
				EnvVars: []string{"INVERTER_HOST"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-host",
				EnvVars: []string{"MQTT_HOST"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "listen-addr",
				EnvVars: []string{"LISTEN_ADDR"},
				Value:   "0.0.0.0:8000",
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "INFO",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
