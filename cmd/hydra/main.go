package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli"
)

func main() {
	app := newApp()

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running hydra", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "hydra"
	app.Description = "Game Boy timer and N64 video interface peripheral emulation"
	app.Usage = "hydra [global options] command [options] <file>"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
	}
	app.Before = setupLogging
	app.Commands = []cli.Command{
		cartCommand,
		timerCommand,
		viCommand,
		runCommand,
	}
	return app
}

func setupLogging(c *cli.Context) error {
	level := slog.LevelInfo
	if c.GlobalBool("verbose") {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
	return nil
}
