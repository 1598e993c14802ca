package main

import (
	"fmt"
	"os"

	"github.com/kentos-io/bootward/internal/cmd"
	"github.com/kentos-io/bootward/internal/config"
	"github.com/kentos-io/bootward/internal/utils"
	"github.com/kentos-io/bootward/internal/version"
	"github.com/urfave/cli/v2"
)

// Manage boot firmware components on image-based systems.
func main() {
	app := cli.NewApp()
	app.Name = "bootward"
	app.Usage = "boot firmware component manager"
	app.Version = version.GetVersion()
	app.Authors = []*cli.Author{{Name: "Bootward authors"}}
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Value: config.DefaultPath,
			Usage: "path to the bootward env config",
		},
	}
	app.Before = func(c *cli.Context) error {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return err
		}
		utils.SetLogger(cfg.LogLevel)
		c.App.Metadata["config"] = cfg

		v := version.Get()
		utils.Log.Debug().Str("commit", v.GitCommit).Str("compiled with", v.GoVersion).Str("version", v.Version).Msg("Bootward")
		return nil
	}
	app.Commands = cmd.Commands

	if err := app.Run(os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
