package main

import "github.com/urfave/cli/v2"

func (s *srv) loadApp() {
	app := cli.NewApp()
	app.Action = cli.ShowAppHelp
	app.Name = "RaffleLive"
	app.Usage = ""
	app.Commands = []*cli.Command{
		{
			Action:      s.startApi,
			Name:        "api",
			Usage:       "Start the live draw service",
			Flags:       []cli.Flag{},
			Category:    "Api",
			Description: `Serves viewer websockets and the raffle read api, and runs the draw scheduler.`,
		},
		{
			Action:      s.startMigrate,
			Name:        "migrate",
			Usage:       "Migrate the database schema",
			Flags:       []cli.Flag{},
			Category:    "Database",
			Description: `Creates or updates database tables, then exits.`,
		},
	}

	s.app = app
}
