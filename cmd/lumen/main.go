// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command lumen renders the Cornell box headless and lists GPU adapters.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "lumen:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "lumen"
	app.Usage = "path-trace scenes on the GPU"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable info logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable debug logging",
		},
	}
	app.Before = setupLogging
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render frames of the Cornell box to PNG files",
			Description: `
Render the built-in Cornell box scene without a window. Every frame adds
samples to the accumulation image; the last frame is written to --out.
When --out contains a %d verb every frame is written, numbered from 0.`,
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "width",
					Value: 512,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 512,
					Usage: "frame height",
				},
				cli.IntFlag{
					Name:  "frames, n",
					Value: 16,
					Usage: "number of frames to accumulate",
				},
				cli.IntFlag{
					Name:  "spp",
					Value: 4,
					Usage: "samples per pixel per frame",
				},
				cli.IntFlag{
					Name:  "bounces",
					Value: 4,
					Usage: "ray bounces",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
				cli.StringFlag{
					Name:  "config, c",
					Usage: "TOML config file; flags given explicitly override it",
				},
				cli.StringFlag{
					Name:  "backend, b",
					Value: defaultBackend,
					Usage: "GPU backend (" + backendNames() + ")",
				},
			},
			Action: renderFrames,
		},
		{
			Name:  "devices",
			Usage: "list the adapters of a backend",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "backend, b",
					Value: defaultBackend,
					Usage: "GPU backend (" + backendNames() + ")",
				},
			},
			Action: listDevices,
		},
	}
	return app
}
