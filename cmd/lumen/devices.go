// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/gogpu/lumen/gpu"
)

// listDevices prints the adapters of the selected backend.
func listDevices(ctx *cli.Context) error {
	b, err := lookupBackend(ctx.String("backend"))
	if err != nil {
		return err
	}
	adapters, err := b.adapters()
	if err != nil {
		return err
	}
	displayAdapters(os.Stdout, adapters)
	return nil
}

func displayAdapters(w io.Writer, adapters []gpu.AdapterInfo) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"#", "Name", "Type"})
	for _, a := range adapters {
		table.Append([]string{fmt.Sprintf("%d", a.Index), a.Name, fmt.Sprint(a.DeviceType)})
	}
	table.Render()
}
