// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/lumen/gpu"
)

// backend opens devices and lists adapters for one HAL backend.
type backend struct {
	open     func(frames int) (*gpu.Device, func(), error)
	adapters func() ([]gpu.AdapterInfo, error)
}

var backends = map[string]backend{
	"noop": {open: openNoop, adapters: noopAdapters},
}

// defaultBackend is replaced by GPU builds with a hardware backend.
var defaultBackend = "noop"

func backendNames() string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}

func lookupBackend(name string) (backend, error) {
	b, ok := backends[strings.ToLower(name)]
	if !ok {
		return backend{}, fmt.Errorf("unknown backend %q, want one of %s", name, backendNames())
	}
	return b, nil
}

// registerHAL adds a backend registered with the HAL under id.
func registerHAL(name string, id gputypes.Backend) {
	backends[name] = backend{
		open: func(frames int) (*gpu.Device, func(), error) {
			d, err := gpu.Open(id, gpu.WithFramesInFlight(frames))
			if err != nil {
				return nil, nil, err
			}
			return d, func() { _ = d.Close() }, nil
		},
		adapters: func() ([]gpu.AdapterInfo, error) { return gpu.Adapters(id) },
	}
}

func openNoop(frames int) (*gpu.Device, func(), error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, nil, err
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, gpu.ErrNoDevice
	}
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, err
	}
	d, err := gpu.NewDevice(open.Device, open.Queue, gpu.WithFramesInFlight(frames))
	if err != nil {
		open.Device.Destroy()
		instance.Destroy()
		return nil, nil, err
	}
	return d, func() {
		_ = d.Close()
		open.Device.Destroy()
		instance.Destroy()
	}, nil
}

func noopAdapters() ([]gpu.AdapterInfo, error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, err
	}
	defer instance.Destroy()
	exposed := instance.EnumerateAdapters(nil)
	infos := make([]gpu.AdapterInfo, 0, len(exposed))
	for i := range exposed {
		infos = append(infos, gpu.AdapterInfo{
			Name:       exposed[i].Info.Name,
			DeviceType: exposed[i].Info.DeviceType,
			Index:      i,
		})
	}
	return infos, nil
}
