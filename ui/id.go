// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package ui

import (
	"hash/fnv"
	"reflect"
)

// ID identifies a widget across frames.
type ID uint64

// mix64 is the splitmix64 finalizer.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// WidgetID returns the identity of a widget: the FNV-1a hash of its label
// combined with a hash of its kind and, when addr is not zero, of the
// address of the value it edits.
func WidgetID(label string, kind Kind, addr uintptr) ID {
	h := fnv.New64a()
	_, _ = h.Write([]byte(label))
	id := h.Sum64() ^ mix64(uint64(kind)+0x9e3779b97f4a7c15)
	if addr != 0 {
		id ^= mix64(uint64(addr))
	}
	return ID(id)
}

// withParent scopes id to a menu so equal item labels in different menus
// do not collide.
func withParent(id, parent ID) ID {
	if parent == 0 {
		return id
	}
	return ID(uint64(id) ^ mix64(uint64(parent)))
}

func addressOf(p any) uintptr {
	return reflect.ValueOf(p).Pointer()
}
