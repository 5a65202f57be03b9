// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"remoteconfig/pkg/model"
)

// File wraps Memory with JSON-file persistence: every specification is
// read from disk once at construction, and every Save/Delete rewrites
// its file under dir named "{appId}-{version}.json". Writes are
// atomic — written to a temp file in the same directory, then renamed
// into place — so a crash mid-write never leaves a truncated file behind.
type File struct {
	dir string
	mem *Memory
}

// NewFile loads every "*.json" file in dir into memory and returns a
// File store backed by it. dir is created if it does not exist.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}

	f := &File{dir: dir, mem: NewMemory()}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("store: read dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("store: read %s: %w", entry.Name(), err)
		}
		var spec model.Specification
		if err := json.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("store: parse %s: %w", entry.Name(), err)
		}
		if _, err := f.mem.Save(context.Background(), spec); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *File) Get(ctx context.Context, appID, version string) (model.Specification, error) {
	return f.mem.Get(ctx, appID, version)
}

func (f *File) List(ctx context.Context) ([]model.Specification, error) {
	return f.mem.List(ctx)
}

func (f *File) Save(ctx context.Context, spec model.Specification) (model.Specification, error) {
	saved, err := f.mem.Save(ctx, spec)
	if err != nil {
		return model.Specification{}, err
	}
	if err := f.write(saved); err != nil {
		return model.Specification{}, err
	}
	return saved, nil
}

func (f *File) Delete(ctx context.Context, appID, version string) error {
	if err := f.mem.Delete(ctx, appID, version); err != nil {
		return err
	}
	path := f.path(appID, version)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: remove %s: %w", path, err)
	}
	return nil
}

func (f *File) path(appID, version string) string {
	return filepath.Join(f.dir, fmt.Sprintf("%s-%s.json", appID, version))
}

func (f *File) write(spec model.Specification) error {
	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal: %w", err)
	}

	target := f.path(spec.AppID, spec.Version)
	tmp := fmt.Sprintf("%s.tmp-%d", target, os.Getpid())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("store: rename into place: %w", err)
	}
	return nil
}
