// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package specfile

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleBundle = `
specifications:
  - appId: myapp
    version: "1.0.0"
    defaultConfig:
      theme: light
      fontSize: 12
    schema:
      required: [theme]
      optional: [fontSize]
    rules:
      - id: dark-mode
        name: Dark Mode
        priority: 5
        enabled: true
        resolutionStrategy: merge
        config:
          theme: dark
`

func TestLoad_ParsesBundleIntoSpecifications(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bundle.yaml")
	if err := os.WriteFile(path, []byte(sampleBundle), 0o644); err != nil {
		t.Fatalf("test setup failed: %v", err)
	}

	specs, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("expected one specification, got %d", len(specs))
	}
	spec := specs[0]
	if spec.AppID != "myapp" || spec.Version != "1.0.0" {
		t.Fatalf("expected parsed appId/version, got %+v", spec)
	}

	theme, ok := spec.DefaultConfig.Get("theme")
	if !ok || theme.Str != "light" {
		t.Fatalf("expected defaultConfig.theme=light, got %+v", spec.DefaultConfig)
	}
	if len(spec.Schema.Required) != 1 || spec.Schema.Required[0] != "theme" {
		t.Fatalf("expected schema.required=[theme], got %+v", spec.Schema)
	}
	if len(spec.Rules) != 1 || spec.Rules[0].ID != "dark-mode" {
		t.Fatalf("expected one rule named dark-mode, got %+v", spec.Rules)
	}
	ruleTheme, _ := spec.Rules[0].Config.Get("theme")
	if ruleTheme.Str != "dark" {
		t.Fatalf("expected rule config theme=dark, got %+v", ruleTheme)
	}
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoad_DefaultsResolutionStrategyToMerge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bundle.yaml")
	bundle := `
specifications:
  - appId: myapp
    version: "1.0.0"
    rules:
      - id: r1
        config:
          a: 1
`
	if err := os.WriteFile(path, []byte(bundle), 0o644); err != nil {
		t.Fatalf("test setup failed: %v", err)
	}

	specs, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if specs[0].Rules[0].ResolutionStrategy != "merge" {
		t.Fatalf("expected default resolutionStrategy=merge, got %q", specs[0].Rules[0].ResolutionStrategy)
	}
}
