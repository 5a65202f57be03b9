// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package uaparser is the external UserAgent-parsing collaborator: it
// turns a raw User-Agent header into the {os, device} pair the Condition
// Evaluator falls back to when the request context doesn't carry them
// directly. The core pipeline only depends on the Parser interface;
// this file's regex-based implementation is one possible backing, not
// part of the resolution core itself.
package uaparser

import (
	"regexp"
	"strings"

	"remoteconfig/pkg/model"
)

// Parser turns a raw User-Agent header into a ParsedUserAgent.
type Parser interface {
	Parse(userAgent string) model.ParsedUserAgent
}

var (
	iosRe     = regexp.MustCompile(`(?i)iphone|ipad|ipod`)
	androidRe = regexp.MustCompile(`(?i)android`)
	tabletRe  = regexp.MustCompile(`(?i)ipad|tablet`)
)

// Basic is a small heuristic Parser good enough for development and
// tests; production deployments are expected to supply their own Parser
// backed by a maintained user-agent database.
type Basic struct{}

// NewBasic returns the heuristic Parser.
func NewBasic() Basic { return Basic{} }

func (Basic) Parse(userAgent string) model.ParsedUserAgent {
	ua := strings.ToLower(userAgent)

	var osName string
	switch {
	case iosRe.MatchString(ua):
		osName = "ios"
	case androidRe.MatchString(ua):
		osName = "android"
	case strings.Contains(ua, "windows"):
		osName = "windows"
	case strings.Contains(ua, "mac os"):
		osName = "macos"
	case strings.Contains(ua, "linux"):
		osName = "linux"
	}

	deviceType := "desktop"
	if tabletRe.MatchString(ua) {
		deviceType = "tablet"
	} else if iosRe.MatchString(ua) || androidRe.MatchString(ua) {
		deviceType = "mobile"
	}

	return model.ParsedUserAgent{
		OS:     model.OSInfo{Name: osName},
		Device: model.DeviceInfo{Type: deviceType},
	}
}
