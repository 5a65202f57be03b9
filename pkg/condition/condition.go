// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package condition evaluates a single PrimitiveCondition against a
// RequestContext.
package condition

import (
	"regexp"
	"strconv"
	"strings"

	"remoteconfig/pkg/model"
)

// Evaluate reports whether c holds against ctx. Unknown condition types
// or operators evaluate to false. A missing context value evaluates to
// false for every operator except "ne", which evaluates to true (absence
// trivially satisfies "not equal").
func Evaluate(c model.PrimitiveCondition, ctx model.RequestContext) bool {
	actual, ok := extract(c.Type, ctx)
	if !ok {
		return c.Operator == model.OpNe
	}
	return apply(c.Operator, actual, c.Value)
}

func extract(t model.ConditionType, ctx model.RequestContext) (string, bool) {
	switch t {
	case model.CondAppVersion:
		if ctx.AppVersion == "" {
			return "", false
		}
		return ctx.AppVersion, true
	case model.CondOS:
		if ctx.OS != "" {
			return ctx.OS, true
		}
		if ctx.ParsedUA != nil && ctx.ParsedUA.OS.Name != "" {
			return ctx.ParsedUA.OS.Name, true
		}
		return "", false
	case model.CondDevice:
		if ctx.Device != "" {
			return ctx.Device, true
		}
		if ctx.ParsedUA != nil && ctx.ParsedUA.Device.Type != "" {
			return ctx.ParsedUA.Device.Type, true
		}
		return "", false
	case model.CondGeoCountry:
		if ctx.ClientGeo != nil && ctx.ClientGeo.Country != "" {
			return ctx.ClientGeo.Country, true
		}
		if ctx.GeoCountry != "" {
			return ctx.GeoCountry, true
		}
		return "", false
	case model.CondGeoRegion:
		if ctx.ClientGeo != nil && ctx.ClientGeo.Region != "" {
			return ctx.ClientGeo.Region, true
		}
		if ctx.GeoRegion != "" {
			return ctx.GeoRegion, true
		}
		return "", false
	case model.CondTimeAfter, model.CondTimeBefore:
		if ctx.TimestampMs == 0 {
			return "", false
		}
		return strconv.FormatInt(ctx.TimestampMs, 10), true
	case model.CondUserAgentMatch:
		if ctx.UserAgent == "" {
			return "", false
		}
		return ctx.UserAgent, true
	default:
		return "", false
	}
}

func apply(op model.ConditionOperator, actual string, want model.Value) bool {
	switch op {
	case model.OpEq:
		return actual == valueString(want)
	case model.OpNe:
		return actual != valueString(want)
	case model.OpGt:
		return compareNumeric(actual, want) > 0
	case model.OpLt:
		return compareNumeric(actual, want) < 0
	case model.OpGte:
		return compareNumeric(actual, want) >= 0
	case model.OpLte:
		return compareNumeric(actual, want) <= 0
	case model.OpIn:
		return containsValue(want, actual)
	case model.OpRegex:
		pattern := valueString(want)
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(actual)
	default:
		return false
	}
}

func valueString(v model.Value) string {
	switch v.Kind {
	case model.KindString:
		return v.Str
	case model.KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case model.KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return ""
	}
}

// compareNumeric compares actual and want numerically when both parse as
// numbers (digit-string timestamps included), falling back to lexical
// string comparison otherwise (e.g. dotted version strings).
func compareNumeric(actual string, want model.Value) int {
	af, aerr := strconv.ParseFloat(actual, 64)
	wf, werr := parseValueFloat(want)
	if aerr == nil && werr == nil {
		switch {
		case af < wf:
			return -1
		case af > wf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(actual, valueString(want))
}

func parseValueFloat(v model.Value) (float64, error) {
	if v.Kind == model.KindNumber {
		return v.Number, nil
	}
	return strconv.ParseFloat(valueString(v), 64)
}

func containsValue(haystack model.Value, needle string) bool {
	if haystack.Kind != model.KindArray {
		return valueString(haystack) == needle
	}
	for _, item := range haystack.Array {
		if valueString(item) == needle {
			return true
		}
	}
	return false
}
