// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"remoteconfig/internal/logging"
	"remoteconfig/pkg/geoip"
	"remoteconfig/pkg/model"
	"remoteconfig/pkg/store"
	"remoteconfig/pkg/uaparser"
)

func newTestServer() (*Server, store.Store) {
	s := store.NewMemory()
	srv := New(s, uaparser.NewBasic(), geoip.None{}, logging.New(false))
	return srv, s
}

func TestHandleHealth_ReturnsOK(t *testing.T) {
	srv, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestHandleResolve_UnknownSpecReturns404(t *testing.T) {
	srv, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/config/missing/1.0.0", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHandleResolve_ReturnsFoldedConfig(t *testing.T) {
	srv, s := newTestServer()
	s.Save(context.Background(), model.Specification{
		AppID:         "app1",
		Version:       "1.0.0",
		DefaultConfig: model.Object(model.KV{Key: "theme", Value: model.String("light")}),
	})

	req := httptest.NewRequest(http.MethodGet, "/config/app1/1.0.0", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	config, ok := body["config"].(map[string]any)
	if !ok || config["theme"] != "light" {
		t.Fatalf("expected config.theme=light, got %+v", body)
	}
}

func TestHandleResolve_ClientGeoTakesPrecedence(t *testing.T) {
	s := store.NewMemory()
	// The IP lookup would place the request in DE; the client-supplied
	// country=US must win over it.
	geo := geoip.NewStatic(map[string]geoip.Location{"192.0.2.1": {Country: "DE"}})
	srv := New(s, uaparser.NewBasic(), geo, logging.New(false))
	s.Save(context.Background(), model.Specification{
		AppID:         "app1",
		Version:       "1.0.0",
		DefaultConfig: model.Null(),
		Rules: []model.Rule{
			{ID: "us-only", Enabled: true, ResolutionStrategy: model.StrategyMerge,
				Conditions: []model.PrimitiveCondition{{Type: model.CondGeoCountry, Operator: model.OpEq, Value: model.String("US")}},
				Config:     model.Object(model.KV{Key: "matched", Value: model.Bool(true)})},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/config/app1/1.0.0?country=US", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var body map[string]any
	json.Unmarshal(w.Body.Bytes(), &body)
	config, ok := body["config"].(map[string]any)
	if !ok || config["matched"] != true {
		t.Fatalf("expected client geo query param to satisfy geo_country condition, got %+v", body)
	}
}

func TestHandleCreateAndList(t *testing.T) {
	srv, _ := newTestServer()

	createBody := bytes.NewBufferString(`{"appId":"app1","version":"1.0.0","defaultConfig":{"a":1},"schema":{"optional":["a"]},"rules":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/config", createBody)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on create, got %d: %s", w.Code, w.Body.String())
	}

	listReq := httptest.NewRequest(http.MethodGet, "/config", nil)
	listW := httptest.NewRecorder()
	srv.ServeHTTP(listW, listReq)
	var specs []map[string]any
	if err := json.Unmarshal(listW.Body.Bytes(), &specs); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("expected one specification in list, got %d", len(specs))
	}
}

func TestHandleCreate_InvalidDefaultConfigReturns400(t *testing.T) {
	srv, s := newTestServer()

	createBody := bytes.NewBufferString(`{"appId":"app1","version":"1.0.0","defaultConfig":{"a":1},"schema":{"required":["theme"]},"rules":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/config", createBody)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for defaultConfig missing required schema key, got %d: %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if _, ok := body["errors"]; !ok {
		t.Fatalf("expected errors field in response, got %+v", body)
	}

	specs, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(specs) != 0 {
		t.Fatalf("expected invalid specification to not be saved, got %+v", specs)
	}
}

func TestHandleDelete_UnknownSpecReturns404(t *testing.T) {
	srv, _ := newTestServer()
	req := httptest.NewRequest(http.MethodDelete, "/config/missing/1.0.0", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHandleComposeRules_InvalidBodyReturns400(t *testing.T) {
	srv, _ := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/rules/compose", bytes.NewBufferString("not json"))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleComposeRules_EmptySourcesReturns400(t *testing.T) {
	srv, _ := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/rules/compose", bytes.NewBufferString(`{"sources":[],"newId":"x","strategy":"merge"}`))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty composition, got %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleTestConditions_ReportsMatch(t *testing.T) {
	srv, _ := newTestServer()
	body := `{
		"rule": {"id":"r1","enabled":true,"conditions":[{"type":"app_version","operator":"eq","value":"1.0"}]},
		"context": {"appVersion":"1.0"}
	}`
	req := httptest.NewRequest(http.MethodPost, "/rules/test-conditions", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var result map[string]any
	json.Unmarshal(w.Body.Bytes(), &result)
	if result["matched"] != true {
		t.Fatalf("expected matched=true, got %+v", result)
	}
}
