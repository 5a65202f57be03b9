// SPDX-License-Identifier: AGPL-3.0-or-later

/*

remoteconfig - a context-aware configuration resolution service for mobile clients.

Copyright (C) 2025  Bartek Kus

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

// Package httpapi is the HTTP transport surface described in SPEC_FULL.md
// §6: a thin net/http adapter over pkg/resolver. No pipeline semantics
// live here — every handler's job is request decoding, calling the
// resolver or store, and response encoding.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"remoteconfig/internal/logging"
	"remoteconfig/pkg/chain"
	"remoteconfig/pkg/compose"
	"remoteconfig/pkg/evaluator"
	"remoteconfig/pkg/geoip"
	"remoteconfig/pkg/model"
	"remoteconfig/pkg/resolver"
	"remoteconfig/pkg/schema"
	"remoteconfig/pkg/store"
	"remoteconfig/pkg/uaparser"
)

// Server wires the resolution core to net/http.
type Server struct {
	store    store.Store
	resolve  *resolver.Resolver
	uaParser uaparser.Parser
	geo      geoip.Resolver
	log      logging.Logger
	mux      *http.ServeMux
}

// New builds a Server and registers its routes.
func New(s store.Store, uaParser uaparser.Parser, geo geoip.Resolver, log logging.Logger) *Server {
	srv := &Server{
		store:    s,
		resolve:  resolver.New(s),
		uaParser: uaParser,
		geo:      geo,
		log:      log,
		mux:      http.NewServeMux(),
	}
	srv.routes()
	return srv
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /config/{appId}/{version}", s.handleResolve)
	s.mux.HandleFunc("PUT /config/{appId}/{version}", s.handleReplace)
	s.mux.HandleFunc("DELETE /config/{appId}/{version}", s.handleDelete)
	s.mux.HandleFunc("GET /config", s.handleList)
	s.mux.HandleFunc("POST /config", s.handleCreate)
	s.mux.HandleFunc("POST /rules/compose", s.handleComposeRules)
	s.mux.HandleFunc("POST /rules/from-template", s.handleFromTemplate)
	s.mux.HandleFunc("POST /rules/test-conditions", s.handleTestConditions)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.NewString()
	log := s.log.WithFields(logging.Field{Key: "trace_id", Value: traceID})

	appID := r.PathValue("appId")
	version := r.PathValue("version")

	reqCtx := s.buildContext(r)

	resp, err := s.resolve.Resolve(r.Context(), appID, version, reqCtx)
	if err != nil {
		s.writeError(w, log, err)
		return
	}

	matched := make([]map[string]any, 0, len(resp.MatchedRules))
	for _, m := range resp.MatchedRules {
		matched = append(matched, map[string]any{
			"id":       m.ID,
			"name":     m.Name,
			"priority": m.Priority,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"appId":   resp.AppID,
		"version": resp.Version,
		"config":  resp.Config,
		"matchedRules": matched,
		"validation": map[string]any{
			"valid":  resp.Validation.Valid,
			"errors": resp.Validation.Errors,
		},
		"context": map[string]any{
			"os":         reqCtx.OS,
			"device":     reqCtx.Device,
			"geoCountry": reqCtx.GeoCountry,
			"geoRegion":  reqCtx.GeoRegion,
		},
	})
}

// buildContext assembles a RequestContext from query params and headers,
// resolving UA and geolocation only when the caller didn't supply the
// derived values directly. Client-supplied geo always takes precedence
// over an IP lookup.
func (s *Server) buildContext(r *http.Request) model.RequestContext {
	q := r.URL.Query()

	ctx := model.RequestContext{
		AppVersion:  q.Get("appVersion"),
		OS:          q.Get("os"),
		Device:      q.Get("device"),
		UserAgent:   r.Header.Get("User-Agent"),
		GeoCountry:  q.Get("geoCountry"),
		GeoRegion:   q.Get("geoRegion"),
		UserID:      q.Get("userId"),
		Environment: q.Get("env"),
		TimestampMs: time.Now().UnixMilli(),
	}

	if country, region := q.Get("country"), q.Get("region"); country != "" || region != "" {
		ctx.ClientGeo = &model.ClientGeo{Country: country, Region: region}
	} else if s.geo != nil && ctx.GeoCountry == "" && ctx.GeoRegion == "" {
		if loc, ok := s.geo.Resolve(r.Context(), clientIP(r)); ok {
			ctx.GeoCountry = loc.Country
			ctx.GeoRegion = loc.Region
		}
	}

	if ctx.UserAgent != "" && s.uaParser != nil && (ctx.OS == "" || ctx.Device == "") {
		parsed := s.uaParser.Parse(ctx.UserAgent)
		ctx.ParsedUA = &parsed
	}

	if flags := q.Get("flags"); flags != "" {
		ctx.FeatureFlags = map[string]bool{}
		for _, name := range strings.Split(flags, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				ctx.FeatureFlags[name] = true
			}
		}
	}

	if raw := q.Get("context"); raw != "" {
		var v model.Value
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			ctx.CustomContext = v
		}
	}

	return ctx
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		return host[:idx]
	}
	return host
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	specs, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, specs)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var spec model.Specification
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"invalid JSON body"}})
		return
	}
	if result := schema.Validate(spec.Schema, spec.DefaultConfig); !result.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": result.Errors})
		return
	}
	saved, err := s.store.Save(r.Context(), spec)
	if err != nil {
		s.writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	appID := r.PathValue("appId")
	version := r.PathValue("version")

	existing, err := s.store.Get(r.Context(), appID, version)
	if err != nil {
		s.writeError(w, s.log, err)
		return
	}

	var spec model.Specification
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"invalid JSON body"}})
		return
	}
	spec.AppID = existing.AppID
	spec.Version = existing.Version
	spec.ID = existing.ID
	spec.CreatedAt = existing.CreatedAt

	if result := schema.Validate(spec.Schema, spec.DefaultConfig); !result.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": result.Errors})
		return
	}

	saved, err := s.store.Save(r.Context(), spec)
	if err != nil {
		s.writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	appID := r.PathValue("appId")
	version := r.PathValue("version")
	if err := s.store.Delete(r.Context(), appID, version); err != nil {
		s.writeError(w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleComposeRules(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sources  []model.Rule       `json:"sources"`
		NewID    string             `json:"newId"`
		Strategy model.MergeStrategy `json:"strategy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"invalid JSON body"}})
		return
	}
	rule, err := compose.ComposeRules(req.Sources, req.NewID, req.Strategy)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{err.Error()}})
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleFromTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TemplateID string            `json:"templateId"`
		Overrides  compose.Overrides `json:"overrides"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"invalid JSON body"}})
		return
	}
	c := compose.New()
	rule, err := c.CreateFromTemplate(req.TemplateID, req.Overrides)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{err.Error()}})
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleTestConditions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rule    model.Rule           `json:"rule"`
		Context model.RequestContext `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"invalid JSON body"}})
		return
	}
	rules := chain.Rules{req.Rule.ID: req.Rule}
	result := evaluator.New(rules).Evaluate(req.Rule, req.Context)
	writeJSON(w, http.StatusOK, map[string]any{
		"matched": result.Matched,
		"reason":  result.Reason,
	})
}

func (s *Server) writeError(w http.ResponseWriter, log logging.Logger, err error) {
	switch {
	case err == resolver.ErrNotFound || err == store.ErrNotFound:
		writeJSON(w, http.StatusNotFound, map[string]any{"errors": []string{"not found"}})
	default:
		var compErr *resolver.CompositionError
		if asCompositionError(err, &compErr) {
			log.Error("composition failed", logging.Field{Key: "error", Value: compErr.Error()})
			writeJSON(w, http.StatusInternalServerError, map[string]any{"errors": []string{compErr.Error()}})
			return
		}
		log.Error("internal error", logging.Field{Key: "error", Value: err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]any{"errors": []string{"internal error"}})
	}
}

func asCompositionError(err error, target **resolver.CompositionError) bool {
	ce, ok := err.(*resolver.CompositionError)
	if ok {
		*target = ce
	}
	return ok
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
