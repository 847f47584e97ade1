// Package httpapi exposes the engine to its command/UI layer: evaluation,
// tier management and category paging over HTTP+JSON.
package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"advancedentitylimit/internal/limits"
	"advancedentitylimit/internal/permstore"
	"advancedentitylimit/internal/protocol"
)

// EditRecorder indexes admin mutations; nil disables indexing.
type EditRecorder interface {
	RecordEdit(actor uint64, tier, category, field, value string)
}

type Server struct {
	svc    *limits.Service
	perms  *permstore.Store
	edits  EditRecorder
	logger *log.Logger
}

func NewServer(svc *limits.Service, perms *permstore.Store, edits EditRecorder, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{svc: svc, perms: perms, edits: edits, logger: logger}
}

func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/evaluate", s.handleEvaluate)
	mux.HandleFunc("/v1/tiers", s.handleListTiers)
	mux.HandleFunc("/v1/tiers/", s.handleTierRead)
	mux.HandleFunc("/admin/v1/tiers", s.handleCreateTier)
	mux.HandleFunc("/admin/v1/tiers/", s.handleTierEdit)
	mux.HandleFunc("/admin/v1/refresh", s.handleRefresh)
	mux.HandleFunc("/admin/v1/save", s.handleSave)
	mux.HandleFunc("/admin/v1/grants", s.handleGrants)
}

func (s *Server) handleEvaluate(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req protocol.EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(rw, http.StatusBadRequest, protocol.ErrBadRequest, "bad json")
		return
	}

	d := s.svc.Evaluate(req.UserID, req.Category)
	resp := protocol.EvaluateResponse{Allowed: d.Allowed, Limit: d.Limit, Count: d.Count}
	if !d.Allowed && d.Limit >= 0 {
		resp.Message = s.svc.LimitMessage(d.Limit)
	}
	writeJSON(rw, resp)
}

func (s *Server) handleListTiers(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tiers := s.svc.ListTiers()
	out := make([]protocol.TierView, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, protocol.TierView{Name: t.Name, Priority: t.Priority, Categories: len(t.Categories)})
	}
	writeJSON(rw, out)
}

// GET /v1/tiers/{tier}/categories?search=&offset=&limit=
func (s *Server) handleTierRead(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/tiers/")
	tier, tail, ok := strings.Cut(rest, "/")
	if !ok || tail != "categories" || tier == "" {
		http.NotFound(rw, r)
		return
	}

	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	page, err := s.svc.ListCategories(tier, q.Get("search"), offset, limit)
	if err != nil {
		s.writeServiceErr(rw, err)
		return
	}
	writeJSON(rw, page)
}

func (s *Server) handleCreateTier(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	actor, ok := actorID(rw, r)
	if !ok {
		return
	}
	var req protocol.CreateTierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeErr(rw, http.StatusBadRequest, protocol.ErrBadRequest, "bad json")
		return
	}

	t, err := s.svc.CreateTier(actor, req.Name, req.CopyFrom)
	if err != nil {
		s.writeServiceErr(rw, err)
		return
	}
	if s.edits != nil {
		s.edits.RecordEdit(actor, t.Name, "", "create", req.CopyFrom)
	}
	writeJSON(rw, protocol.TierView{Name: t.Name, Priority: t.Priority, Categories: len(t.Categories)})
}

// POST /admin/v1/tiers/{tier}/limit | /admin/v1/tiers/{tier}/enabled
func (s *Server) handleTierEdit(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	actor, ok := actorID(rw, r)
	if !ok {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/admin/v1/tiers/")
	tier, op, ok := strings.Cut(rest, "/")
	if !ok || tier == "" {
		http.NotFound(rw, r)
		return
	}

	switch op {
	case "limit":
		var req protocol.SetLimitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Category == "" {
			writeErr(rw, http.StatusBadRequest, protocol.ErrBadRequest, "bad json")
			return
		}
		if err := s.svc.SetCategoryLimit(actor, tier, req.Category, req.Limit); err != nil {
			s.writeServiceErr(rw, err)
			return
		}
		if s.edits != nil {
			s.edits.RecordEdit(actor, tier, req.Category, "limit", strconv.Itoa(req.Limit))
		}
		rw.WriteHeader(http.StatusNoContent)
	case "enabled":
		var req protocol.SetEnabledRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Category == "" {
			writeErr(rw, http.StatusBadRequest, protocol.ErrBadRequest, "bad json")
			return
		}
		if err := s.svc.SetCategoryEnabled(actor, tier, req.Category, req.Enabled); err != nil {
			s.writeServiceErr(rw, err)
			return
		}
		if s.edits != nil {
			s.edits.RecordEdit(actor, tier, req.Category, "enabled", strconv.FormatBool(req.Enabled))
		}
		rw.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(rw, r)
	}
}

func (s *Server) handleRefresh(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	changed, err := s.svc.RefreshCatalog()
	if err != nil {
		s.writeServiceErr(rw, err)
		return
	}
	writeJSON(rw, map[string]bool{"changed": changed})
}

func (s *Server) handleSave(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.svc.Save(); err != nil {
		writeErr(rw, http.StatusInternalServerError, protocol.ErrNotDurable, err.Error())
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGrants(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	actor, ok := actorID(rw, r)
	if !ok {
		return
	}
	if actor != 0 && !s.perms.HasCapability(actor, limits.PermAdmin) {
		writeErr(rw, http.StatusForbidden, protocol.ErrNoPermission, "admin only")
		return
	}
	var req protocol.GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Permission == "" || req.UserID == 0 {
		writeErr(rw, http.StatusBadRequest, protocol.ErrBadRequest, "bad json")
		return
	}
	if req.Revoke {
		s.perms.Revoke(req.UserID, req.Permission)
	} else {
		s.perms.Grant(req.UserID, req.Permission)
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeServiceErr(rw http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, limits.ErrNoPermission):
		writeErr(rw, http.StatusForbidden, protocol.ErrNoPermission, err.Error())
	case errors.Is(err, limits.ErrTierExists):
		writeErr(rw, http.StatusConflict, protocol.ErrTierExists, err.Error())
	case errors.Is(err, limits.ErrTierNotFound):
		writeErr(rw, http.StatusNotFound, protocol.ErrTierNotFound, err.Error())
	case errors.Is(err, limits.ErrCategoryNotFound):
		writeErr(rw, http.StatusNotFound, protocol.ErrCategoryNotFound, err.Error())
	case errors.Is(err, limits.ErrBadName), errors.Is(err, limits.ErrBadLimit):
		writeErr(rw, http.StatusBadRequest, protocol.ErrBadName, err.Error())
	default:
		s.logger.Printf("admin api: %v", err)
		writeErr(rw, http.StatusInternalServerError, protocol.ErrInternal, err.Error())
	}
}

// actorID reads the acting operator from the X-Actor-ID header; absent
// means the console (0).
func actorID(rw http.ResponseWriter, r *http.Request) (uint64, bool) {
	h := strings.TrimSpace(r.Header.Get("X-Actor-ID"))
	if h == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(h, 10, 64)
	if err != nil {
		writeErr(rw, http.StatusBadRequest, protocol.ErrBadRequest, "bad X-Actor-ID")
		return 0, false
	}
	return id, true
}

func writeJSON(rw http.ResponseWriter, v any) {
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(v)
}

func writeErr(rw http.ResponseWriter, status int, code, msg string) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(protocol.ErrorResponse{Code: code, Message: msg})
}
