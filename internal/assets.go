package internal

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"helpdesk-api/internal/cache"
	"helpdesk-api/internal/models"
	"helpdesk-api/internal/store"
)

// LIST with status & name search, paged after the cached query
func (s *Server) listAssets(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	scope := scopeOf(r)

	key := cache.Key{Entity: cache.EntityAssets, Scope: scope, Params: params.cacheParams()}
	assets, err := cache.Fetch(r.Context(), s.Cache, s.Metrics, key, func(ctx context.Context) ([]models.Asset, error) {
		return s.Store.ListAssets(ctx, scope, store.AssetFilter{Status: params.status, Search: params.q})
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sendListResponse(w, page(assets, params), len(assets), params)
}

func (s *Server) getAsset(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.Store.GetAsset(r.Context(), scopeOf(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) createAsset(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAssetRequest
	if err := s.decode(r, &req); err != nil {
		s.mutationFailed(w, r, "Failed to create asset", err)
		return
	}

	scope := scopeOf(r)
	a, err := s.Store.CreateAsset(r.Context(), scope, req)
	if err != nil {
		s.mutationFailed(w, r, "Failed to create asset", err)
		return
	}
	s.mutated(w, r, http.StatusCreated, scope, cache.EntityAssets, "Asset created", a)
}

func (s *Server) updateAsset(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.mutationFailed(w, r, "Failed to update asset", err)
		return
	}
	var req models.UpdateAssetRequest
	if err := s.decode(r, &req); err != nil {
		s.mutationFailed(w, r, "Failed to update asset", err)
		return
	}

	scope := scopeOf(r)
	a, err := s.Store.UpdateAsset(r.Context(), scope, id, req)
	if err != nil {
		s.mutationFailed(w, r, "Failed to update asset", err)
		return
	}
	s.mutated(w, r, http.StatusOK, scope, cache.EntityAssets, "Asset updated", a)
}

func (s *Server) deleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.mutationFailed(w, r, "Failed to delete asset", err)
		return
	}
	scope := scopeOf(r)
	if err := s.Store.DeleteAsset(r.Context(), scope, id); err != nil {
		s.mutationFailed(w, r, "Failed to delete asset", err)
		return
	}
	s.mutated(w, r, http.StatusOK, scope, cache.EntityAssets, "Asset deleted", nil)
}

// assignAsset hands an asset to a user; an asset already out answers 409
func (s *Server) assignAsset(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.mutationFailed(w, r, "Failed to assign asset", err)
		return
	}
	var req models.AssignAssetRequest
	if err := s.decode(r, &req); err != nil {
		s.mutationFailed(w, r, "Failed to assign asset", err)
		return
	}

	scope := scopeOf(r)
	aa, err := s.Store.AssignAsset(r.Context(), scope, id, req)
	if err != nil {
		s.mutationFailed(w, r, "Failed to assign asset", err)
		return
	}
	s.mutated(w, r, http.StatusCreated, scope, cache.EntityAssignments, "Asset assigned", aa)
}

// listAssignments serves ?state=active (default) or ?state=returned
func (s *Server) listAssignments(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	state := r.URL.Query().Get("state")
	switch state {
	case "":
		state = store.AssignmentsActive
	case store.AssignmentsActive, store.AssignmentsReturned:
	default:
		s.writeError(w, r, badRequest("state must be active or returned"))
		return
	}

	scope := scopeOf(r)
	key := cache.Key{Entity: cache.EntityAssignments, Scope: scope, Params: state}
	out, err := cache.Fetch(r.Context(), s.Cache, s.Metrics, key, func(ctx context.Context) ([]models.AssetAssignment, error) {
		return s.Store.ListAssignments(ctx, scope, state)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sendListResponse(w, page(out, params), len(out), params)
}

func (s *Server) returnAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.mutationFailed(w, r, "Failed to return asset", err)
		return
	}
	scope := scopeOf(r)
	aa, err := s.Store.ReturnAssignment(r.Context(), scope, id)
	if err != nil {
		s.mutationFailed(w, r, "Failed to return asset", err)
		return
	}
	s.mutated(w, r, http.StatusOK, scope, cache.EntityAssignments, "Asset returned", aa)
}

func (s *Server) itamStats(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	key := cache.Key{Entity: cache.EntityITAMStats, Scope: scope}
	stats, err := cache.Fetch(r.Context(), s.Cache, s.Metrics, key, func(ctx context.Context) (models.AssetStats, error) {
		return s.Store.AssetStats(ctx, scope)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// afterImport drops cached asset queries once an import has committed
func (s *Server) afterImport(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next(ww, r)
		if ww.Status() < 200 || ww.Status() >= 300 || r.FormValue("dry_run") == "true" {
			return
		}
		if err := s.Cache.Invalidate(r.Context(), cache.EntityAssets); err != nil {
			s.Logger.Warn("cache invalidation failed", zap.String("entity", cache.EntityAssets), zap.Error(err))
		}
	}
}
