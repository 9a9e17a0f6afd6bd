package internal

import (
	"context"
	"net/http"

	"helpdesk-api/internal/cache"
	"helpdesk-api/internal/models"
)

// LIST with name search; each vendor carries its tool count
func (s *Server) listVendors(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	scope := scopeOf(r)

	key := cache.Key{Entity: cache.EntityVendors, Scope: scope, Params: "q=" + params.q}
	vendors, err := cache.Fetch(r.Context(), s.Cache, s.Metrics, key, func(ctx context.Context) ([]models.Vendor, error) {
		return s.Store.ListVendors(ctx, scope, params.q)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sendListResponse(w, page(vendors, params), len(vendors), params)
}

func (s *Server) getVendor(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.Store.GetVendor(r.Context(), scopeOf(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) createVendor(w http.ResponseWriter, r *http.Request) {
	var req models.CreateVendorRequest
	if err := s.decode(r, &req); err != nil {
		s.mutationFailed(w, r, "Failed to add vendor", err)
		return
	}
	scope := scopeOf(r)
	v, err := s.Store.CreateVendor(r.Context(), scope, req)
	if err != nil {
		s.mutationFailed(w, r, "Failed to add vendor", err)
		return
	}
	s.mutated(w, r, http.StatusCreated, scope, cache.EntityVendors, v.VendorName+" added", v)
}

func (s *Server) updateVendor(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.mutationFailed(w, r, "Failed to update vendor", err)
		return
	}
	var req models.UpdateVendorRequest
	if err := s.decode(r, &req); err != nil {
		s.mutationFailed(w, r, "Failed to update vendor", err)
		return
	}
	scope := scopeOf(r)
	v, err := s.Store.UpdateVendor(r.Context(), scope, id, req)
	if err != nil {
		s.mutationFailed(w, r, "Failed to update vendor", err)
		return
	}
	s.mutated(w, r, http.StatusOK, scope, cache.EntityVendors, v.VendorName+" updated", v)
}

func (s *Server) deleteVendor(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.mutationFailed(w, r, "Failed to delete vendor", err)
		return
	}
	scope := scopeOf(r)
	if err := s.Store.DeleteVendor(r.Context(), scope, id); err != nil {
		s.mutationFailed(w, r, "Failed to delete vendor", err)
		return
	}
	s.mutated(w, r, http.StatusOK, scope, cache.EntityVendors, "Vendor deleted", nil)
}
