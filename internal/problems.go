package internal

import (
	"context"
	"net/http"

	"helpdesk-api/internal/auth"
	"helpdesk-api/internal/cache"
	"helpdesk-api/internal/filter"
	"helpdesk-api/internal/models"
)

func (s *Server) listProblems(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	criteria, err := filter.FromQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, badRequest(err.Error()))
		return
	}

	scope := scopeOf(r)
	key := cache.Key{Entity: cache.EntityProblems, Scope: scope}
	problems, err := cache.Fetch(r.Context(), s.Cache, s.Metrics, key, func(ctx context.Context) ([]models.Problem, error) {
		return s.Store.ListProblems(ctx, scope)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	problems = filter.Problems(problems, criteria)
	sendListResponse(w, page(problems, params), len(problems), params)
}

func (s *Server) getProblem(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.Store.GetProblem(r.Context(), scopeOf(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) createProblem(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProblemRequest
	if err := s.decode(r, &req); err != nil {
		s.mutationFailed(w, r, "Failed to create problem", err)
		return
	}

	scope := scopeOf(r)
	p, err := s.Store.CreateProblem(r.Context(), scope, auth.UserIDFromContext(r.Context()), req)
	if err != nil {
		s.mutationFailed(w, r, "Failed to create problem", err)
		return
	}
	s.mutated(w, r, http.StatusCreated, scope, cache.EntityProblems, "Problem "+p.ProblemNumber+" created", p)
}

func (s *Server) updateProblem(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.mutationFailed(w, r, "Failed to update problem", err)
		return
	}
	var req models.UpdateProblemRequest
	if err := s.decode(r, &req); err != nil {
		s.mutationFailed(w, r, "Failed to update problem", err)
		return
	}

	scope := scopeOf(r)
	p, err := s.Store.UpdateProblem(r.Context(), scope, id, req)
	if err != nil {
		s.mutationFailed(w, r, "Failed to update problem", err)
		return
	}
	s.mutated(w, r, http.StatusOK, scope, cache.EntityProblems, "Problem updated", p)
}

func (s *Server) deleteProblem(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.mutationFailed(w, r, "Failed to delete problem", err)
		return
	}
	scope := scopeOf(r)
	if err := s.Store.DeleteProblem(r.Context(), scope, id); err != nil {
		s.mutationFailed(w, r, "Failed to delete problem", err)
		return
	}
	s.mutated(w, r, http.StatusOK, scope, cache.EntityProblems, "Problem deleted", nil)
}

// problemTickets lists the tickets linked to a problem
func (s *Server) problemTickets(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tickets, err := s.Store.ProblemTickets(r.Context(), scopeOf(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.annotateSLA(tickets)
	writeJSON(w, http.StatusOK, tickets)
}
