package internal

import (
	"context"
	"net/http"
	"strconv"

	"helpdesk-api/internal/auth"
	"helpdesk-api/internal/cache"
	"helpdesk-api/internal/filter"
	"helpdesk-api/internal/models"
	"helpdesk-api/internal/spend"
)

// annotateSLA fills SLADaysLeft for open tickets with a due date
func (s *Server) annotateSLA(tickets []models.Ticket) {
	now := s.now()
	for i := range tickets {
		t := &tickets[i]
		if t.SLADueDate == nil || !t.IsOpen() {
			continue
		}
		days := spend.DaysUntil(*t.SLADueDate, now)
		t.SLADaysLeft = &days
	}
}

// LIST with filter criteria & pagination over the cached scoped list
func (s *Server) listTickets(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	criteria, err := filter.FromQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, badRequest(err.Error()))
		return
	}

	scope := scopeOf(r)
	key := cache.Key{Entity: cache.EntityTickets, Scope: scope}
	tickets, err := cache.Fetch(r.Context(), s.Cache, s.Metrics, key, func(ctx context.Context) ([]models.Ticket, error) {
		return s.Store.ListTickets(ctx, scope)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	tickets = filter.Tickets(tickets, criteria)
	s.annotateSLA(tickets)
	sendListResponse(w, page(tickets, params), len(tickets), params)
}

func (s *Server) getTicket(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.Store.GetTicket(r.Context(), scopeOf(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	one := []models.Ticket{t}
	s.annotateSLA(one)
	writeJSON(w, http.StatusOK, one[0])
}

func (s *Server) createTicket(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTicketRequest
	if err := s.decode(r, &req); err != nil {
		s.mutationFailed(w, r, "Failed to create ticket", err)
		return
	}

	scope := scopeOf(r)
	t, err := s.Store.CreateTicket(r.Context(), scope, auth.UserIDFromContext(r.Context()), req)
	if err != nil {
		s.mutationFailed(w, r, "Failed to create ticket", err)
		return
	}
	s.mutated(w, r, http.StatusCreated, scope, cache.EntityTickets, "Ticket "+t.TicketNumber+" created", t)
}

func (s *Server) updateTicket(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.mutationFailed(w, r, "Failed to update ticket", err)
		return
	}
	var req models.UpdateTicketRequest
	if err := s.decode(r, &req); err != nil {
		s.mutationFailed(w, r, "Failed to update ticket", err)
		return
	}

	scope := scopeOf(r)
	t, err := s.Store.UpdateTicket(r.Context(), scope, auth.UserIDFromContext(r.Context()), id, req)
	if err != nil {
		s.mutationFailed(w, r, "Failed to update ticket", err)
		return
	}
	s.mutated(w, r, http.StatusOK, scope, cache.EntityTickets, "Ticket updated", t)
}

func (s *Server) deleteTicket(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.mutationFailed(w, r, "Failed to delete ticket", err)
		return
	}
	scope := scopeOf(r)
	if err := s.Store.DeleteTicket(r.Context(), scope, id); err != nil {
		s.mutationFailed(w, r, "Failed to delete ticket", err)
		return
	}
	s.mutated(w, r, http.StatusOK, scope, cache.EntityTickets, "Ticket deleted", nil)
}

// ticketDetail loads the ticket and every tab concurrently; any failure fails the bundle
func (s *Server) ticketDetail(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	scope := scopeOf(r)
	key := cache.Key{Entity: cache.EntityTicketDetail, Scope: scope, Params: strconv.FormatInt(id, 10)}
	detail, err := cache.Fetch(r.Context(), s.Cache, s.Metrics, key, func(ctx context.Context) (models.TicketDetail, error) {
		var d models.TicketDetail
		g, ctx := s.fanOut(ctx)
		g.Go(func() (err error) {
			d.Ticket, err = s.Store.GetTicket(ctx, scope, id)
			return err
		})
		g.Go(func() (err error) {
			d.Comments, err = s.Store.TicketComments(ctx, scope, id)
			return err
		})
		g.Go(func() (err error) {
			d.History, err = s.Store.TicketHistory(ctx, scope, id)
			return err
		})
		g.Go(func() (err error) {
			d.Attachments, err = s.Store.TicketAttachments(ctx, scope, id)
			return err
		})
		g.Go(func() (err error) {
			d.Problems, err = s.Store.TicketProblems(ctx, scope, id)
			return err
		})
		if err := g.Wait(); err != nil {
			return models.TicketDetail{}, err
		}
		return d, nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	one := []models.Ticket{detail.Ticket}
	s.annotateSLA(one)
	detail.Ticket = one[0]
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	comments, err := s.Store.TicketComments(r.Context(), scopeOf(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.mutationFailed(w, r, "Failed to add comment", err)
		return
	}
	var req models.CreateCommentRequest
	if err := s.decode(r, &req); err != nil {
		s.mutationFailed(w, r, "Failed to add comment", err)
		return
	}

	scope := scopeOf(r)
	c, err := s.Store.AddComment(r.Context(), scope, auth.UserIDFromContext(r.Context()), id, req)
	if err != nil {
		s.mutationFailed(w, r, "Failed to add comment", err)
		return
	}
	s.mutated(w, r, http.StatusCreated, scope, cache.EntityTicketDetail, "Comment added", c)
}

func (s *Server) ticketHistory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	history, err := s.Store.TicketHistory(r.Context(), scopeOf(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) ticketAttachments(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	attachments, err := s.Store.TicketAttachments(r.Context(), scopeOf(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attachments)
}

func (s *Server) ticketProblems(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	problems, err := s.Store.TicketProblems(r.Context(), scopeOf(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, problems)
}

func (s *Server) linkProblem(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.mutationFailed(w, r, "Failed to link problem", err)
		return
	}
	var req models.LinkProblemRequest
	if err := s.decode(r, &req); err != nil {
		s.mutationFailed(w, r, "Failed to link problem", err)
		return
	}

	scope := scopeOf(r)
	lp, err := s.Store.LinkProblem(r.Context(), scope, id, req.ProblemID)
	if err != nil {
		s.mutationFailed(w, r, "Failed to link problem", err)
		return
	}
	s.mutated(w, r, http.StatusCreated, scope, cache.EntityProblems, "Problem "+lp.ProblemNumber+" linked", lp)
}

func (s *Server) helpdeskStats(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	key := cache.Key{Entity: cache.EntityHelpdeskStats, Scope: scope}
	stats, err := cache.Fetch(r.Context(), s.Cache, s.Metrics, key, func(ctx context.Context) (models.HelpdeskStats, error) {
		return s.Store.HelpdeskStats(ctx, scope)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
