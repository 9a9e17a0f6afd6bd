package internal

import (
	"context"
	"net/http"
	"strings"

	"helpdesk-api/internal/cache"
	"helpdesk-api/internal/models"
	"helpdesk-api/internal/spend"
)

// subscriptionDashboard assembles burn rate, renewals and counts for the scope
func (s *Server) subscriptionDashboard(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	key := cache.Key{Entity: cache.EntityDashboard, Scope: scope}
	d, err := cache.Fetch(r.Context(), s.Cache, s.Metrics, key, func(ctx context.Context) (models.SubscriptionDashboard, error) {
		var (
			tools           []models.Tool
			total, assigned int
			vendors         int
		)
		g, ctx := s.fanOut(ctx)
		g.Go(func() (err error) {
			tools, err = s.Store.ListTools(ctx, scope, models.ToolFilter{})
			return err
		})
		g.Go(func() (err error) {
			total, assigned, err = s.Store.LicenseCounts(ctx, scope)
			return err
		})
		g.Go(func() (err error) {
			vendors, err = s.Store.CountVendors(ctx, scope)
			return err
		})
		if err := g.Wait(); err != nil {
			return models.SubscriptionDashboard{}, err
		}

		d := spend.Dashboard(tools, s.Rates, s.now())
		d.TotalLicenses = total
		d.AssignedLicenses = assigned
		d.Vendors = vendors
		return d, nil
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Tools

func (s *Server) listTools(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	scope := scopeOf(r)

	key := cache.Key{Entity: cache.EntityTools, Scope: scope, Params: params.cacheParams() + "&category=" + category}
	tools, err := cache.Fetch(r.Context(), s.Cache, s.Metrics, key, func(ctx context.Context) ([]models.Tool, error) {
		return s.Store.ListTools(ctx, scope, models.ToolFilter{Search: params.q, Status: params.status, Category: category})
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	now := s.now()
	for i := range tools {
		tools[i].DaysUntilRenewal, tools[i].RenewalClass = spend.Countdown(tools[i].RenewalDate, now)
	}
	sendListResponse(w, page(tools, params), len(tools), params)
}

func (s *Server) getTool(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.Store.GetTool(r.Context(), scopeOf(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t.DaysUntilRenewal, t.RenewalClass = spend.Countdown(t.RenewalDate, s.now())
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) createTool(w http.ResponseWriter, r *http.Request) {
	var req models.CreateToolRequest
	if err := s.decode(r, &req); err != nil {
		s.mutationFailed(w, r, "Failed to add tool", err)
		return
	}
	scope := scopeOf(r)
	t, err := s.Store.CreateTool(r.Context(), scope, req)
	if err != nil {
		s.mutationFailed(w, r, "Failed to add tool", err)
		return
	}
	s.mutated(w, r, http.StatusCreated, scope, cache.EntityTools, t.ToolName+" added", t)
}

func (s *Server) updateTool(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.mutationFailed(w, r, "Failed to update tool", err)
		return
	}
	var req models.UpdateToolRequest
	if err := s.decode(r, &req); err != nil {
		s.mutationFailed(w, r, "Failed to update tool", err)
		return
	}
	scope := scopeOf(r)
	t, err := s.Store.UpdateTool(r.Context(), scope, id, req)
	if err != nil {
		s.mutationFailed(w, r, "Failed to update tool", err)
		return
	}
	s.mutated(w, r, http.StatusOK, scope, cache.EntityTools, t.ToolName+" updated", t)
}

func (s *Server) deleteTool(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.mutationFailed(w, r, "Failed to delete tool", err)
		return
	}
	scope := scopeOf(r)
	if err := s.Store.DeleteTool(r.Context(), scope, id); err != nil {
		s.mutationFailed(w, r, "Failed to delete tool", err)
		return
	}
	s.mutated(w, r, http.StatusOK, scope, cache.EntityTools, "Tool deleted", nil)
}

// Licenses

func (s *Server) listLicenses(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	scope := scopeOf(r)

	key := cache.Key{Entity: cache.EntityLicenses, Scope: scope, Params: params.cacheParams()}
	licenses, err := cache.Fetch(r.Context(), s.Cache, s.Metrics, key, func(ctx context.Context) ([]models.License, error) {
		return s.Store.ListLicenses(ctx, scope, models.LicenseFilter{Search: params.q, Status: params.status})
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	now := s.now()
	for i := range licenses {
		licenses[i].DaysUntilExpiry, licenses[i].ExpiryClass = spend.Countdown(licenses[i].ExpiryDate, now)
	}
	sendListResponse(w, page(licenses, params), len(licenses), params)
}

func (s *Server) getLicense(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	l, err := s.Store.GetLicense(r.Context(), scopeOf(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	l.DaysUntilExpiry, l.ExpiryClass = spend.Countdown(l.ExpiryDate, s.now())
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) createLicense(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLicenseRequest
	if err := s.decode(r, &req); err != nil {
		s.mutationFailed(w, r, "Failed to add license", err)
		return
	}
	scope := scopeOf(r)
	l, err := s.Store.CreateLicense(r.Context(), scope, req)
	if err != nil {
		s.mutationFailed(w, r, "Failed to add license", err)
		return
	}
	s.mutated(w, r, http.StatusCreated, scope, cache.EntityLicenses, "License added", l)
}

func (s *Server) updateLicense(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.mutationFailed(w, r, "Failed to update license", err)
		return
	}
	var req models.UpdateLicenseRequest
	if err := s.decode(r, &req); err != nil {
		s.mutationFailed(w, r, "Failed to update license", err)
		return
	}
	scope := scopeOf(r)
	l, err := s.Store.UpdateLicense(r.Context(), scope, id, req)
	if err != nil {
		s.mutationFailed(w, r, "Failed to update license", err)
		return
	}
	s.mutated(w, r, http.StatusOK, scope, cache.EntityLicenses, "License updated", l)
}

func (s *Server) deleteLicense(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.mutationFailed(w, r, "Failed to delete license", err)
		return
	}
	scope := scopeOf(r)
	if err := s.Store.DeleteLicense(r.Context(), scope, id); err != nil {
		s.mutationFailed(w, r, "Failed to delete license", err)
		return
	}
	s.mutated(w, r, http.StatusOK, scope, cache.EntityLicenses, "License deleted", nil)
}

// Payments

// listPayments returns one page of payments with the INR total of the whole filtered set
func (s *Server) listPayments(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	scope := scopeOf(r)

	key := cache.Key{Entity: cache.EntityPayments, Scope: scope, Params: "status=" + params.status}
	payments, err := cache.Fetch(r.Context(), s.Cache, s.Metrics, key, func(ctx context.Context) ([]models.Payment, error) {
		return s.Store.ListPayments(ctx, scope, params.status)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	for i := range payments {
		payments[i].AmountINR = spend.PaymentINR(payments[i], s.Rates)
	}
	total := spend.PaymentsTotal(payments, s.Rates)
	sendListResponse(w, models.PaymentList{
		Payments:       page(payments, params),
		TotalINR:       total,
		TotalFormatted: spend.FormatINR(total),
	}, len(payments), params)
}

func (s *Server) getPayment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.Store.GetPayment(r.Context(), scopeOf(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p.AmountINR = spend.PaymentINR(p, s.Rates)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) createPayment(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePaymentRequest
	if err := s.decode(r, &req); err != nil {
		s.mutationFailed(w, r, "Failed to record payment", err)
		return
	}
	scope := scopeOf(r)
	p, err := s.Store.CreatePayment(r.Context(), scope, req)
	if err != nil {
		s.mutationFailed(w, r, "Failed to record payment", err)
		return
	}
	p.AmountINR = spend.PaymentINR(p, s.Rates)
	s.mutated(w, r, http.StatusCreated, scope, cache.EntityPayments, "Payment recorded", p)
}

func (s *Server) updatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.mutationFailed(w, r, "Failed to update payment", err)
		return
	}
	var req models.UpdatePaymentRequest
	if err := s.decode(r, &req); err != nil {
		s.mutationFailed(w, r, "Failed to update payment", err)
		return
	}
	scope := scopeOf(r)
	p, err := s.Store.UpdatePayment(r.Context(), scope, id, req)
	if err != nil {
		s.mutationFailed(w, r, "Failed to update payment", err)
		return
	}
	p.AmountINR = spend.PaymentINR(p, s.Rates)
	s.mutated(w, r, http.StatusOK, scope, cache.EntityPayments, "Payment updated", p)
}

func (s *Server) deletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		s.mutationFailed(w, r, "Failed to delete payment", err)
		return
	}
	scope := scopeOf(r)
	if err := s.Store.DeletePayment(r.Context(), scope, id); err != nil {
		s.mutationFailed(w, r, "Failed to delete payment", err)
		return
	}
	s.mutated(w, r, http.StatusOK, scope, cache.EntityPayments, "Payment deleted", nil)
}
