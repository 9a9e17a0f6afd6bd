package store

import (
	"context"

	"helpdesk-api/internal/models"
	"helpdesk-api/internal/tenant"
)

const paymentSelect = `
	SELECT p.id, p.tool_id, p.amount, p.currency, p.payment_date, p.billing_period_start,
	       p.billing_period_end, p.payment_method, p.invoice_url, p.status, p.organisation_id,
	       p.tenant_id, p.created_at, t.tool_name
	FROM subscriptions_payments p
	LEFT JOIN subscriptions_tools t ON t.id = p.tool_id`

func scanPayment(row scanner) (models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.ToolID, &p.Amount, &p.Currency, &p.PaymentDate, &p.BillingPeriodStart,
		&p.BillingPeriodEnd, &p.PaymentMethod, &p.InvoiceURL, &p.Status, &p.OrganisationID,
		&p.TenantID, &p.CreatedAt, &p.ToolName)
	return p, err
}

// ListPayments returns payments in scope, latest payment date first
func (s *Store) ListPayments(ctx context.Context, scope tenant.Scope, status string) (out []models.Payment, err error) {
	ctx, span := s.start(ctx, "ListPayments", scope)
	defer func() { end(span, err) }()

	w := scoped(scope, "p")
	if status != "" {
		w.add("p.status = $%d", status)
	}
	rows, err := s.q(ctx).QueryContext(ctx, paymentSelect+w.String()+" ORDER BY p.payment_date DESC", w.args...)
	if err != nil {
		return nil, wrap("list payments", err)
	}
	defer rows.Close()

	out = []models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, wrap("scan payment", err)
		}
		out = append(out, p)
	}
	return out, wrap("list payments", rows.Err())
}

// GetPayment returns one payment in scope
func (s *Store) GetPayment(ctx context.Context, scope tenant.Scope, id int64) (p models.Payment, err error) {
	ctx, span := s.start(ctx, "GetPayment", scope)
	defer func() { end(span, err) }()

	return s.getPayment(ctx, scope, id)
}

func (s *Store) getPayment(ctx context.Context, scope tenant.Scope, id int64) (models.Payment, error) {
	w := scoped(scope, "p")
	w.add("p.id = $%d", id)
	p, err := scanPayment(s.q(ctx).QueryRowContext(ctx, paymentSelect+w.String(), w.args...))
	return p, wrap("get payment", err)
}

// CreatePayment records a payment against a tool in scope
func (s *Store) CreatePayment(ctx context.Context, scope tenant.Scope, req models.CreatePaymentRequest) (p models.Payment, err error) {
	ctx, span := s.start(ctx, "CreatePayment", scope)
	defer func() { end(span, err) }()

	var id int64
	err = s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO subscriptions_payments (tool_id, amount, currency, payment_date, billing_period_start,
			billing_period_end, payment_method, invoice_url, status, organisation_id, tenant_id)
		SELECT t.id, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		FROM subscriptions_tools t
		WHERE t.id = $1 AND t.`+scope.Column()+` = $12
		RETURNING id`,
		req.ToolID, req.Amount, req.Currency, req.PaymentDate, req.BillingPeriodStart,
		req.BillingPeriodEnd, req.PaymentMethod, req.InvoiceURL, orDefault(req.Status, "paid"),
		orgArg(scope), scope.TenantID, scope.Value(),
	).Scan(&id)
	if err != nil {
		return p, wrap("create payment", err)
	}
	return s.getPayment(ctx, scope, id)
}

// UpdatePayment applies a partial update
func (s *Store) UpdatePayment(ctx context.Context, scope tenant.Scope, id int64, req models.UpdatePaymentRequest) (p models.Payment, err error) {
	ctx, span := s.start(ctx, "UpdatePayment", scope)
	defer func() { end(span, err) }()

	st := &sets{}
	if req.Amount != nil {
		st.add("amount", *req.Amount)
	}
	if req.Currency != nil {
		st.add("currency", *req.Currency)
	}
	if req.PaymentDate != nil {
		st.add("payment_date", *req.PaymentDate)
	}
	if req.BillingPeriodStart != nil {
		st.add("billing_period_start", *req.BillingPeriodStart)
	}
	if req.BillingPeriodEnd != nil {
		st.add("billing_period_end", *req.BillingPeriodEnd)
	}
	if req.PaymentMethod != nil {
		st.add("payment_method", *req.PaymentMethod)
	}
	if req.InvoiceURL != nil {
		st.add("invoice_url", *req.InvoiceURL)
	}
	if req.Status != nil {
		st.add("status", *req.Status)
	}
	if st.empty() {
		return s.getPayment(ctx, scope, id)
	}

	if err := s.update(ctx, s.q(ctx), "subscriptions_payments", scope, id, st, ""); err != nil {
		return p, wrap("update payment", err)
	}
	return s.getPayment(ctx, scope, id)
}

// DeletePayment removes a payment
func (s *Store) DeletePayment(ctx context.Context, scope tenant.Scope, id int64) (err error) {
	ctx, span := s.start(ctx, "DeletePayment", scope)
	defer func() { end(span, err) }()

	return wrap("delete payment", s.remove(ctx, "subscriptions_payments", scope, id))
}
