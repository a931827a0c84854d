package purchase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"jewelpo/internal/apperr"
	"jewelpo/internal/audit"
	"jewelpo/internal/database"
	"jewelpo/internal/logger"
	"jewelpo/internal/models"
	"jewelpo/internal/validation"
	"jewelpo/internal/workflow"
)

// CreateRequestInput is a sales request for jewellery a customer asked for.
type CreateRequestInput struct {
	CustomerName     string `json:"customer_name"`
	OrderSource      string `json:"order_source"`
	RequestedDesigns string `json:"requested_designs"`
}

func (in *CreateRequestInput) validate() error {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.RequestedDesigns = strings.TrimSpace(in.RequestedDesigns)
	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "customer_name", in.CustomerName)
	validation.ValidateMaxLength(ve, "customer_name", in.CustomerName, 255)
	validation.RequireField(ve, "order_source", in.OrderSource)
	validation.ValidateEnum(ve, "order_source", in.OrderSource, validation.ValidOrderSources)
	validation.ValidateMaxLength(ve, "requested_designs", in.RequestedDesigns, 10000)
	if ve.HasErrors() {
		return apperr.FromValidation(ve)
	}
	return nil
}

// CreateRequest raises a new purchase request in the caller's company.
func (s *Service) CreateRequest(ctx context.Context, in CreateRequestInput) (*models.PurchaseOrder, error) {
	po, err := s.createRequest(ctx, in)
	s.observe(workflow.ActionCreateRequest, err)
	if err != nil {
		return nil, err
	}
	s.publish(po, workflow.ActionCreateRequest)
	return po, nil
}

func (s *Service) createRequest(ctx context.Context, in CreateRequestInput) (*models.PurchaseOrder, error) {
	rc, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := workflow.Authorize(rc, workflow.ActionCreateRequest); err != nil {
		return nil, err
	}
	if rc.CompanyID == 0 {
		return nil, apperr.Invalid("Cannot determine your company.")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	rule, _ := workflow.Lookup(workflow.ActionCreateRequest)

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	now := s.now()
	ts := database.Timestamp(now)
	res, err := tx.ExecContext(ctx, `INSERT INTO purchase_orders
		(company_id, initiated_by_user_id, customer_name, order_source, requested_designs, status, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		rc.CompanyID, rc.UserID, in.CustomerName, in.OrderSource, in.RequestedDesigns, workflow.StatusNewRequest, ts, ts)
	if err != nil {
		return nil, apperr.Wrap(err, "insert purchase order")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperr.Wrap(err, "purchase order id")
	}
	if err := recordPhase(ctx, tx, id, rc.CompanyID, workflow.StatusNewRequest, workflow.ActionCreateRequest, rc.UserID, now); err != nil {
		return nil, err
	}
	if err := audit.Log(ctx, tx, audit.Entry{
		CompanyID:  rc.CompanyID,
		UserID:     rc.UserID,
		ActionType: rule.AuditType,
		TargetType: audit.TargetPurchaseOrder,
		TargetID:   id,
		Details:    fmt.Sprintf("Request for %s via %s", in.CustomerName, in.OrderSource),
		IPAddress:  audit.ClientIP(ctx),
		At:         now,
	}); err != nil {
		return nil, apperr.Wrap(err, "audit")
	}
	po, err := loadPO(ctx, tx, rc, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(err, "commit")
	}
	logger.FromContext(ctx).Info("purchase request created",
		zap.Int64("po_id", id), zap.Int64("company_id", rc.CompanyID), zap.String("user", rc.Username))
	return po, nil
}
