package purchase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"jewelpo/internal/apperr"
	"jewelpo/internal/audit"
	"jewelpo/internal/auth"
	"jewelpo/internal/database"
	"jewelpo/internal/models"
	"jewelpo/internal/validation"
	"jewelpo/internal/websocket"
)

const vendorSelect = `SELECT id, company_id, vendor_name, contact_person, email, phone, is_active, created_at FROM vendors`

// VendorInput creates or replaces a vendor. IsActive defaults to true on create.
type VendorInput struct {
	VendorName    string `json:"vendor_name"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	IsActive      *bool  `json:"is_active"`
}

func (in *VendorInput) validate() error {
	in.VendorName = strings.TrimSpace(in.VendorName)
	in.ContactPerson = strings.TrimSpace(in.ContactPerson)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "vendor_name", in.VendorName)
	validation.ValidateMaxLength(ve, "vendor_name", in.VendorName, 255)
	validation.ValidateMaxLength(ve, "contact_person", in.ContactPerson, 255)
	validation.RequireField(ve, "email", in.Email)
	validation.ValidateEmail(ve, "email", in.Email)
	validation.ValidateMaxLength(ve, "phone", in.Phone, 50)
	if ve.HasErrors() {
		return apperr.FromValidation(ve)
	}
	return nil
}

func vendorManager(ctx context.Context) (auth.RequestContext, error) {
	rc, err := caller(ctx)
	if err != nil {
		return rc, err
	}
	if !rc.HasAny(auth.RoleAdmin, auth.RolePlatformAdmin) {
		return rc, apperr.Denied("Only administrators can manage vendors.")
	}
	return rc, nil
}

// ListVendors returns the caller's vendors ordered by name.
func (s *Service) ListVendors(ctx context.Context, activeOnly bool) ([]models.Vendor, error) {
	rc, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	where, args := scope(rc, "company_id")
	if activeOnly {
		where += " AND is_active = 1"
	}
	vendors := []models.Vendor{}
	if err := s.DB.SelectContext(ctx, &vendors, vendorSelect+" WHERE 1=1"+where+" ORDER BY vendor_name", args...); err != nil {
		return nil, apperr.Wrap(err, "list vendors")
	}
	return vendors, nil
}

// GetVendor returns one vendor.
func (s *Service) GetVendor(ctx context.Context, id int64) (*models.Vendor, error) {
	rc, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.loadVendor(ctx, rc, id)
}

func (s *Service) loadVendor(ctx context.Context, rc auth.RequestContext, id int64) (*models.Vendor, error) {
	where, args := scope(rc, "company_id")
	var v models.Vendor
	err := s.DB.GetContext(ctx, &v, vendorSelect+" WHERE id = ?"+where, append([]interface{}{id}, args...)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("Vendor %d not found.", id)
	}
	if err != nil {
		return nil, apperr.Wrap(err, "load vendor")
	}
	return &v, nil
}

func duplicateVendorEmail(email string) error {
	return apperr.Conflictf("A vendor with email %s already exists.", email)
}

// CreateVendor adds a vendor to the caller's company.
func (s *Service) CreateVendor(ctx context.Context, in VendorInput) (*models.Vendor, error) {
	rc, err := vendorManager(ctx)
	if err != nil {
		return nil, err
	}
	if rc.CompanyID == 0 {
		return nil, apperr.Invalid("Cannot determine your company.")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	active := in.IsActive == nil || *in.IsActive

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	now := s.now()
	res, err := tx.ExecContext(ctx, `INSERT INTO vendors (company_id, vendor_name, contact_person, email, phone, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, rc.CompanyID, in.VendorName, in.ContactPerson, in.Email, in.Phone, flag(active), database.Timestamp(now))
	if database.IsUniqueViolation(err) {
		return nil, duplicateVendorEmail(in.Email)
	}
	if err != nil {
		return nil, apperr.Wrap(err, "insert vendor")
	}
	id, _ := res.LastInsertId()
	if err := audit.Log(ctx, tx, audit.Entry{
		CompanyID: rc.CompanyID, UserID: rc.UserID, ActionType: audit.VendorCreated,
		TargetType: audit.TargetVendor, TargetID: id, Details: "Created vendor " + in.VendorName,
		IPAddress: audit.ClientIP(ctx), At: now,
	}); err != nil {
		return nil, apperr.Wrap(err, "audit")
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(err, "commit")
	}
	s.publishVendor(rc.CompanyID, id, "create")
	return s.loadVendor(ctx, rc, id)
}

// UpdateVendor replaces a vendor's details.
func (s *Service) UpdateVendor(ctx context.Context, id int64, in VendorInput) (*models.Vendor, error) {
	rc, err := vendorManager(ctx)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	existing, err := s.loadVendor(ctx, rc, id)
	if err != nil {
		return nil, err
	}
	active := existing.IsActive
	if in.IsActive != nil {
		active = *in.IsActive
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `UPDATE vendors SET vendor_name = ?, contact_person = ?, email = ?, phone = ?, is_active = ?
		WHERE id = ? AND company_id = ?`, in.VendorName, in.ContactPerson, in.Email, in.Phone, flag(active), id, existing.CompanyID)
	if database.IsUniqueViolation(err) {
		return nil, duplicateVendorEmail(in.Email)
	}
	if err != nil {
		return nil, apperr.Wrap(err, "update vendor")
	}
	if err := audit.Log(ctx, tx, audit.Entry{
		CompanyID: existing.CompanyID, UserID: rc.UserID, ActionType: audit.VendorUpdated,
		TargetType: audit.TargetVendor, TargetID: id, Details: "Updated vendor " + in.VendorName,
		IPAddress: audit.ClientIP(ctx), At: s.now(),
	}); err != nil {
		return nil, apperr.Wrap(err, "audit")
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(err, "commit")
	}
	s.publishVendor(existing.CompanyID, id, "update")
	return s.loadVendor(ctx, rc, id)
}

// DeleteVendor removes a vendor that no purchase order references.
func (s *Service) DeleteVendor(ctx context.Context, id int64) error {
	rc, err := vendorManager(ctx)
	if err != nil {
		return err
	}
	existing, err := s.loadVendor(ctx, rc, id)
	if err != nil {
		return err
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	refs, err := count(ctx, tx, `SELECT COUNT(*) FROM purchase_orders WHERE vendor_id = ?`, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return apperr.Conflictf("Vendor %s is used by %d purchase order(s). Deactivate it instead.", existing.VendorName, refs)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vendors WHERE id = ?`, id); err != nil {
		return apperr.Wrap(err, "delete vendor")
	}
	if err := audit.Log(ctx, tx, audit.Entry{
		CompanyID: existing.CompanyID, UserID: rc.UserID, ActionType: audit.VendorDeleted,
		TargetType: audit.TargetVendor, TargetID: id, Details: fmt.Sprintf("Deleted vendor %s", existing.VendorName),
		IPAddress: audit.ClientIP(ctx), At: s.now(),
	}); err != nil {
		return apperr.Wrap(err, "audit")
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(err, "commit")
	}
	s.publishVendor(existing.CompanyID, id, "delete")
	return nil
}

func (s *Service) publishVendor(companyID, id int64, action string) {
	if s.Events == nil {
		return
	}
	s.Events.Publish(websocket.Event{Type: "vendor", CompanyID: companyID, ID: id, Action: action})
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
