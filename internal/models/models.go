package models

import (
	"github.com/shopspring/decimal"

	"jewelpo/internal/validation"
	"jewelpo/internal/workflow"
)

// APIResponse is the standard API response envelope.
type APIResponse struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta,omitempty"`
}

// Meta holds pagination metadata.
type Meta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// ErrorResponse is written for every failed request.
type ErrorResponse struct {
	Error  string                       `json:"error"`
	Code   string                       `json:"code"`
	Fields []validation.ValidationError `json:"fields,omitempty"`
}

// PurchaseOrder is one customer purchase request tracked through the workflow.
type PurchaseOrder struct {
	ID               int64           `db:"id" json:"id"`
	CompanyID        int64           `db:"company_id" json:"company_id"`
	InitiatedBy      int64           `db:"initiated_by_user_id" json:"initiated_by_user_id"`
	InitiatedByName  string          `db:"initiated_by_name" json:"initiated_by_name"`
	CustomerName     string          `db:"customer_name" json:"customer_name"`
	OrderSource      string          `db:"order_source" json:"order_source"`
	RequestedDesigns string          `db:"requested_designs" json:"requested_designs"`
	VendorID         *int64          `db:"vendor_id" json:"vendor_id"`
	VendorName       *string         `db:"vendor_name" json:"vendor_name"`
	PONumber         *string         `db:"po_number" json:"po_number"`
	Status           workflow.Status `db:"status" json:"status"`
	TargetDate       *string         `db:"target_date" json:"target_date"`
	ReceivedDate     *string         `db:"received_date" json:"received_date"`
	Version          int64           `db:"version" json:"version"`
	CreatedAt        string          `db:"created_at" json:"created_at"`
	UpdatedAt        string          `db:"updated_at" json:"updated_at"`
}

// POItem is an ordered design line.
type POItem struct {
	ID               int64  `db:"id" json:"id"`
	POID             int64  `db:"po_id" json:"po_id"`
	DesignCode       string `db:"design_code" json:"design_code"`
	Quantity         int    `db:"quantity" json:"quantity"`
	QuantityReceived int    `db:"quantity_received" json:"quantity_received"`
}

// JewelUnit is one physically received piece.
type JewelUnit struct {
	ID          int64  `db:"id" json:"id"`
	CompanyID   int64  `db:"company_id" json:"company_id"`
	POID        int64  `db:"po_id" json:"po_id"`
	POItemID    int64  `db:"po_item_id" json:"po_item_id"`
	DesignCode  string `db:"design_code" json:"design_code"`
	JewelCode   string `db:"jewel_code" json:"jewel_code"`
	QCStatus    string `db:"qc_status" json:"qc_status"`
	QCRemarks   string `db:"qc_remarks" json:"qc_remarks"`
	ImageStatus string `db:"image_status" json:"image_status"`
	InwardBy    *int64 `db:"inward_by_user_id" json:"inward_by_user_id"`
	InwardAt    string `db:"inward_at" json:"inward_at"`
}

// Invoice is the accounts record attached 1:1 to a purchase order.
type Invoice struct {
	ID                  int64               `db:"id" json:"id"`
	POID                int64               `db:"po_id" json:"po_id"`
	CompanyID           int64               `db:"company_id" json:"company_id"`
	VendorInvoiceNumber *string             `db:"vendor_invoice_number" json:"vendor_invoice_number"`
	InvoiceDate         *string             `db:"invoice_date" json:"invoice_date"`
	TotalAmount         decimal.NullDecimal `db:"total_amount" json:"total_amount"`
	AccountsStatus      string              `db:"accounts_status" json:"accounts_status"`
	AccountsRemarks     string              `db:"accounts_remarks" json:"accounts_remarks"`
	AccountsUserID      *int64              `db:"accounts_user_id" json:"accounts_user_id"`
	PurchaseTeamUserID  *int64              `db:"purchase_team_user_id" json:"purchase_team_user_id"`
	CreatedAt           string              `db:"created_at" json:"created_at"`
	UpdatedAt           string              `db:"updated_at" json:"updated_at"`
}

// Vendor is tenant reference data.
type Vendor struct {
	ID            int64  `db:"id" json:"id"`
	CompanyID     int64  `db:"company_id" json:"company_id"`
	VendorName    string `db:"vendor_name" json:"vendor_name"`
	ContactPerson string `db:"contact_person" json:"contact_person"`
	Email         string `db:"email" json:"email"`
	Phone         string `db:"phone" json:"phone"`
	IsActive      bool   `db:"is_active" json:"is_active"`
	CreatedAt     string `db:"created_at" json:"created_at"`
}

// PhaseEntry records when a purchase order entered a status.
type PhaseEntry struct {
	ID        int64           `db:"id" json:"id"`
	POID      int64           `db:"po_id" json:"po_id"`
	Status    workflow.Status `db:"status" json:"status"`
	Action    workflow.Action `db:"action" json:"action"`
	UserID    *int64          `db:"user_id" json:"user_id"`
	EnteredAt string          `db:"entered_at" json:"entered_at"`
}

// AuditEntry is one append-only audit log row.
type AuditEntry struct {
	ID         int64  `db:"id" json:"id"`
	CompanyID  int64  `db:"company_id" json:"company_id"`
	UserID     *int64 `db:"user_id" json:"user_id"`
	ActionType string `db:"action_type" json:"action_type"`
	TargetType string `db:"target_type" json:"target_type"`
	TargetID   int64  `db:"target_id" json:"target_id"`
	Details    string `db:"details" json:"details"`
	IPAddress  string `db:"ip_address" json:"ip_address"`
	CreatedAt  string `db:"created_at" json:"created_at"`
}

// User is a portal account.
type User struct {
	ID                  int64   `db:"id" json:"id"`
	CompanyID           int64   `db:"company_id" json:"company_id"`
	Username            string  `db:"username" json:"username"`
	FullName            string  `db:"full_name" json:"full_name"`
	PasswordHash        string  `db:"password_hash" json:"-"`
	Roles               string  `db:"roles" json:"roles"`
	Active              bool    `db:"active" json:"active"`
	FailedLoginAttempts int     `db:"failed_login_attempts" json:"-"`
	LockedUntil         *string `db:"locked_until" json:"-"`
	LastLogin           *string `db:"last_login" json:"last_login"`
	CreatedAt           string  `db:"created_at" json:"created_at"`
}

// PODetail is the full view of one purchase order.
type PODetail struct {
	PurchaseOrder
	Items            []POItem          `json:"items"`
	Jewels           []JewelUnit       `json:"jewels"`
	Invoice          *Invoice          `json:"invoice"`
	History          []PhaseEntry      `json:"history"`
	Audit            []AuditEntry      `json:"audit"`
	AllItemsInwarded bool              `json:"all_items_inwarded"`
	AllItemsQCd      bool              `json:"all_items_qcd"`
	AllPassedImaged  bool              `json:"all_passed_imaged"`
	AvailableActions []workflow.Action `json:"available_actions"`
}
