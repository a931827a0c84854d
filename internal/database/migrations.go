package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Status values here must match workflow.Status.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_name TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id INTEGER NOT NULL REFERENCES companies(id),
		username TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		roles TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		failed_login_attempts INTEGER NOT NULL DEFAULT 0,
		locked_until TEXT,
		last_login TEXT,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS vendors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id INTEGER NOT NULL REFERENCES companies(id),
		vendor_name TEXT NOT NULL,
		contact_person TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(company_id, email)
	)`,
	`CREATE TABLE IF NOT EXISTS purchase_orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id INTEGER NOT NULL REFERENCES companies(id),
		initiated_by_user_id INTEGER NOT NULL REFERENCES users(id),
		customer_name TEXT NOT NULL,
		order_source TEXT NOT NULL,
		requested_designs TEXT NOT NULL DEFAULT '',
		vendor_id INTEGER REFERENCES vendors(id),
		po_number TEXT,
		status TEXT NOT NULL DEFAULT 'New Request' CHECK(status IN (
			'New Request','Order Placed','Goods Received','Inward Complete','QC Passed','QC Failed',
			'Imaging Complete','Purchase File Generated','Accounts Verified','Invoice Received',
			'Purchase Complete','Customer Delivered')),
		target_date TEXT,
		received_date TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_po_company_status ON purchase_orders(company_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_po_vendor ON purchase_orders(vendor_id)`,
	`CREATE TABLE IF NOT EXISTS po_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		po_id INTEGER NOT NULL REFERENCES purchase_orders(id) ON DELETE CASCADE,
		design_code TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK(quantity > 0),
		quantity_received INTEGER NOT NULL DEFAULT 0 CHECK(quantity_received >= 0 AND quantity_received <= quantity)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_po_items_po ON po_items(po_id)`,
	`CREATE TABLE IF NOT EXISTS jewel_inventory (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id INTEGER NOT NULL REFERENCES companies(id),
		po_id INTEGER NOT NULL REFERENCES purchase_orders(id) ON DELETE CASCADE,
		po_item_id INTEGER NOT NULL REFERENCES po_items(id) ON DELETE CASCADE,
		jewel_code TEXT NOT NULL,
		qc_status TEXT NOT NULL DEFAULT 'Pending' CHECK(qc_status IN ('Pending','Pass','Fail')),
		qc_remarks TEXT NOT NULL DEFAULT '',
		image_status TEXT NOT NULL DEFAULT 'Pending' CHECK(image_status IN ('Pending','Completed')),
		inward_by_user_id INTEGER REFERENCES users(id),
		inward_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(company_id, jewel_code)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jewel_po ON jewel_inventory(po_id)`,
	`CREATE TABLE IF NOT EXISTS purchase_invoices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		po_id INTEGER NOT NULL UNIQUE REFERENCES purchase_orders(id) ON DELETE CASCADE,
		company_id INTEGER NOT NULL REFERENCES companies(id),
		vendor_invoice_number TEXT,
		invoice_date TEXT,
		total_amount TEXT,
		accounts_status TEXT NOT NULL DEFAULT 'Pending' CHECK(accounts_status IN ('Pending','Verified','Paid')),
		accounts_remarks TEXT NOT NULL DEFAULT '',
		accounts_user_id INTEGER REFERENCES users(id),
		purchase_team_user_id INTEGER REFERENCES users(id),
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS po_phase_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		po_id INTEGER NOT NULL REFERENCES purchase_orders(id) ON DELETE CASCADE,
		company_id INTEGER NOT NULL,
		status TEXT NOT NULL,
		action TEXT NOT NULL,
		user_id INTEGER,
		entered_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_phase_po ON po_phase_history(po_id, status)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id INTEGER NOT NULL,
		user_id INTEGER,
		action_type TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id INTEGER NOT NULL,
		details TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_target ON audit_logs(target_type, target_id)`,
}

// Migrate creates any missing tables and indexes. It is safe to run on every start.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w\nstatement: %s", err, stmt)
		}
	}
	return nil
}
