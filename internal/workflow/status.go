package workflow

// Status is the lifecycle state of a purchase order.
type Status string

const (
	StatusNewRequest            Status = "New Request"
	StatusOrderPlaced           Status = "Order Placed"
	StatusGoodsReceived         Status = "Goods Received"
	StatusInwardComplete        Status = "Inward Complete"
	StatusQCPassed              Status = "QC Passed"
	StatusQCFailed              Status = "QC Failed"
	StatusImagingComplete       Status = "Imaging Complete"
	StatusPurchaseFileGenerated Status = "Purchase File Generated"
	StatusAccountsVerified      Status = "Accounts Verified"
	StatusInvoiceReceived       Status = "Invoice Received"
	StatusPurchaseComplete      Status = "Purchase Complete"
	StatusCustomerDelivered     Status = "Customer Delivered"
)

// Statuses in lifecycle order. QC Passed and QC Failed share a step.
var Statuses = []Status{
	StatusNewRequest,
	StatusOrderPlaced,
	StatusGoodsReceived,
	StatusInwardComplete,
	StatusQCPassed,
	StatusQCFailed,
	StatusImagingComplete,
	StatusPurchaseFileGenerated,
	StatusAccountsVerified,
	StatusInvoiceReceived,
	StatusPurchaseComplete,
	StatusCustomerDelivered,
}

// FinanceStatuses are the states visible to the accounts team.
var FinanceStatuses = []Status{
	StatusPurchaseFileGenerated,
	StatusAccountsVerified,
	StatusInvoiceReceived,
	StatusPurchaseComplete,
	StatusCustomerDelivered,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, k := range Statuses {
		if s == k {
			return true
		}
	}
	return false
}

// Open reports whether the order is still moving through procurement.
func (s Status) Open() bool {
	return s != StatusPurchaseComplete && s != StatusCustomerDelivered
}

// StatusStrings returns the given statuses as plain strings for SQL arguments.
func StatusStrings(ss []Status) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}
