package validation

// Enum values - these MUST match the CHECK constraints in the database package.
var (
	ValidQCStatuses       = []string{"Pending", "Pass", "Fail"}
	ValidQCDecisions      = []string{"Pass", "Fail"}
	ValidImageStatuses    = []string{"Pending", "Completed"}
	ValidAccountsStatuses = []string{"Pending", "Verified", "Paid"}
	ValidOrderSources     = []string{"Store Walk-in", "Exhibition", "Website Inquiry", "Referral", "Other"}
)
