package domain

// Supplier is one row of the approved supplier list.
type Supplier struct {
	No      string `json:"supplierNo"`
	Name    string `json:"supplierName"`
	Company string `json:"supplierCompany"`
}

// GLAccount is one row of the general ledger account list.
type GLAccount struct {
	No   string `json:"glaccountNo"`
	Name string `json:"glaccountName"`
}

// ProfitCenter is one row of the profit center list.
type ProfitCenter struct {
	No   string `json:"profitcenterNo"`
	Name string `json:"profitcenterName"`
}

// SetupDates carries the accrual window configured by the admins.
type SetupDates struct {
	CutoffDate string `json:"cutoffDate"`
	StartDate  string `json:"startDate"`
}
