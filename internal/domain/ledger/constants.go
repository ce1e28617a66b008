package ledger

const (
	EmployeeActive   = "active"
	EmployeeInactive = "inactive"
)

const (
	DutyPending   = "pending"
	DutySubmitted = "submitted"
	DutyApproved  = "approved"
	DutyRejected  = "rejected"
)

// Payment status is derived at read time and never stored.
const (
	StatusPaid    = "paid"
	StatusPartial = "partial"
	StatusPending = "pending"
)

const (
	SourceManual = "manual"
	SourceImport = "import"
)

const documentVersion = 2

var (
	EmployeeStatuses = []string{EmployeeActive, EmployeeInactive}
	DutyStatuses     = []string{DutyPending, DutySubmitted, DutyApproved, DutyRejected}
	PaymentStatuses  = []string{StatusPaid, StatusPartial, StatusPending}
)
