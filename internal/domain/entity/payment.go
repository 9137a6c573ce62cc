package entity

import "time"

// PaymentSource records how a payment entered the system
type PaymentSource string

const (
	PaymentSourceManual PaymentSource = "manual"
	PaymentSourceCSV    PaymentSource = "csv"
	PaymentSourceXLSX   PaymentSource = "xlsx"
)

// Payment is a bank deposit awaiting or holding a job match
type Payment struct {
	ID             int64             `json:"id"`
	Client         Relation[Client]  `json:"client"`
	Amount         float64           `json:"amount"`
	PaymentDate    time.Time         `json:"paymentDate"`
	Reference      string            `json:"reference"`
	Source         PaymentSource     `json:"source"`
	Status         PaymentStatus     `json:"status"`
	MatchedJob     Relation[Job]     `json:"matchedJob"`
	MatchedInvoice Relation[Invoice] `json:"matchedInvoice"`
	MatchedAt      *time.Time        `json:"matchedAt,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// MatchCandidate is a job that could explain a payment
type MatchCandidate struct {
	JobID        int64     `json:"jobId"`
	JobCode      string    `json:"jobCode"`
	ModelName    string    `json:"modelName"`
	ClientID     int64     `json:"clientId"`
	QuotedTotal  float64   `json:"quotedTotal"`
	Delta        float64   `json:"delta"`
	JobDate      time.Time `json:"jobDate"`
	DaysApart    int       `json:"daysApart"`
	InvoiceState string    `json:"invoiceStatus"`
}

// PaymentFilter narrows payment listings
type PaymentFilter struct {
	Status   PaymentStatus
	ClientID int64
	Limit    int
}
