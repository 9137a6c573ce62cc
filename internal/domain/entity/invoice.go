package entity

import "time"

// InvoiceRecordStatus is the state of a generated invoice document
type InvoiceRecordStatus string

const (
	InvoiceRecordIssued InvoiceRecordStatus = "issued"
	InvoiceRecordPaid   InvoiceRecordStatus = "paid"
)

// Invoice is a numbered billing document generated for a job
type Invoice struct {
	ID        int64               `json:"id"`
	Number    string              `json:"number"`
	Job       Relation[Job]       `json:"job"`
	Client    Relation[Client]    `json:"client"`
	Amount    float64             `json:"amount"`
	Status    InvoiceRecordStatus `json:"status"`
	FilePath  string              `json:"filePath,omitempty"`
	IssuedAt  time.Time           `json:"issuedAt"`
	CreatedAt time.Time           `json:"createdAt"`
}
