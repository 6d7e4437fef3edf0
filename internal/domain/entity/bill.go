package entity

// Bill status constants, as stored by the bill store
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRefused  = "refused"
)

// Bill represents one expense report record as held by the bill store.
// ID is assigned by the store on the first successful receipt upload and
// stays empty until then. FileURL and FileName stay empty until a receipt
// upload has succeeded; a bill may be persisted without a receipt.
type Bill struct {
	ID           string `json:"id,omitempty"`
	Email        string `json:"email"`
	Type         string `json:"type"`
	Name         string `json:"name"`
	Amount       *int   `json:"amount"`
	Date         string `json:"date"`
	Vat          string `json:"vat"`
	Pct          int    `json:"pct"`
	Commentary   string `json:"commentary"`
	FileURL      string `json:"fileUrl,omitempty"`
	FileName     string `json:"fileName,omitempty"`
	Status       string `json:"status"`
	CommentAdmin string `json:"commentAdmin,omitempty"`
}

// HasReceipt reports whether a receipt upload succeeded for this bill.
func (b Bill) HasReceipt() bool {
	return b.FileURL != ""
}

// DisplayRow is a Bill with date and status rewritten for presentation.
// Date holds the canonical YYYY-MM-DD form (or the raw stored value when
// it could not be parsed) and Status holds the human-readable label.
// Rows are recomputed on every listing fetch and never persisted.
type DisplayRow struct {
	Bill
	Date   string `json:"date"`
	Status string `json:"status"`
}

// User identifies the signed-in person submitting and viewing bills.
type User struct {
	Type  string `json:"type"`
	Email string `json:"email"`
}
