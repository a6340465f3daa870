package domain

import "time"

type DocumentKind string

const (
	DocumentKindProformaInvoice DocumentKind = "PROFORMA_INVOICE"
	DocumentKindOfferLetter     DocumentKind = "OFFER_LETTER"
	DocumentKindReceipt         DocumentKind = "RECEIPT"
)

// StorageSuffix is the human readable suffix of the object key.
func (k DocumentKind) StorageSuffix() string {
	switch k {
	case DocumentKindProformaInvoice:
		return "proforma-invoice"
	case DocumentKindOfferLetter:
		return "offer-letter"
	case DocumentKindReceipt:
		return "receipt"
	}
	return ""
}

// Document is a generated PDF stored in object storage. Documents are never
// updated; a new record is created each time one is generated.
type Document struct {
	ID            int32        `json:"id"`
	ApplicationID int32        `json:"application_id"`
	PaymentID     *int32       `json:"payment_id,omitempty"`
	Kind          DocumentKind `json:"kind"`
	FileName      string       `json:"file_name"`
	StorageKey    string       `json:"storage_key"`
	URL           string       `json:"url"`
	CreatedAt     time.Time    `json:"created_at"`
}
