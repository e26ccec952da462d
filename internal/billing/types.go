package billing

import "github.com/shopspring/decimal"

// Invoice is the canonical full invoice record as returned by the remote
// billing service. Webhook payloads only carry summaries; every merge into
// local storage starts from one of these.
type Invoice struct {
	InvoiceID       string          `json:"invoice_id"`
	InvoiceNumber   string          `json:"invoice_number"`
	ReferenceNumber string          `json:"reference_number"`
	CustomerID      string          `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	SalesOrderID    string          `json:"salesorder_id"`
	Date            string          `json:"date"`     // YYYY-MM-DD
	DueDate         string          `json:"due_date"` // YYYY-MM-DD
	SubTotal        decimal.Decimal `json:"sub_total"`
	TaxTotal        decimal.Decimal `json:"tax_total"`
	DiscountTotal   decimal.Decimal `json:"discount_total"`
	ShippingCharge  decimal.Decimal `json:"shipping_charge"`
	Total           decimal.Decimal `json:"total"`
	Balance         decimal.Decimal `json:"balance"`
	Adjustment      decimal.Decimal `json:"adjustment"`
	Status          string          `json:"status"`
	Notes           string          `json:"notes"`
	Terms           string          `json:"terms"`
	BillingAddress  *RemoteAddress  `json:"billing_address,omitempty"`
	ShippingAddress *RemoteAddress  `json:"shipping_address,omitempty"`
	LineItems       []LineItem      `json:"line_items"`
}

type LineItem struct {
	LineItemID     string          `json:"line_item_id"`
	ItemID         string          `json:"item_id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Quantity       decimal.Decimal `json:"quantity"`
	Rate           decimal.Decimal `json:"rate"`
	ItemTotal      decimal.Decimal `json:"item_total"`
	Discount       string          `json:"discount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxName        string          `json:"tax_name"`
	TaxPercentage  decimal.Decimal `json:"tax_percentage"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
}

type RemoteAddress struct {
	Address string `json:"address"`
	Street2 string `json:"street2"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// PaymentInput is the subset of a payment the remote system accepts.
type PaymentInput struct {
	Amount    decimal.Decimal
	Date      string // YYYY-MM-DD
	Mode      string
	Reference string
}

// PaymentRef identifies a payment created in the remote system.
type PaymentRef struct {
	PaymentID string `json:"payment_id"`
}
