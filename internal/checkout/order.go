package checkout

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/my-little-thingz/backend-gifts/internal/pricing"
	"github.com/my-little-thingz/backend-gifts/internal/repo"
)

// Address is the shipping destination captured at checkout.
type Address struct {
	ReceiverName string `json:"receiverName"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country,omitempty"`
}

// Draft is the fully priced order before persistence. Building it is pure so
// the same totals can be re-derived and asserted independently of storage.
type Draft struct {
	OrderNumber string
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
	Shipping    decimal.Decimal
	AddonTotal  decimal.Decimal
	Total       decimal.Decimal
	Items       []DraftItem
}

// DraftItem is one frozen order line.
type DraftItem struct {
	ArtworkID       string
	Title           string
	Quantity        int
	UnitPrice       decimal.Decimal
	LineTotal       decimal.Decimal
	SelectedOptions []byte
}

// BuildDraft reprices the cart rows and freezes the result into an order
// draft. The addon total is carried verbatim; tax is currently always zero
// and shipping is settled in the payment flow.
func BuildDraft(rows []repo.CartLine, priced pricing.Totals, addonTotal decimal.Decimal, now time.Time) Draft {
	draft := Draft{
		OrderNumber: newOrderNumber(now),
		Subtotal:    priced.Subtotal,
		TaxAmount:   decimal.Zero,
		Shipping:    decimal.Zero,
		AddonTotal:  addonTotal,
		Items:       make([]DraftItem, 0, len(rows)),
	}
	draft.Total = draft.Subtotal.Add(draft.TaxAmount).Add(draft.Shipping).Add(draft.AddonTotal).Round(2)
	for i, row := range rows {
		item := DraftItem{
			ArtworkID:       repo.UUIDString(row.ArtworkID),
			Title:           row.Artwork.Title,
			Quantity:        int(row.Quantity),
			SelectedOptions: snapshotOptions(row.SelectedOptions),
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		if i < len(priced.Lines) {
			item.UnitPrice = priced.Lines[i].UnitPrice
			item.LineTotal = priced.Lines[i].LineTotal
		}
		draft.Items = append(draft.Items, item)
	}
	return draft
}

func snapshotOptions(raw []byte) []byte {
	if len(raw) == 0 || !json.Valid(raw) {
		return []byte("{}")
	}
	return raw
}

func newOrderNumber(now time.Time) string {
	suffix := make([]byte, 3)
	_, _ = rand.Read(suffix)
	return "ORD-" + now.Format("20060102-150405") + "-" + hex.EncodeToString(suffix)
}
