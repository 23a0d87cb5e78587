// Package stock maintains batch-level inventory per firm and records every
// movement against it. Bills consume and restore stock through the same
// reconciliation rules as direct stock entries.
package stock

import (
	"errors"
	"time"
)

// MovementType enumerates supported inventory events.
type MovementType string

const (
	MovementSale       MovementType = "SALE"
	MovementReceipt    MovementType = "RECEIPT"
	MovementTransfer   MovementType = "TRANSFER"
	MovementAdjustment MovementType = "ADJUSTMENT"
	MovementOpening    MovementType = "OPENING"
)

// Batch is one lot of an item. An empty label marks the implicit default
// batch, distinct from any explicitly labelled batch.
type Batch struct {
	ID     int64      `json:"id"`
	ItemID int64      `json:"itemId"`
	Label  string     `json:"batch,omitempty"`
	Qty    float64    `json:"qty"`
	Rate   float64    `json:"rate"`
	Expiry *time.Time `json:"expiry,omitempty"`
	MRP    *float64   `json:"mrp,omitempty"`
}

// Item is an inventory article scoped to a firm. Invariant after every
// mutation: Qty equals the sum of batch quantities and Total equals Qty*Rate.
type Item struct {
	ID        int64     `json:"id"`
	FirmID    int64     `json:"firmId"`
	Name      string    `json:"name"`
	HSN       string    `json:"hsn,omitempty"`
	Unit      string    `json:"unit,omitempty"`
	GSTRate   float64   `json:"grate"`
	Rate      float64   `json:"rate"`
	Qty       float64   `json:"qty"`
	Total     float64   `json:"total"`
	Batches   []Batch   `json:"batches"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Movement records a single inventory event. Qty is the magnitude for
// SALE/RECEIPT/OPENING and signed for ADJUSTMENT/TRANSFER.
type Movement struct {
	ID         int64        `json:"id"`
	FirmID     int64        `json:"firmId"`
	ItemID     int64        `json:"itemId"`
	BatchLabel string       `json:"batch,omitempty"`
	Type       MovementType `json:"type"`
	Qty        float64      `json:"qty"`
	Rate       float64      `json:"rate"`
	BillID     *int64       `json:"billId,omitempty"`
	CreatedBy  int64        `json:"createdBy"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// Delta returns the signed quantity change this movement applied.
func (m Movement) Delta() float64 {
	switch m.Type {
	case MovementSale:
		return -m.Qty
	case MovementReceipt, MovementOpening:
		return m.Qty
	default:
		return m.Qty
	}
}

// BatchRef selects a batch: explicit index first, then exact label, then the
// unlabelled default batch.
type BatchRef struct {
	Index *int
	Label string
}

// ConsumeInput describes a stock deduction for one bill line.
type ConsumeInput struct {
	ItemID int64
	Batch  BatchRef
	Qty    float64
	Rate   float64
}

// ReceiveInput describes stock arriving into a batch.
type ReceiveInput struct {
	ItemID int64
	Label  string
	Qty    float64
	Rate   float64
	Expiry *time.Time
	MRP    *float64
}

// BatchInput carries batch fields for create-or-merge entries. Optional
// fields overwrite existing batch values only when provided.
type BatchInput struct {
	Label  string
	Qty    float64
	Rate   float64
	Expiry *time.Time
	MRP    *float64
}

// EntryInput describes a direct stock entry (receipt, opening, adjustment).
type EntryInput struct {
	FirmID  int64
	ActorID int64
	Type    MovementType
	Name    string
	HSN     string
	Unit    string
	GSTRate float64
	Rate    float64
	Batch   BatchInput
}

// TransferInput moves quantity between two batches of the same item.
type TransferInput struct {
	FirmID  int64
	ActorID int64
	ItemID  int64
	From    BatchRef
	ToLabel string
	Qty     float64
}

// BulkResult reports the outcome of one entry in a bulk import.
type BulkResult struct {
	Name   string
	ItemID int64
	Err    error
}

var (
	// ErrItemNotFound indicates the item does not exist for the firm.
	ErrItemNotFound = errors.New("stock: item not found")
	// ErrBatchNotFound indicates no batch matched the reference.
	ErrBatchNotFound = errors.New("stock: batch not found")
	// ErrInsufficientStock indicates the batch cannot cover the requested quantity.
	ErrInsufficientStock = errors.New("stock: insufficient quantity")
	// ErrInvalidQuantity indicates a non-positive quantity where one is required.
	ErrInvalidQuantity = errors.New("stock: quantity must be positive")
	// ErrInvalidMovement indicates a movement type outside direct-entry use.
	ErrInvalidMovement = errors.New("stock: movement type not allowed here")
)
