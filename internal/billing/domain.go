// Package billing creates, updates and cancels sales/purchase bills. A bill
// write spans stock, sequence and ledger mutations inside one transaction,
// so the books and the godown can never disagree.
package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/munimji/munimji/internal/ledger"
)

// BillType discriminates sales from purchase documents.
type BillType string

const (
	BillSales    BillType = "SALES"
	BillPurchase BillType = "PURCHASE"
)

// VoucherKind maps a bill type onto the ledger numbering space.
func (t BillType) VoucherKind() ledger.VoucherType {
	if t == BillPurchase {
		return ledger.VoucherPurchase
	}
	return ledger.VoucherSales
}

// BillStatus is the bill lifecycle state. CANCELLED is terminal.
type BillStatus string

const (
	StatusActive    BillStatus = "ACTIVE"
	StatusCancelled BillStatus = "CANCELLED"
)

// SupplyType selects the GST split.
const (
	SupplyIntraState = "intra-state"
	SupplyInterState = "inter-state"
)

// CartLine is one traded item on a bill.
type CartLine struct {
	StockID    int64   `json:"stockId"`
	BatchIndex *int    `json:"batchIndex,omitempty"`
	BatchLabel string  `json:"batch,omitempty"`
	Item       string  `json:"item"`
	HSN        string  `json:"hsn,omitempty"`
	Qty        float64 `json:"qty"`
	UOM        string  `json:"uom,omitempty"`
	Rate       float64 `json:"rate"`
	GSTRate    float64 `json:"grate"`
	Discount   float64 `json:"disc,omitempty"`
}

// OtherCharge is a named extra amount (freight, packing) on a bill.
type OtherCharge struct {
	Type    string  `json:"type"`
	Amount  float64 `json:"amount"`
	GSTRate float64 `json:"gstRate,omitempty"`
	HSNSAC  string  `json:"hsnSac,omitempty"`
}

// Meta carries bill header fields outside the money columns.
type Meta struct {
	ReferenceNo   string `json:"referenceNo,omitempty"`
	VehicleNo     string `json:"vehicleNo,omitempty"`
	Narration     string `json:"narration,omitempty"`
	ReverseCharge bool   `json:"reverseCharge,omitempty"`
	GSTEnabled    bool   `json:"gstEnabled"`
	SupplyType    string `json:"supplyType"`
}

// PartySnapshot freezes the party's identity on the bill so later master
// edits don't rewrite issued documents.
type PartySnapshot struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	GSTIN     string `json:"gstin,omitempty"`
	State     string `json:"state,omitempty"`
	StateCode string `json:"stateCode,omitempty"`
	Address   string `json:"addr,omitempty"`
	PIN       string `json:"pin,omitempty"`
}

// Consignee is the optional ship-to snapshot.
type Consignee struct {
	Name    string `json:"name,omitempty"`
	GSTIN   string `json:"gstin,omitempty"`
	Address string `json:"addr,omitempty"`
	State   string `json:"state,omitempty"`
	PIN     string `json:"pin,omitempty"`
}

// Bill is a persisted sales or purchase document.
type Bill struct {
	ID            int64         `json:"id"`
	FirmID        int64         `json:"firmId"`
	Type          BillType      `json:"type"`
	No            string        `json:"billNo"`
	Date          time.Time     `json:"billDate"`
	Status        BillStatus    `json:"status"`
	Party         PartySnapshot `json:"party"`
	Consignee     *Consignee    `json:"consignee,omitempty"`
	Meta          Meta          `json:"meta"`
	Cart          []CartLine    `json:"cart"`
	OtherCharges  []OtherCharge `json:"otherCharges,omitempty"`
	Totals        Totals        `json:"totals"`
	LedgerGroupID int64         `json:"voucherId"`
	CancelReason  string        `json:"cancelReason,omitempty"`
	CancelledBy   *int64        `json:"cancelledBy,omitempty"`
	CancelledAt   *time.Time    `json:"cancelledAt,omitempty"`
	CreatedBy     int64         `json:"createdBy"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// CreateInput groups fields for creating a bill.
type CreateInput struct {
	FirmID       int64
	ActorID      int64
	Type         BillType
	Date         time.Time
	PartyID      int64
	Meta         Meta
	Cart         []CartLine
	OtherCharges []OtherCharge
	Consignee    *Consignee
}

// UpdateInput replaces a bill's content wholesale. No, when supplied, must
// match the persisted number.
type UpdateInput struct {
	FirmID       int64
	ActorID      int64
	BillID       int64
	No           string
	Date         time.Time
	PartyID      int64
	Meta         Meta
	Cart         []CartLine
	OtherCharges []OtherCharge
	Consignee    *Consignee
}

var (
	// ErrBillNotFound indicates the bill does not exist for the firm.
	ErrBillNotFound = errors.New("billing: bill not found")
	// ErrBillCancelled indicates a terminal-state bill was targeted.
	ErrBillCancelled = errors.New("billing: bill is cancelled")
	// ErrNumberImmutable indicates an attempt to change a bill number.
	ErrNumberImmutable = errors.New("billing: bill number cannot change")
	// ErrEmptyCart indicates a bill without line items.
	ErrEmptyCart = errors.New("billing: cart must have at least one line")
)

// Validate checks structural create preconditions. Stock and party existence
// are checked transactionally later.
func (in CreateInput) Validate() error {
	if in.FirmID == 0 {
		return errors.New("billing: firm required")
	}
	if in.Type != BillSales && in.Type != BillPurchase {
		return errors.New("billing: bill type must be SALES or PURCHASE")
	}
	if in.PartyID == 0 {
		return errors.New("billing: party required")
	}
	if len(in.Cart) == 0 {
		return ErrEmptyCart
	}
	for i, line := range in.Cart {
		if line.Qty <= 0 {
			return fmt.Errorf("billing: line %d (%s): quantity must be positive", i, line.Item)
		}
		if line.Rate < 0 {
			return fmt.Errorf("billing: line %d (%s): negative rate", i, line.Item)
		}
		if line.Discount < 0 || line.Discount > 100 {
			return fmt.Errorf("billing: line %d (%s): discount must be 0-100", i, line.Item)
		}
	}
	switch in.Meta.SupplyType {
	case SupplyIntraState, SupplyInterState, "":
	default:
		return errors.New("billing: supply type must be intra-state or inter-state")
	}
	return nil
}
