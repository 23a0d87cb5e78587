package billing

import "time"

type cartLineRequest struct {
	StockID    int64   `json:"stockId"`
	BatchIndex *int    `json:"batchIndex,omitempty"`
	Batch      string  `json:"batch,omitempty"`
	Item       string  `json:"item" validate:"required"`
	HSN        string  `json:"hsn,omitempty"`
	Qty        float64 `json:"qty" validate:"gt=0"`
	UOM        string  `json:"uom,omitempty"`
	Rate       float64 `json:"rate" validate:"gte=0"`
	GSTRate    float64 `json:"grate" validate:"gte=0,lte=100"`
	Discount   float64 `json:"disc,omitempty" validate:"gte=0,lte=100"`
}

type otherChargeRequest struct {
	Type    string  `json:"type" validate:"required"`
	Amount  float64 `json:"amount"`
	GSTRate float64 `json:"gstRate,omitempty" validate:"gte=0,lte=100"`
	HSNSAC  string  `json:"hsnSac,omitempty"`
}

type consigneeRequest struct {
	Name    string `json:"name,omitempty"`
	GSTIN   string `json:"gstin,omitempty"`
	Address string `json:"addr,omitempty"`
	State   string `json:"state,omitempty"`
	PIN     string `json:"pin,omitempty"`
}

type billMetaRequest struct {
	BillDate      string `json:"billDate,omitempty"`
	BillType      string `json:"billType,omitempty" validate:"omitempty,oneof=intra-state inter-state"`
	ReferenceNo   string `json:"referenceNo,omitempty"`
	VehicleNo     string `json:"vehicleNo,omitempty"`
	Narration     string `json:"narration,omitempty"`
	ReverseCharge bool   `json:"reverseCharge,omitempty"`
	GSTEnabled    *bool  `json:"gstEnabled,omitempty"`
}

type billRequest struct {
	Type         string               `json:"type" validate:"required,oneof=SALES PURCHASE"`
	BillNo       string               `json:"billNo,omitempty"`
	PartyID      int64                `json:"partyId" validate:"required"`
	Meta         billMetaRequest      `json:"meta"`
	Cart         []cartLineRequest    `json:"cart" validate:"required,min=1,dive"`
	OtherCharges []otherChargeRequest `json:"otherCharges,omitempty" validate:"dive"`
	Consignee    *consigneeRequest    `json:"consignee,omitempty"`
}

func (req billRequest) toCreate(firmID, actorID int64) (CreateInput, error) {
	var date time.Time
	if req.Meta.BillDate != "" {
		parsed, err := time.Parse("2006-01-02", req.Meta.BillDate)
		if err != nil {
			return CreateInput{}, err
		}
		date = parsed
	}
	gstEnabled := true
	if req.Meta.GSTEnabled != nil {
		gstEnabled = *req.Meta.GSTEnabled
	}
	in := CreateInput{
		FirmID:  firmID,
		ActorID: actorID,
		Type:    BillType(req.Type),
		Date:    date,
		PartyID: req.PartyID,
		Meta: Meta{
			ReferenceNo:   req.Meta.ReferenceNo,
			VehicleNo:     req.Meta.VehicleNo,
			Narration:     req.Meta.Narration,
			ReverseCharge: req.Meta.ReverseCharge,
			GSTEnabled:    gstEnabled,
			SupplyType:    req.Meta.BillType,
		},
	}
	for _, line := range req.Cart {
		in.Cart = append(in.Cart, CartLine{
			StockID:    line.StockID,
			BatchIndex: line.BatchIndex,
			BatchLabel: line.Batch,
			Item:       line.Item,
			HSN:        line.HSN,
			Qty:        line.Qty,
			UOM:        line.UOM,
			Rate:       line.Rate,
			GSTRate:    line.GSTRate,
			Discount:   line.Discount,
		})
	}
	for _, c := range req.OtherCharges {
		in.OtherCharges = append(in.OtherCharges, OtherCharge(c))
	}
	if req.Consignee != nil {
		consignee := Consignee(*req.Consignee)
		in.Consignee = &consignee
	}
	return in, nil
}

type billResponse struct {
	BillID  int64  `json:"billId"`
	BillNo  string `json:"billNo"`
	Status  string `json:"status"`
	Totals  Totals `json:"totals"`
	Success bool   `json:"success"`
}

func toBillResponse(b Bill) billResponse {
	return billResponse{
		BillID:  b.ID,
		BillNo:  b.No,
		Status:  string(b.Status),
		Totals:  b.Totals,
		Success: true,
	}
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty"`
}
