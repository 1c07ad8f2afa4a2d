package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClientStatus is the eligibility of an identity for new purchases
type ClientStatus string

const (
	StatusEligible   ClientStatus = "apto"
	StatusIneligible ClientStatus = "no_apto"
)

// Valid reports whether s is one of the two known states
func (s ClientStatus) Valid() bool {
	return s == StatusEligible || s == StatusIneligible
}

// PaymentSystem is the installment cadence
type PaymentSystem string

const (
	PaymentDaily   PaymentSystem = "DIARIO"
	PaymentWeekly  PaymentSystem = "SEMANAL"
	PaymentMonthly PaymentSystem = "MENSAL"
)

// LocalIDPrefix marks ids generated before the remote store assigned one
const LocalIDPrefix = "local-"

// PurchaseRecord is one installment sale for one client
type PurchaseRecord struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`

	ClientFullName         string `json:"clientFullName"`
	ClientCPF              string `json:"clientCpf"`
	Phone                  string `json:"phone"`
	WorkLocation           string `json:"workLocation"`
	WorkAddress            string `json:"workAddress"`
	HomeLocation           string `json:"homeLocation"`
	HomeAddress            string `json:"homeAddress"`
	Reference1Name         string `json:"reference1Name"`
	Reference1Relationship string `json:"reference1Relationship"`
	Reference2Name         string `json:"reference2Name"`
	Reference2Relationship string `json:"reference2Relationship"`
	Language               string `json:"language"`
	ClientType             string `json:"clientType"`

	PhotoStore         EvidenceSlot `json:"photoStoreFileName"`
	PhotoHome          EvidenceSlot `json:"photoHomeFileName"`
	PhotoPhoneCode     EvidenceSlot `json:"photoPhoneCodeFileName"`
	PhotoContractFront EvidenceSlot `json:"photoContractFrontFileName"`
	PhotoContractBack  EvidenceSlot `json:"photoContractBackFileName"`
	PhotoIDFront       EvidenceSlot `json:"photoIdFrontFileName"`
	PhotoIDBack        EvidenceSlot `json:"photoIdBackFileName"`
	PhotoCPF           EvidenceSlot `json:"photoCpfFileName"`
	PhotoFace          EvidenceSlot `json:"photoFaceFileName"`
	PhotoInstagram     EvidenceSlot `json:"photoInstagramFileName"`

	Product           string          `json:"product"`
	TotalProductPrice decimal.Decimal `json:"totalProductPrice"`
	DownPayment       decimal.Decimal `json:"downPayment"`
	Installments      int             `json:"installments"`
	InstallmentPrice  decimal.Decimal `json:"installmentPrice"`
	PaymentSystem     PaymentSystem   `json:"paymentSystem"`
	PaymentStartDate  string          `json:"paymentStartDate"`
	PurchaseDate      string          `json:"purchaseDate"`
	Vendedor          string          `json:"vendedor"`
	Guarantor         string          `json:"guarantor"`
	StoreName         string          `json:"storeName"`
	Notes             string          `json:"notes"`

	ClientStatus ClientStatus `json:"clientStatus"`
}

// NewLocalID returns a placeholder id for a record not yet created remotely
func NewLocalID() string {
	return LocalIDPrefix + uuid.NewString()
}

// IsNew reports whether the record has never been created in the remote store
func (r *PurchaseRecord) IsNew() bool {
	return r.ID == "" || strings.HasPrefix(r.ID, LocalIDPrefix)
}

// Slot returns a pointer to the named evidence slot, or nil for unknown names
func (r *PurchaseRecord) Slot(name SlotName) *EvidenceSlot {
	switch name {
	case SlotStore:
		return &r.PhotoStore
	case SlotHome:
		return &r.PhotoHome
	case SlotPhoneCode:
		return &r.PhotoPhoneCode
	case SlotContractFront:
		return &r.PhotoContractFront
	case SlotContractBack:
		return &r.PhotoContractBack
	case SlotIDFront:
		return &r.PhotoIDFront
	case SlotIDBack:
		return &r.PhotoIDBack
	case SlotCPF:
		return &r.PhotoCPF
	case SlotFace:
		return &r.PhotoFace
	case SlotInstagram:
		return &r.PhotoInstagram
	}
	return nil
}

// SettleUploads turns sent files into references to their filenames
func (r *PurchaseRecord) SettleUploads() {
	for _, name := range SlotNames {
		slot := r.Slot(name)
		if slot.Kind() == SlotPending {
			*slot = Reference(slot.Name())
		}
	}
}

// InstallmentAmount is (total - down) / max(installments, 1), never negative
func InstallmentAmount(total, down decimal.Decimal, installments int) decimal.Decimal {
	if installments < 1 {
		installments = 1
	}
	amount := total.Sub(down).Div(decimal.NewFromInt(int64(installments)))
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// Recalculate derives InstallmentPrice from the price fields; any input value is discarded.
func (r *PurchaseRecord) Recalculate() {
	r.InstallmentPrice = InstallmentAmount(r.TotalProductPrice, r.DownPayment, r.Installments)
}

// Field is one scalar form value
type Field struct {
	Key   string
	Value string
}

// ScalarFields returns every non-evidence field as transport strings.
// Absent values become "" and never the literal "null".
func (r *PurchaseRecord) ScalarFields() []Field {
	id := r.ID
	if r.IsNew() {
		id = ""
	}
	return []Field{
		{"id", id},
		{"timestamp", r.Timestamp},
		{"clientFullName", r.ClientFullName},
		{"clientCpf", r.ClientCPF},
		{"phone", r.Phone},
		{"workLocation", r.WorkLocation},
		{"workAddress", r.WorkAddress},
		{"homeLocation", r.HomeLocation},
		{"homeAddress", r.HomeAddress},
		{"reference1Name", r.Reference1Name},
		{"reference1Relationship", r.Reference1Relationship},
		{"reference2Name", r.Reference2Name},
		{"reference2Relationship", r.Reference2Relationship},
		{"language", r.Language},
		{"clientType", r.ClientType},
		{"product", r.Product},
		{"totalProductPrice", r.TotalProductPrice.String()},
		{"downPayment", r.DownPayment.String()},
		{"installments", strconv.Itoa(r.Installments)},
		{"installmentPrice", r.InstallmentPrice.StringFixed(2)},
		{"paymentSystem", string(r.PaymentSystem)},
		{"paymentStartDate", r.PaymentStartDate},
		{"purchaseDate", r.PurchaseDate},
		{"vendedor", r.Vendedor},
		{"guarantor", r.Guarantor},
		{"storeName", r.StoreName},
		{"notes", r.Notes},
		{"clientStatus", string(r.ClientStatus)},
	}
}

// UnmarshalJSON tolerates spreadsheet rows where ids, CPFs and phones arrive
// as numbers and numeric fields arrive as strings or blanks.
func (r *PurchaseRecord) UnmarshalJSON(data []byte) error {
	type alias PurchaseRecord
	aux := struct {
		*alias
		ID                flexString `json:"id"`
		Timestamp         flexString `json:"timestamp"`
		ClientCPF         flexString `json:"clientCpf"`
		Phone             flexString `json:"phone"`
		TotalProductPrice flexAmount `json:"totalProductPrice"`
		DownPayment       flexAmount `json:"downPayment"`
		Installments      flexString `json:"installments"`
		InstallmentPrice  flexAmount `json:"installmentPrice"`
	}{alias: (*alias)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.ID = string(aux.ID)
	r.Timestamp = string(aux.Timestamp)
	r.ClientCPF = string(aux.ClientCPF)
	r.Phone = string(aux.Phone)
	r.TotalProductPrice = aux.TotalProductPrice.Decimal
	r.DownPayment = aux.DownPayment.Decimal
	r.InstallmentPrice = aux.InstallmentPrice.Decimal
	r.Installments = 0
	if n, err := decimal.NewFromString(string(aux.Installments)); err == nil {
		r.Installments = int(n.IntPart())
	}
	return nil
}

// flexString accepts a JSON string, number or null
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
	case data[0] == '{' || data[0] == '[':
		*f = ""
	default:
		*f = flexString(data)
	}
	return nil
}

// flexAmount accepts a JSON number, a numeric string, a blank string or null
type flexAmount struct {
	decimal.Decimal
}

func (f *flexAmount) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		f.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(string(s))
	if err != nil {
		f.Decimal = decimal.Zero
		return nil
	}
	f.Decimal = d
	return nil
}
