package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// SlotName is the wire key of an evidence photo field
type SlotName string

const (
	SlotStore         SlotName = "photoStoreFileName"
	SlotHome          SlotName = "photoHomeFileName"
	SlotPhoneCode     SlotName = "photoPhoneCodeFileName"
	SlotContractFront SlotName = "photoContractFrontFileName"
	SlotContractBack  SlotName = "photoContractBackFileName"
	SlotIDFront       SlotName = "photoIdFrontFileName"
	SlotIDBack        SlotName = "photoIdBackFileName"
	SlotCPF           SlotName = "photoCpfFileName"
	SlotFace          SlotName = "photoFaceFileName"
	SlotInstagram     SlotName = "photoInstagramFileName"
)

// SlotNames lists every evidence slot in form order
var SlotNames = []SlotName{
	SlotStore,
	SlotHome,
	SlotPhoneCode,
	SlotContractFront,
	SlotContractBack,
	SlotIDFront,
	SlotIDBack,
	SlotCPF,
	SlotFace,
	SlotInstagram,
}

// IsContractSlot reports whether the slot belongs to the current transaction's contract
func (n SlotName) IsContractSlot() bool {
	return n == SlotContractFront || n == SlotContractBack
}

// IsSlotName reports whether key names an evidence slot
func IsSlotName(key string) bool {
	for _, n := range SlotNames {
		if string(n) == key {
			return true
		}
	}
	return false
}

// SlotKind tags the EvidenceSlot variant
type SlotKind int

const (
	SlotEmpty SlotKind = iota
	SlotReference
	SlotPending
)

// EvidenceSlot is Empty, a Reference to an uploaded file, or a PendingUpload
// carrying file content that has not been sent yet.
type EvidenceSlot struct {
	kind    SlotKind
	name    string
	content []byte
}

func EmptySlot() EvidenceSlot {
	return EvidenceSlot{}
}

// Reference points at previously uploaded evidence. Blank names and the
// legacy sheet marker "No" are treated as empty.
func Reference(name string) EvidenceSlot {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "no") {
		return EvidenceSlot{}
	}
	return EvidenceSlot{kind: SlotReference, name: name}
}

// PendingUpload holds a local file waiting to be sent with the next submission
func PendingUpload(filename string, content []byte) EvidenceSlot {
	return EvidenceSlot{kind: SlotPending, name: filename, content: content}
}

func (s EvidenceSlot) Kind() SlotKind  { return s.kind }
func (s EvidenceSlot) Name() string    { return s.name }
func (s EvidenceSlot) Content() []byte { return s.content }
func (s EvidenceSlot) IsEmpty() bool   { return s.kind == SlotEmpty }

// MarshalJSON writes the slot as its filename; pending uploads expose only the name.
func (s EvidenceSlot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.name)
}

func (s *EvidenceSlot) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		*s = EvidenceSlot{}
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*s = Reference(name)
	return nil
}
