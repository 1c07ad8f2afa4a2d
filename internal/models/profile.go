package models

// ClientProfile is the composite of a client's history used to pre-fill a new record
type ClientProfile struct {
	Identity    string `json:"identity"`
	AnchorID    string `json:"anchorId"`
	RecordCount int    `json:"recordCount"`

	ClientFullName         string `json:"clientFullName"`
	Phone                  string `json:"phone"`
	WorkLocation           string `json:"workLocation"`
	WorkAddress            string `json:"workAddress"`
	HomeLocation           string `json:"homeLocation"`
	HomeAddress            string `json:"homeAddress"`
	Reference1Name         string `json:"reference1Name"`
	Reference1Relationship string `json:"reference1Relationship"`
	Reference2Name         string `json:"reference2Name"`
	Reference2Relationship string `json:"reference2Relationship"`

	ClientStatus ClientStatus `json:"clientStatus"`

	Evidence map[SlotName]EvidenceSlot `json:"evidence"`
}

// Ineligible reports whether the profile blocks new purchases
func (p *ClientProfile) Ineligible() bool {
	return p != nil && p.ClientStatus == StatusIneligible
}
