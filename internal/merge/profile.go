// Package merge builds client profiles from the purchase history of an identity.
package merge

import (
	"sort"
	"strings"
	"time"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/identity"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"02/01/2006, 15:04:05",
}

// ParseDate reads the date formats seen in the remote sheet. Unknown values
// return the zero time and sort as oldest.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ByRecency returns the records ordered by purchase date, newest first.
// Records with the same date keep their arrival order.
func ByRecency(records []models.PurchaseRecord) []models.PurchaseRecord {
	dates := make([]time.Time, len(records))
	idx := make([]int, len(records))
	for i := range records {
		idx[i] = i
		dates[i] = ParseDate(records[i].PurchaseDate)
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return dates[idx[a]].After(dates[idx[b]])
	})
	sorted := make([]models.PurchaseRecord, len(records))
	for i, j := range idx {
		sorted[i] = records[j]
	}
	return sorted
}

// BuildProfile merges every record of normalizedID into one profile.
// It returns false when the identity has no history. all is never modified.
func BuildProfile(normalizedID string, all []models.PurchaseRecord) (*models.ClientProfile, bool) {
	if normalizedID == "" {
		return nil, false
	}

	var matches []models.PurchaseRecord
	for _, rec := range all {
		if identity.SameClient(rec.ClientCPF, normalizedID) {
			matches = append(matches, rec)
		}
	}
	if len(matches) == 0 {
		return nil, false
	}

	matches = ByRecency(matches)
	anchor := matches[0]

	profile := &models.ClientProfile{
		Identity:               normalizedID,
		AnchorID:               anchor.ID,
		RecordCount:            len(matches),
		ClientFullName:         anchor.ClientFullName,
		Phone:                  anchor.Phone,
		WorkLocation:           anchor.WorkLocation,
		WorkAddress:            anchor.WorkAddress,
		HomeLocation:           anchor.HomeLocation,
		HomeAddress:            anchor.HomeAddress,
		Reference1Name:         anchor.Reference1Name,
		Reference1Relationship: anchor.Reference1Relationship,
		Reference2Name:         anchor.Reference2Name,
		Reference2Relationship: anchor.Reference2Relationship,
		ClientStatus:           anchor.ClientStatus,
		Evidence:               make(map[models.SlotName]models.EvidenceSlot, len(models.SlotNames)),
	}

	for _, name := range models.SlotNames {
		profile.Evidence[name] = models.EmptySlot()
		// contract photos belong to a single transaction
		if name.IsContractSlot() {
			continue
		}
		for i := range matches {
			if slot := matches[i].Slot(name); slot != nil && !slot.IsEmpty() {
				profile.Evidence[name] = *slot
				break
			}
		}
	}

	return profile, true
}

// Prefill copies a profile onto a new purchase form. Transaction fields the
// user already typed and files already attached are kept.
func Prefill(form *models.PurchaseRecord, p *models.ClientProfile) {
	if form == nil || p == nil {
		return
	}
	form.ClientFullName = p.ClientFullName
	form.Phone = p.Phone
	form.WorkLocation = p.WorkLocation
	form.WorkAddress = p.WorkAddress
	form.HomeLocation = p.HomeLocation
	form.HomeAddress = p.HomeAddress
	form.Reference1Name = p.Reference1Name
	form.Reference1Relationship = p.Reference1Relationship
	form.Reference2Name = p.Reference2Name
	form.Reference2Relationship = p.Reference2Relationship
	form.ClientStatus = p.ClientStatus

	for name, slot := range p.Evidence {
		target := form.Slot(name)
		if target == nil || target.Kind() == models.SlotPending {
			continue
		}
		if name.IsContractSlot() {
			*target = models.EmptySlot()
			continue
		}
		*target = slot
	}
}
