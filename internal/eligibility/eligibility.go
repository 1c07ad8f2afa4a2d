// Package eligibility gates new purchases on the status of a client identity.
package eligibility

import (
	"fmt"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/apperr"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/identity"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/merge"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
)

// ReasonNotEligible is the rejection reason for a blocked new purchase
const ReasonNotEligible = "not eligible"

// Policy decides which status an identity takes after a successful purchase.
type Policy struct {
	PostCreate models.ClientStatus
}

// DefaultPolicy locks an identity after each purchase until a reviewer reopens it
func DefaultPolicy() Policy {
	return Policy{PostCreate: models.StatusIneligible}
}

// ParsePolicy builds a Policy from its configured post-create status
func ParsePolicy(postCreate string) (Policy, error) {
	status := models.ClientStatus(postCreate)
	if !status.Valid() {
		return Policy{}, fmt.Errorf("invalid post-create status %q", postCreate)
	}
	return Policy{PostCreate: status}, nil
}

// LocksAfterCreate reports whether a create must be followed by a status broadcast
func (p Policy) LocksAfterCreate() bool {
	return p.PostCreate == models.StatusIneligible
}

// Snapshot supplies the known records
type Snapshot interface {
	All() []models.PurchaseRecord
}

// Machine answers eligibility questions against the cached records
type Machine struct {
	records Snapshot
	policy  Policy
}

func NewMachine(records Snapshot, policy Policy) *Machine {
	return &Machine{records: records, policy: policy}
}

func (m *Machine) Policy() Policy {
	return m.policy
}

// StatusOf returns the status of the identity behind rawCPF. Identities
// without history are eligible.
func (m *Machine) StatusOf(rawCPF string) models.ClientStatus {
	profile, ok := merge.BuildProfile(identity.Normalize(rawCPF), m.records.All())
	if !ok || profile.ClientStatus != models.StatusIneligible {
		return models.StatusEligible
	}
	return models.StatusIneligible
}

// CheckNewPurchase returns a ValidationRejected error when a new purchase
// for rawCPF must be blocked.
func (m *Machine) CheckNewPurchase(rawCPF string) error {
	if m.StatusOf(rawCPF) == models.StatusIneligible {
		return apperr.Validation(ReasonNotEligible)
	}
	return nil
}

// ValidateTarget checks the requested state of a reviewer status change
func ValidateTarget(to models.ClientStatus) error {
	if !to.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown client status %q", to))
	}
	return nil
}

// Toggle returns the opposite state; an unset status counts as eligible.
func Toggle(current models.ClientStatus) models.ClientStatus {
	if current == models.StatusEligible || current == "" {
		return models.StatusIneligible
	}
	return models.StatusEligible
}
