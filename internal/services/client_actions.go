package services

import (
	"context"
	"errors"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/apperr"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/eligibility"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/identity"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/repository"
	"github.com/Emi-Dz/formulario-clientes-parcelas/pkg/logging"
)

// ErrRecordNotFound is returned for ids missing from the repository
var ErrRecordNotFound = errors.New("record not found")

// ClientActions are the reviewer operations on existing rows
type ClientActions struct {
	remote RemoteStore
	repo   *repository.Repository
	guard  RowGuard
	audit  AuditRecorder
}

func NewClientActions(remote RemoteStore, repo *repository.Repository, guard RowGuard, audit AuditRecorder) *ClientActions {
	if guard == nil {
		guard = NewMemoryRowGuard()
	}
	return &ClientActions{remote: remote, repo: repo, guard: guard, audit: auditOrNop(audit)}
}

// Delete removes a record remotely and then from the repository
func (a *ClientActions) Delete(ctx context.Context, actor models.AuthUser, id string) error {
	release, err := a.guard.TryAcquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	rec, ok := a.repo.Get(id)
	if !ok {
		return ErrRecordNotFound
	}
	cpf := identity.Normalize(rec.ClientCPF)

	if err := a.remote.DeleteRecord(ctx, id); err != nil {
		recordAudit(ctx, a.audit, models.OperationDelete, id, cpf, actor, OutcomeFailed, err.Error())
		return err
	}

	a.repo.Remove(id)
	recordAudit(ctx, a.audit, models.OperationDelete, id, cpf, actor, OutcomeAccepted, "")
	logging.Infof("Record deleted - id: %s, actor: %s", id, actor.Username)
	return nil
}

// ChangeStatus sets the status of the identity behind record id and
// returns how many cached records were updated.
func (a *ClientActions) ChangeStatus(ctx context.Context, actor models.AuthUser, id string, to models.ClientStatus) (int, error) {
	if err := eligibility.ValidateTarget(to); err != nil {
		return 0, err
	}

	release, err := a.guard.TryAcquire(ctx, id)
	if err != nil {
		return 0, err
	}
	defer release()

	rec, ok := a.repo.Get(id)
	if !ok {
		return 0, ErrRecordNotFound
	}
	cpf := identity.Normalize(rec.ClientCPF)
	if cpf == "" {
		return 0, apperr.Validation("record has no CPF")
	}

	if err := a.remote.UpdateClientStatus(ctx, cpf, to); err != nil {
		recordAudit(ctx, a.audit, models.OperationStatusChange, id, cpf, actor, OutcomeFailed, err.Error())
		return 0, err
	}

	updated := a.repo.SetStatusForIdentity(cpf, to)
	recordAudit(ctx, a.audit, models.OperationStatusChange, id, cpf, actor, OutcomeAccepted, string(to))
	logging.Infof("Client status changed - identity: %s, status: %s, records: %d, actor: %s", cpf, to, updated, actor.Username)
	return updated, nil
}
