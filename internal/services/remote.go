package services

import (
	"context"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/webhook"
	"github.com/Emi-Dz/formulario-clientes-parcelas/pkg/logging"
)

// RemoteStore is the webhook-backed record store
type RemoteStore interface {
	Endpoints() webhook.Endpoints
	FetchRecords(ctx context.Context) ([]models.PurchaseRecord, error)
	FetchUsers(ctx context.Context) ([]models.User, error)
	SendRecord(ctx context.Context, op, url string, payload *webhook.Payload) error
	DeleteRecord(ctx context.Context, id string) error
	UpdateClientStatus(ctx context.Context, normalizedCPF string, status models.ClientStatus) error
	SendReport(ctx context.Context, rec *models.PurchaseRecord) error
}

// AuditRecorder persists one row per remote mutation attempt
type AuditRecorder interface {
	Record(ctx context.Context, entry *models.SubmissionLog) error
}

type nopAudit struct{}

func (nopAudit) Record(context.Context, *models.SubmissionLog) error { return nil }

func auditOrNop(a AuditRecorder) AuditRecorder {
	if a == nil {
		return nopAudit{}
	}
	return a
}

// recordAudit writes one audit row; failures are logged and never surface
func recordAudit(ctx context.Context, audit AuditRecorder, op, recordID, cpf string, actor models.AuthUser, outcome OutcomeKind, detail string) {
	entry := &models.SubmissionLog{
		Operation: op,
		RecordID:  recordID,
		Identity:  cpf,
		Actor:     actor.Username,
		Outcome:   string(outcome),
		Detail:    detail,
	}
	if err := audit.Record(ctx, entry); err != nil {
		logging.Errorf("Failed to write audit log - operation: %s, record: %s, error: %v", op, recordID, err)
	}
}
