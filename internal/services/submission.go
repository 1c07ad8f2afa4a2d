package services

import (
	"context"
	"time"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/apperr"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/eligibility"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/identity"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/repository"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/webhook"
	"github.com/Emi-Dz/formulario-clientes-parcelas/pkg/logging"
	"go.uber.org/zap"
)

// OutcomeKind is the result class of a submission
type OutcomeKind string

const (
	OutcomeAccepted OutcomeKind = "accepted"
	OutcomeRejected OutcomeKind = "rejected"
	OutcomeFailed   OutcomeKind = "failed"
)

// Outcome of SubmissionPipeline.Submit
type Outcome struct {
	Kind    OutcomeKind
	Reason  string // set when rejected
	Err     error  // set when failed
	Created bool
	Record  models.PurchaseRecord
	Refresh RefreshMode
}

// TimestampLayout is the creation timestamp format of the sheet
const TimestampLayout = "02/01/2006, 15:04:05"

// SubmissionPipeline sends new and edited records to the remote store
type SubmissionPipeline struct {
	remote  RemoteStore
	repo    *repository.Repository
	machine *eligibility.Machine
	audit   AuditRecorder
	now     func() time.Time
}

func NewSubmissionPipeline(remote RemoteStore, repo *repository.Repository, machine *eligibility.Machine, audit AuditRecorder) *SubmissionPipeline {
	return &SubmissionPipeline{
		remote:  remote,
		repo:    repo,
		machine: machine,
		audit:   auditOrNop(audit),
		now:     time.Now,
	}
}

// Submit runs the local gate, dispatches the record to the create or update
// destination and, after a create, locks the identity.
func (p *SubmissionPipeline) Submit(ctx context.Context, actor models.AuthUser, rec models.PurchaseRecord) Outcome {
	rec.Recalculate()
	creating := rec.IsNew()
	cpf := identity.Normalize(rec.ClientCPF)

	op := models.OperationUpdate
	if creating {
		op = models.OperationCreate
		if rec.ID == "" {
			rec.ID = models.NewLocalID()
		}
		if rec.Timestamp == "" {
			rec.Timestamp = p.now().Format(TimestampLayout)
		}
		// The stored row carries the lock itself so it survives a refresh
		// even when the status broadcast is unavailable.
		rec.ClientStatus = p.machine.Policy().PostCreate
	}

	log := logging.L().With(
		zap.String("operation", op),
		zap.String("record_id", rec.ID),
		zap.String("identity", cpf),
		zap.String("actor", actor.Username),
	)

	if creating {
		if err := p.machine.CheckNewPurchase(rec.ClientCPF); err != nil {
			log.Warn("submission rejected locally", zap.Error(err))
			recordAudit(ctx, p.audit, op, rec.ID, cpf, actor, OutcomeRejected, err.Error())
			return Outcome{Kind: OutcomeRejected, Reason: eligibility.ReasonNotEligible, Record: rec, Refresh: RefreshNone}
		}
	} else {
		if !actor.IsAdmin() {
			recordAudit(ctx, p.audit, op, rec.ID, cpf, actor, OutcomeRejected, "edit requires admin")
			return Outcome{Kind: OutcomeRejected, Reason: "only administrators can edit records", Record: rec, Refresh: RefreshNone}
		}
		// Status only changes through an identity-wide broadcast, never per row.
		existing, ok := p.repo.Get(rec.ID)
		if !ok {
			recordAudit(ctx, p.audit, op, rec.ID, cpf, actor, OutcomeFailed, ErrRecordNotFound.Error())
			return Outcome{Kind: OutcomeFailed, Err: ErrRecordNotFound, Record: rec, Refresh: RefreshNone}
		}
		rec.ClientStatus = existing.ClientStatus
	}

	url, updateTarget := p.destination(&rec, creating)
	if url == "" {
		err := apperr.MissingEndpoint("record " + op)
		log.Error("submission not dispatched", zap.Error(err))
		recordAudit(ctx, p.audit, op, rec.ID, cpf, actor, OutcomeFailed, err.Error())
		return Outcome{Kind: OutcomeFailed, Err: err, Record: rec, Refresh: RefreshNone}
	}

	payload := webhook.AssemblePayload(&rec, updateTarget)
	if err := p.remote.SendRecord(ctx, op+" record", url, payload); err != nil {
		log.Error("submission failed", zap.Error(err))
		recordAudit(ctx, p.audit, op, rec.ID, cpf, actor, OutcomeFailed, err.Error())
		return Outcome{Kind: OutcomeFailed, Err: err, Record: rec, Refresh: RefreshNone}
	}

	log.Info("submission accepted")
	recordAudit(ctx, p.audit, op, rec.ID, cpf, actor, OutcomeAccepted, "")

	if creating {
		p.afterCreate(ctx, &rec, cpf, log)
	}
	rec.SettleUploads()
	p.repo.Put(rec)

	return Outcome{
		Kind:    OutcomeAccepted,
		Created: creating,
		Record:  rec,
		Refresh: refreshModeFor(actor, creating),
	}
}

// destination picks the endpoint purely from whether the record has a server id
func (p *SubmissionPipeline) destination(rec *models.PurchaseRecord, creating bool) (url, updateTarget string) {
	endpoints := p.remote.Endpoints()
	if creating {
		return endpoints.RecordCreate, ""
	}
	return endpoints.RecordUpdate, rec.ID
}

// afterCreate runs the best-effort follow-ups of a new purchase. Their
// failures are logged and never change the outcome.
func (p *SubmissionPipeline) afterCreate(ctx context.Context, rec *models.PurchaseRecord, cpf string, log *zap.Logger) {
	followUp := context.WithoutCancel(ctx)
	policy := p.machine.Policy()

	if cpf != "" && policy.LocksAfterCreate() {
		err := p.remote.UpdateClientStatus(followUp, cpf, policy.PostCreate)
		switch {
		case err == nil:
			p.repo.SetStatusForIdentity(cpf, policy.PostCreate)
		case apperr.KindOf(err) == apperr.ConfigurationMissing:
			log.Debug("client status endpoint not configured, lock kept local")
		default:
			log.Warn("post-create status change failed", zap.Error(err))
		}
	}

	if err := p.remote.SendReport(followUp, rec); err != nil && apperr.KindOf(err) != apperr.ConfigurationMissing {
		log.Warn("report workflow failed", zap.Error(err))
	}
}

// refreshModeFor: seller creations go through an asynchronous remote workflow,
// so their refresh waits; admin saves refresh right away.
func refreshModeFor(actor models.AuthUser, creating bool) RefreshMode {
	if creating && !actor.IsAdmin() {
		return RefreshDelayed
	}
	return RefreshImmediate
}
