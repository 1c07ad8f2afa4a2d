package services

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/apperr"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/eligibility"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/identity"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/merge"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/repository"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/webhook"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin  = models.AuthUser{ID: "1", Username: "boss", Role: models.RoleAdmin}
	seller = models.AuthUser{ID: "2", Username: "ana", Role: models.RoleSeller}
)

type memoryAudit struct {
	mu      sync.Mutex
	entries []models.SubmissionLog
}

func (a *memoryAudit) Record(_ context.Context, entry *models.SubmissionLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *entry)
	return nil
}

func (a *memoryAudit) last() models.SubmissionLog {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.entries[len(a.entries)-1]
}

type harness struct {
	store    *fakeStore
	repo     *repository.Repository
	machine  *eligibility.Machine
	pipeline *SubmissionPipeline
	sync     *Synchronizer
	actions  *ClientActions
	audit    *memoryAudit
}

func newHarness(t *testing.T, remote func(*fakeStore) RemoteStore) *harness {
	t.Helper()
	store := newFakeStore(t)
	var client RemoteStore = store.client()
	if remote != nil {
		client = remote(store)
	}

	repo := repository.New()
	machine := eligibility.NewMachine(repo, eligibility.DefaultPolicy())
	audit := &memoryAudit{}
	return &harness{
		store:    store,
		repo:     repo,
		machine:  machine,
		pipeline: NewSubmissionPipeline(client, repo, machine, audit),
		sync:     NewSynchronizer(client, repo, 10*time.Millisecond),
		actions:  NewClientActions(client, repo, NewMemoryRowGuard(), audit),
		audit:    audit,
	}
}

func newPurchase(cpf string) models.PurchaseRecord {
	return models.PurchaseRecord{
		ClientFullName:    "Maria Souza",
		ClientCPF:         cpf,
		Product:           "Geladeira",
		TotalProductPrice: decimal.NewFromInt(1000),
		DownPayment:       decimal.NewFromInt(100),
		Installments:      3,
		InstallmentPrice:  decimal.NewFromInt(999), // ignored, always recomputed
		PaymentSystem:     models.PaymentWeekly,
		PurchaseDate:      "2024-06-01",
		Vendedor:          "ana",
	}
}

func TestSubmit_PriorHistoryPrefillsAndBlocksNewPurchase(t *testing.T) {
	h := newHarness(t, nil)
	h.store.addRow(map[string]interface{}{
		"id":                "1",
		"clientFullName":    "Maria Souza",
		"clientCpf":         "123.456.789-01",
		"phone":             "111",
		"purchaseDate":      "2024-01-01",
		"photoHomeFileName": "home.jpg",
		"clientStatus":      "no_apto",
	})
	ctx := context.Background()
	require.NoError(t, h.sync.Refresh(ctx, true))

	profile, ok := merge.BuildProfile(identity.Normalize("12345678901"), h.repo.All())
	require.True(t, ok)

	form := newPurchase("12345678901")
	merge.Prefill(&form, profile)
	assert.Equal(t, "111", form.Phone)
	assert.Equal(t, "home.jpg", form.PhotoHome.Name())
	assert.Equal(t, models.StatusIneligible, form.ClientStatus)

	outcome := h.pipeline.Submit(ctx, seller, form)

	assert.Equal(t, OutcomeRejected, outcome.Kind)
	assert.Equal(t, eligibility.ReasonNotEligible, outcome.Reason)
	assert.Equal(t, RefreshNone, outcome.Refresh)
	assert.Zero(t, h.store.count("/create"), "a blocked purchase never reaches the network")
	assert.Zero(t, h.store.count("/status"))
	assert.Equal(t, "rejected", h.audit.last().Outcome)
}

func TestSubmit_ReopenedIdentityBuysOnceThenLocksAgain(t *testing.T) {
	h := newHarness(t, nil)
	h.store.addRow(map[string]interface{}{
		"id": "1", "clientCpf": "123.456.789-01", "purchaseDate": "2024-01-01", "clientStatus": "no_apto",
	})
	h.store.addRow(map[string]interface{}{
		"id": "2", "clientCpf": "12345678901", "purchaseDate": "2023-05-01", "clientStatus": "no_apto",
	})
	ctx := context.Background()
	require.NoError(t, h.sync.Refresh(ctx, true))

	updated, err := h.actions.ChangeStatus(ctx, admin, "1", models.StatusEligible)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)
	for _, rec := range h.repo.FindByIdentity("12345678901") {
		assert.Equal(t, models.StatusEligible, rec.ClientStatus, "record %s", rec.ID)
	}

	outcome := h.pipeline.Submit(ctx, seller, newPurchase("123.456.789-01"))

	require.Equal(t, OutcomeAccepted, outcome.Kind, "err: %v", outcome.Err)
	assert.True(t, outcome.Created)
	assert.Equal(t, RefreshDelayed, outcome.Refresh)
	assert.Equal(t, 1, h.store.count("/create"))

	statuses := h.store.statusCalls()
	require.Len(t, statuses, 2)
	assert.Equal(t, map[string]string{"cpf": "12345678901", "status": "no_apto"}, statuses[1])

	records := h.repo.FindByIdentity("12345678901")
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.Equal(t, models.StatusIneligible, rec.ClientStatus, "record %s", rec.ID)
	}

	second := h.pipeline.Submit(ctx, seller, newPurchase("12345678901"))
	assert.Equal(t, OutcomeRejected, second.Kind, "locked before any refresh")
	assert.Equal(t, 1, h.store.count("/create"))
}

func TestSubmit_CreatePayload(t *testing.T) {
	h := newHarness(t, nil)
	now := time.Date(2024, 6, 1, 14, 5, 9, 0, time.UTC)
	h.pipeline.now = func() time.Time { return now }

	rec := newPurchase("98765432100")
	rec.PhotoFace = models.PendingUpload("face.jpg", []byte("jpeg"))
	rec.PhotoStore = models.Reference("store.jpg")

	outcome := h.pipeline.Submit(context.Background(), seller, rec)
	require.Equal(t, OutcomeAccepted, outcome.Kind, "err: %v", outcome.Err)

	form, files := h.store.lastForm()
	assert.Equal(t, "", form["id"], "new records carry no server id")
	assert.Equal(t, "300.00", form["installmentPrice"])
	assert.Equal(t, "01/06/2024, 14:05:09", form["timestamp"])
	assert.Equal(t, "store.jpg", form["photoStoreFileName"])
	assert.Equal(t, "", form["photoHomeFileName"])
	assert.NotContains(t, form, webhook.UpdateTargetKey)
	assert.Equal(t, map[string]string{"photoFaceFileName": "face.jpg"}, files)

	assert.Equal(t, 1, h.store.count("/report"))

	cached, ok := h.repo.Get(outcome.Record.ID)
	require.True(t, ok)
	assert.True(t, cached.IsNew())
	assert.Equal(t, models.SlotReference, cached.PhotoFace.Kind())
	assert.Nil(t, cached.PhotoFace.Content())
}

func TestSubmit_AdminCreateRefreshesImmediately(t *testing.T) {
	h := newHarness(t, nil)

	outcome := h.pipeline.Submit(context.Background(), admin, newPurchase("98765432100"))

	require.Equal(t, OutcomeAccepted, outcome.Kind)
	assert.Equal(t, RefreshImmediate, outcome.Refresh)
}

func TestSubmit_Update(t *testing.T) {
	h := newHarness(t, nil)
	rec := newPurchase("98765432100")
	rec.ID = "7"
	rec.PhotoContractFront = models.Reference("contract.jpg")
	h.repo.Put(rec)

	t.Run("sellers cannot edit", func(t *testing.T) {
		outcome := h.pipeline.Submit(context.Background(), seller, rec)
		assert.Equal(t, OutcomeRejected, outcome.Kind)
		assert.Zero(t, h.store.count("/update"))
	})

	t.Run("admin edit goes to the update endpoint", func(t *testing.T) {
		outcome := h.pipeline.Submit(context.Background(), admin, rec)

		require.Equal(t, OutcomeAccepted, outcome.Kind, "err: %v", outcome.Err)
		assert.False(t, outcome.Created)
		assert.Equal(t, RefreshImmediate, outcome.Refresh)
		assert.Equal(t, 1, h.store.count("/update"))
		assert.Zero(t, h.store.count("/create"))
		assert.Zero(t, h.store.count("/status"), "edits never change eligibility")

		form, _ := h.store.lastForm()
		assert.Equal(t, "7", form["id"])
		assert.Equal(t, "7", form[webhook.UpdateTargetKey])
		assert.Equal(t, "contract.jpg", form["photoContractFrontFileName"])
	})

	t.Run("records missing from the cache are not sent", func(t *testing.T) {
		ghost := newPurchase("98765432100")
		ghost.ID = "404"

		outcome := h.pipeline.Submit(context.Background(), admin, ghost)

		assert.Equal(t, OutcomeFailed, outcome.Kind)
		assert.ErrorIs(t, outcome.Err, ErrRecordNotFound)
		assert.Equal(t, 1, h.store.count("/update"))
	})
}

func TestSubmit_UpdateKeepsIdentityStatus(t *testing.T) {
	h := newHarness(t, nil)
	h.store.addRow(map[string]interface{}{
		"id": "1", "clientCpf": "123.456.789-01", "purchaseDate": "2024-01-01", "clientStatus": "no_apto",
	})
	h.store.addRow(map[string]interface{}{
		"id": "2", "clientCpf": "12345678901", "purchaseDate": "2023-05-01", "clientStatus": "no_apto",
	})
	ctx := context.Background()
	require.NoError(t, h.sync.Refresh(ctx, true))

	edited, ok := h.repo.Get("1")
	require.True(t, ok)
	edited.Notes = "called back"
	edited.ClientStatus = models.StatusEligible

	outcome := h.pipeline.Submit(ctx, admin, edited)

	require.Equal(t, OutcomeAccepted, outcome.Kind, "err: %v", outcome.Err)
	form, _ := h.store.lastForm()
	assert.Equal(t, "no_apto", form["clientStatus"])
	assert.Equal(t, "called back", form["notes"])
	assert.Empty(t, h.store.statusCalls())
	for _, rec := range h.repo.FindByIdentity("12345678901") {
		assert.Equal(t, models.StatusIneligible, rec.ClientStatus, "record %s", rec.ID)
	}
}

func TestSubmit_CreateStoresPolicyStatus(t *testing.T) {
	h := newHarness(t, func(f *fakeStore) RemoteStore {
		return f.clientWith(func(e *webhook.Endpoints) { e.ClientStatus = "" })
	})
	h.store.echoCreates()
	ctx := context.Background()

	rec := newPurchase("123.456.789-01")
	rec.ClientStatus = "whatever"
	outcome := h.pipeline.Submit(ctx, seller, rec)
	require.Equal(t, OutcomeAccepted, outcome.Kind, "err: %v", outcome.Err)

	form, _ := h.store.lastForm()
	assert.Equal(t, "no_apto", form["clientStatus"])

	require.NoError(t, h.sync.Refresh(ctx, true))
	require.Len(t, h.repo.FindByIdentity("12345678901"), 1)
	assert.Equal(t, models.StatusIneligible, h.machine.StatusOf("12345678901"))

	second := h.pipeline.Submit(ctx, seller, newPurchase("12345678901"))
	assert.Equal(t, OutcomeRejected, second.Kind)
	assert.Equal(t, 1, h.store.count("/create"))
}

func TestSubmit_CreateWithoutCPF(t *testing.T) {
	h := newHarness(t, nil)

	outcome := h.pipeline.Submit(context.Background(), seller, newPurchase(""))

	require.Equal(t, OutcomeAccepted, outcome.Kind, "err: %v", outcome.Err)
	assert.Equal(t, 1, h.store.count("/create"))
	assert.Zero(t, h.store.count("/status"), "no identity to lock")
}

func TestSubmit_Failures(t *testing.T) {
	t.Run("create endpoint not configured", func(t *testing.T) {
		h := newHarness(t, func(f *fakeStore) RemoteStore {
			return f.clientWith(func(e *webhook.Endpoints) { e.RecordCreate = "" })
		})

		outcome := h.pipeline.Submit(context.Background(), seller, newPurchase("98765432100"))

		assert.Equal(t, OutcomeFailed, outcome.Kind)
		assert.Equal(t, apperr.ConfigurationMissing, apperr.KindOf(outcome.Err))
		assert.Zero(t, h.repo.Len())
	})

	t.Run("remote rejects the create", func(t *testing.T) {
		h := newHarness(t, nil)
		h.store.failWith("/create", http.StatusInternalServerError)

		outcome := h.pipeline.Submit(context.Background(), seller, newPurchase("98765432100"))

		assert.Equal(t, OutcomeFailed, outcome.Kind)
		assert.Equal(t, apperr.RemoteRejected, apperr.KindOf(outcome.Err))
		assert.Contains(t, outcome.Err.Error(), "sheet unavailable")
		assert.Zero(t, h.store.count("/status"), "no lock without a create")
		assert.Zero(t, h.repo.Len())
		assert.Equal(t, "failed", h.audit.last().Outcome)
	})

	t.Run("status broadcast failure keeps the create", func(t *testing.T) {
		h := newHarness(t, nil)
		h.store.failWith("/status", http.StatusBadGateway)
		h.store.failWith("/report", http.StatusBadGateway)

		outcome := h.pipeline.Submit(context.Background(), seller, newPurchase("98765432100"))

		assert.Equal(t, OutcomeAccepted, outcome.Kind)
		assert.Equal(t, 1, h.store.count("/status"))
	})

	t.Run("status endpoint not configured locks locally", func(t *testing.T) {
		h := newHarness(t, func(f *fakeStore) RemoteStore {
			return f.clientWith(func(e *webhook.Endpoints) { e.ClientStatus = "" })
		})

		outcome := h.pipeline.Submit(context.Background(), seller, newPurchase("98765432100"))

		require.Equal(t, OutcomeAccepted, outcome.Kind)
		assert.Equal(t, models.StatusIneligible, outcome.Record.ClientStatus)
		assert.Equal(t, models.StatusIneligible, h.machine.StatusOf("987.654.321-00"))
	})
}

func TestSubmit_PolicyWithoutLock(t *testing.T) {
	h := newHarness(t, nil)
	h.machine = eligibility.NewMachine(h.repo, eligibility.Policy{PostCreate: models.StatusEligible})
	h.pipeline = NewSubmissionPipeline(h.store.client(), h.repo, h.machine, nil)

	outcome := h.pipeline.Submit(context.Background(), seller, newPurchase("98765432100"))

	require.Equal(t, OutcomeAccepted, outcome.Kind)
	assert.Zero(t, h.store.count("/status"))
	assert.Equal(t, models.StatusEligible, h.machine.StatusOf("98765432100"))
}
