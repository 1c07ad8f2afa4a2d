package api

import (
	"net/http"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/eligibility"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/middleware"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/response"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/services"
	"github.com/Emi-Dz/formulario-clientes-parcelas/pkg/logging"

	"github.com/gin-gonic/gin"
)

// SubmissionResponse is returned for accepted creates and updates
type SubmissionResponse struct {
	Record  models.PurchaseRecord `json:"record"`
	Created bool                  `json:"created"`
	Refresh services.RefreshMode  `json:"refresh"`
}

// StatusChangeRequest sets the status of a record's identity; empty toggles it
type StatusChangeRequest struct {
	Status models.ClientStatus `json:"status" binding:"omitempty,oneof=apto no_apto"`
}

// StatusChangeResponse reports the cascade
type StatusChangeResponse struct {
	Status  models.ClientStatus `json:"status"`
	Updated int                 `json:"updated"`
}

// ListClients returns a filtered, sorted page of the cached records
func (h *Handlers) ListClients(c *gin.Context) {
	var q services.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, err)
		return
	}
	response.SuccessJSON(c, services.Query(h.Sync.Records(), q))
}

// GetClient returns one cached record
func (h *Handlers) GetClient(c *gin.Context) {
	rec, ok := h.Repo.Get(c.Param("id"))
	if !ok {
		response.ErrorJSON(c, http.StatusNotFound, services.ErrRecordNotFound.Error())
		return
	}
	response.SuccessJSON(c, rec)
}

// RefreshClients reloads the repository from the remote store
func (h *Handlers) RefreshClients(c *gin.Context) {
	actor := middleware.CurrentUser(c)
	if err := h.Sync.Refresh(c.Request.Context(), actor.IsAdmin()); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, gin.H{"count": h.Repo.Len()})
}

// CreateClient submits a new purchase
func (h *Handlers) CreateClient(c *gin.Context) {
	rec, err := bindRecord(c, nil)
	if err != nil {
		writeBindError(c, err)
		return
	}
	if !rec.IsNew() {
		response.ErrorJSON(c, http.StatusBadRequest, "New records must not carry a server id, use PUT to edit")
		return
	}
	h.submit(c, rec, http.StatusCreated)
}

// UpdateClient edits an existing record
func (h *Handlers) UpdateClient(c *gin.Context) {
	id := c.Param("id")
	if !requireSynchronized(c, id) {
		return
	}
	existing, ok := h.Repo.Get(id)
	if !ok {
		response.ErrorJSON(c, http.StatusNotFound, services.ErrRecordNotFound.Error())
		return
	}

	rec, err := bindRecord(c, &existing)
	if err != nil {
		writeBindError(c, err)
		return
	}
	rec.ID = id
	h.submit(c, rec, http.StatusOK)
}

func (h *Handlers) submit(c *gin.Context, rec models.PurchaseRecord, successStatus int) {
	actor := middleware.CurrentUser(c)
	outcome := h.Pipeline.Submit(c.Request.Context(), actor, rec)

	switch outcome.Kind {
	case services.OutcomeRejected:
		response.ErrorJSON(c, http.StatusUnprocessableEntity, outcome.Reason)
		return
	case services.OutcomeFailed:
		writeError(c, outcome.Err)
		return
	}

	if err := h.Sync.Apply(h.AppCtx, outcome.Refresh, actor.IsAdmin()); err != nil {
		logging.Warnf("Refresh after submission failed - record: %s, error: %v", outcome.Record.ID, err)
	}

	response.JSON(c, successStatus, response.Success(SubmissionResponse{
		Record:  outcome.Record,
		Created: outcome.Created,
		Refresh: outcome.Refresh,
	}))
}

// DeleteClient removes one record
func (h *Handlers) DeleteClient(c *gin.Context) {
	id := c.Param("id")
	if !requireSynchronized(c, id) {
		return
	}
	if err := h.Actions.Delete(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, nil)
}

// ChangeClientStatus sets the eligibility of the identity behind a record
func (h *Handlers) ChangeClientStatus(c *gin.Context) {
	id := c.Param("id")
	if !requireSynchronized(c, id) {
		return
	}

	var req StatusChangeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
	}

	target := req.Status
	if target == "" {
		rec, ok := h.Repo.Get(id)
		if !ok {
			response.ErrorJSON(c, http.StatusNotFound, services.ErrRecordNotFound.Error())
			return
		}
		target = eligibility.Toggle(rec.ClientStatus)
	}

	updated, err := h.Actions.ChangeStatus(c.Request.Context(), middleware.CurrentUser(c), id, target)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessJSON(c, StatusChangeResponse{Status: target, Updated: updated})
}
