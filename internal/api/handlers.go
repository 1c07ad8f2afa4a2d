package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/apperr"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/eligibility"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/middleware"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/repository"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/response"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/services"
	"github.com/Emi-Dz/formulario-clientes-parcelas/pkg/logging"

	"github.com/gin-gonic/gin"
)

// AuditReader lists audit rows
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]models.SubmissionLog, error)
	ByIdentity(ctx context.Context, normalizedCPF string) ([]models.SubmissionLog, error)
}

// Handlers holds the services behind the HTTP API
type Handlers struct {
	Auth     *services.AuthService
	Repo     *repository.Repository
	Machine  *eligibility.Machine
	Pipeline *services.SubmissionPipeline
	Sync     *services.Synchronizer
	Actions  *services.ClientActions
	Audit    AuditReader

	// AppCtx outlives requests; delayed refreshes run on it
	AppCtx context.Context
}

// writeError maps service errors to HTTP statuses
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRowBusy):
		response.ErrorJSON(c, http.StatusConflict, err.Error())
		return
	case errors.Is(err, services.ErrRecordNotFound):
		response.ErrorJSON(c, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, services.ErrInvalidCredentials):
		response.ErrorJSON(c, http.StatusUnauthorized, err.Error())
		return
	}

	switch apperr.KindOf(err) {
	case apperr.ConfigurationMissing:
		response.ErrorJSON(c, http.StatusServiceUnavailable, err.Error())
	case apperr.NetworkFailure, apperr.RemoteRejected, apperr.ParseFailure:
		response.ErrorJSON(c, http.StatusBadGateway, err.Error())
	case apperr.ValidationRejected:
		response.ErrorJSON(c, http.StatusUnprocessableEntity, err.Error())
	default:
		logging.Errorf("Unhandled error - path: %s, error: %v", c.FullPath(), err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Internal server error")
	}
}

// writeBindError answers a failed request binding, listing field errors when available
func writeBindError(c *gin.Context, err error) {
	if details := middleware.ValidationDetails(err); details != nil {
		response.JSON(c, http.StatusUnprocessableEntity, response.Failure("Request validation failed", details))
		return
	}
	response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
}

// requireSynchronized rejects ids the remote store has not assigned yet
func requireSynchronized(c *gin.Context, id string) bool {
	if strings.HasPrefix(id, models.LocalIDPrefix) {
		response.ErrorJSON(c, http.StatusConflict, "Record is not synchronized yet, refresh and retry")
		return false
	}
	return true
}
