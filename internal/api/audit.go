package api

import (
	"net/http"
	"strconv"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/identity"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/response"
	"github.com/Emi-Dz/formulario-clientes-parcelas/pkg/logging"

	"github.com/gin-gonic/gin"
)

// ListAudit returns the latest submission log rows, or every row of one
// client when the cpf query parameter is set
func (h *Handlers) ListAudit(c *gin.Context) {
	if raw := c.Query("cpf"); raw != "" {
		key := identity.Normalize(raw)
		if key == "" {
			response.ErrorJSON(c, http.StatusBadRequest, "cpf must contain digits")
			return
		}
		logs, err := h.Audit.ByIdentity(c.Request.Context(), key)
		if err != nil {
			logging.Errorf("Failed to read audit log - identity: %s, error: %v", key, err)
			response.ErrorJSON(c, http.StatusInternalServerError, "Failed to read audit log")
			return
		}
		response.SuccessJSON(c, logs)
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		response.ErrorJSON(c, http.StatusBadRequest, "limit must be between 1 and 500")
		return
	}

	logs, err := h.Audit.Recent(c.Request.Context(), limit)
	if err != nil {
		logging.Errorf("Failed to read audit log: %v", err)
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to read audit log")
		return
	}
	response.SuccessJSON(c, logs)
}
