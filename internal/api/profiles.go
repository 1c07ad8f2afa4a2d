package api

import (
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/identity"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/merge"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/response"

	"github.com/gin-gonic/gin"
)

type profileURI struct {
	CPF string `uri:"cpf" binding:"required,cpf"`
}

// ProfileResponse is the pre-fill view of an identity
type ProfileResponse struct {
	CPF      string                `json:"cpf"`
	Identity string                `json:"identity"`
	Known    bool                  `json:"known"`
	Status   models.ClientStatus   `json:"status"`
	Eligible bool                  `json:"eligible"`
	Profile  *models.ClientProfile `json:"profile,omitempty"`

	// Draft is a new purchase form pre-filled from the profile
	Draft *models.PurchaseRecord `json:"draft,omitempty"`
}

// GetProfile merges the history of a CPF and reports whether it may buy again
func (h *Handlers) GetProfile(c *gin.Context) {
	var uri profileURI
	if err := c.ShouldBindUri(&uri); err != nil {
		writeBindError(c, err)
		return
	}

	key := identity.Normalize(uri.CPF)
	profile, known := merge.BuildProfile(key, h.Repo.All())
	status := h.Machine.StatusOf(key)

	resp := ProfileResponse{
		CPF:      identity.FormatCPF(key),
		Identity: key,
		Known:    known,
		Status:   status,
		Eligible: status == models.StatusEligible,
		Profile:  profile,
	}
	if known {
		draft := models.PurchaseRecord{ClientCPF: resp.CPF}
		merge.Prefill(&draft, profile)
		resp.Draft = &draft
	}
	response.SuccessJSON(c, resp)
}
