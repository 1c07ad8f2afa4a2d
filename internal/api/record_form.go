package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/webhook"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// recordRequirements are checked on every submission. A record may have no
// CPF at all; one that is present must be complete.
type recordRequirements struct {
	ClientFullName string `json:"clientFullName" binding:"required"`
	ClientCPF      string `json:"clientCpf" binding:"omitempty,cpf"`
}

// bindRecord decodes a submission from a multipart form or a JSON body.
// Fields absent from the request keep the value they have in base.
func bindRecord(c *gin.Context, base *models.PurchaseRecord) (models.PurchaseRecord, error) {
	fields := make(map[string]interface{})
	if base != nil {
		raw, err := json.Marshal(base)
		if err != nil {
			return models.PurchaseRecord{}, err
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return models.PurchaseRecord{}, err
		}
	}

	var files map[string][]*multipart.FileHeader
	if strings.HasPrefix(c.ContentType(), binding.MIMEMultipartPOSTForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return models.PurchaseRecord{}, err
		}
		for key, values := range form.Value {
			if len(values) > 0 {
				fields[key] = values[0]
			}
		}
		files = form.File
	} else {
		var body map[string]interface{}
		if err := c.ShouldBindJSON(&body); err != nil {
			return models.PurchaseRecord{}, err
		}
		for key, value := range body {
			fields[key] = value
		}
	}
	delete(fields, webhook.UpdateTargetKey)
	// clientStatus is owned by the eligibility broadcast and the create policy
	delete(fields, "clientStatus")

	raw, err := json.Marshal(fields)
	if err != nil {
		return models.PurchaseRecord{}, err
	}
	var rec models.PurchaseRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.PurchaseRecord{}, err
	}
	if base != nil {
		rec.ClientStatus = base.ClientStatus
	}

	for key, headers := range files {
		if len(headers) == 0 {
			continue
		}
		if !models.IsSlotName(key) {
			return models.PurchaseRecord{}, fmt.Errorf("unknown evidence slot %q", key)
		}
		slot, err := readUpload(headers[0])
		if err != nil {
			return models.PurchaseRecord{}, err
		}
		*rec.Slot(models.SlotName(key)) = slot
	}

	if err := binding.Validator.ValidateStruct(&recordRequirements{
		ClientFullName: rec.ClientFullName,
		ClientCPF:      rec.ClientCPF,
	}); err != nil {
		return models.PurchaseRecord{}, err
	}
	return rec, nil
}

func readUpload(header *multipart.FileHeader) (models.EvidenceSlot, error) {
	f, err := header.Open()
	if err != nil {
		return models.EvidenceSlot{}, fmt.Errorf("failed to open upload %s: %w", header.Filename, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return models.EvidenceSlot{}, fmt.Errorf("failed to read upload %s: %w", header.Filename, err)
	}
	return models.PendingUpload(header.Filename, content), nil
}
