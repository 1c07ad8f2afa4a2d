package webhook

import (
	"bytes"
	"mime/multipart"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
)

// UpdateTargetKey carries the server-side id of the row being edited. It is
// distinct from the record's own "id" field.
const UpdateTargetKey = "updateTargetId"

// Part is one multipart field: text when Filename is empty, binary otherwise
type Part struct {
	Key      string
	Value    string
	Filename string
	Content  []byte
}

func (p Part) IsBinary() bool {
	return p.Filename != ""
}

// Payload is the assembled body of a create or update submission
type Payload struct {
	Parts []Part
}

// AssemblePayload serialises rec. Each evidence slot appears once, either as
// its filename text or as the pending file's content. updateTargetID is
// appended when non-empty.
func AssemblePayload(rec *models.PurchaseRecord, updateTargetID string) *Payload {
	p := &Payload{}
	for _, f := range rec.ScalarFields() {
		p.Parts = append(p.Parts, Part{Key: f.Key, Value: f.Value})
	}

	for _, name := range models.SlotNames {
		slot := rec.Slot(name)
		if slot.Kind() == models.SlotPending {
			filename := slot.Name()
			if filename == "" {
				filename = string(name)
			}
			p.Parts = append(p.Parts, Part{Key: string(name), Filename: filename, Content: slot.Content()})
			continue
		}
		p.Parts = append(p.Parts, Part{Key: string(name), Value: slot.Name()})
	}

	if updateTargetID != "" {
		p.Parts = append(p.Parts, Part{Key: UpdateTargetKey, Value: updateTargetID})
	}
	return p
}

// Get returns the first part with the given key
func (p *Payload) Get(key string) (Part, bool) {
	for _, part := range p.Parts {
		if part.Key == key {
			return part, true
		}
	}
	return Part{}, false
}

// Encode writes the payload as multipart/form-data
func (p *Payload) Encode() (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	for _, part := range p.Parts {
		if part.IsBinary() {
			fw, err := w.CreateFormFile(part.Key, part.Filename)
			if err != nil {
				return nil, "", err
			}
			if _, err := fw.Write(part.Content); err != nil {
				return nil, "", err
			}
			continue
		}
		if err := w.WriteField(part.Key, part.Value); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}
