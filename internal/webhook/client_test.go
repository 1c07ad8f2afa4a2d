package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/apperr"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(endpoints Endpoints) *Client {
	return NewClient(endpoints, 5*time.Second)
}

func TestClient_FetchRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte(`{"data":[{"id":1,"clientCpf":"123.456.789-01"},"garbage",{"id":2}]}`))
	}))
	defer srv.Close()

	records, err := newTestClient(Endpoints{RecordsFetch: srv.URL}).FetchRecords(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 2, "undecodable items are skipped")
	assert.Equal(t, "1", records[0].ID)
	assert.Equal(t, "123.456.789-01", records[0].ClientCPF)
}

func TestClient_FetchRecords_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	records, err := newTestClient(Endpoints{RecordsFetch: srv.URL}).FetchRecords(context.Background())

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClient_FetchRecords_Errors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		_, err := newTestClient(Endpoints{}).FetchRecords(context.Background())
		assert.Equal(t, apperr.ConfigurationMissing, apperr.KindOf(err))
	})

	t.Run("remote rejection carries body message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"message":"workflow crashed"}`))
		}))
		defer srv.Close()

		_, err := newTestClient(Endpoints{RecordsFetch: srv.URL}).FetchRecords(context.Background())
		assert.Equal(t, apperr.RemoteRejected, apperr.KindOf(err))
		assert.Contains(t, err.Error(), "workflow crashed")
	})

	t.Run("unknown shape", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"ok"}`))
		}))
		defer srv.Close()

		_, err := newTestClient(Endpoints{RecordsFetch: srv.URL}).FetchRecords(context.Background())
		assert.Equal(t, apperr.ParseFailure, apperr.KindOf(err))
	})

	t.Run("network failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		_, err := newTestClient(Endpoints{RecordsFetch: url}).FetchRecords(context.Background())
		assert.Equal(t, apperr.NetworkFailure, apperr.KindOf(err))
	})
}

func TestClient_FetchUsers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"json":{"id":3,"username":"Maria","password":"pw","role":"vendedor"}},{"json":{"identifier":"9","displayName":"boss","secret":"s"}}]`))
	}))
	defer srv.Close()

	users, err := newTestClient(Endpoints{UsersFetch: srv.URL}).FetchUsers(context.Background())

	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, models.User{ID: "3", Username: "Maria", Password: "pw", Role: "vendedor"}, users[0])
	assert.Equal(t, models.User{ID: "9", Username: "boss", Password: "s"}, users[1])
}

func TestClient_JSONActions(t *testing.T) {
	var got []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		got = append(got, body)
	}))
	defer srv.Close()

	c := newTestClient(Endpoints{RecordDelete: srv.URL, ClientStatus: srv.URL})
	require.NoError(t, c.DeleteRecord(context.Background(), "15"))
	require.NoError(t, c.UpdateClientStatus(context.Background(), "12345678901", models.StatusEligible))

	assert.Equal(t, []map[string]string{
		{"id": "15"},
		{"cpf": "12345678901", "status": "apto"},
	}, got)
}

func TestClient_SendRecordMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "Ana", r.FormValue("clientFullName"))
		assert.Equal(t, "17", r.FormValue(UpdateTargetKey))
		_, hasText := r.MultipartForm.Value[string(models.SlotFace)]
		assert.False(t, hasText)

		fh := r.MultipartForm.File[string(models.SlotFace)]
		require.Len(t, fh, 1)
		assert.Equal(t, "face.png", fh[0].Filename)
		f, err := fh[0].Open()
		require.NoError(t, err)
		content, _ := io.ReadAll(f)
		assert.Equal(t, []byte("png-bytes"), content)

		assert.Equal(t, "home.jpg", r.FormValue(string(models.SlotHome)))
	}))
	defer srv.Close()

	rec := &models.PurchaseRecord{
		ID:             "17",
		ClientFullName: "Ana",
		PhotoFace:      models.PendingUpload("face.png", []byte("png-bytes")),
		PhotoHome:      models.Reference("home.jpg"),
	}

	err := newTestClient(Endpoints{}).SendRecord(context.Background(), "update", srv.URL, AssemblePayload(rec, rec.ID))
	assert.NoError(t, err)
}

func TestExtractMessage(t *testing.T) {
	assert.Equal(t, "bad row", extractMessage([]byte(`{"error":"bad row"}`)))
	assert.Equal(t, "plain text", extractMessage([]byte("  plain text \n")))
	assert.Len(t, extractMessage(make([]byte, 1000)), maxMessageLen+3)
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	msg := "a" + strings.Repeat("ç", 200)

	got := truncate(msg)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "a"+strings.Repeat("ç", 149)+"...", got)
}
