package services

import (
	"encoding/json"
	"mime"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/identity"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/webhook"
)

// fakeStore is an in-process stand-in for the spreadsheet webhooks.
// Rows are kept as raw JSON objects the way the sheet returns them.
type fakeStore struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	rows     []map[string]interface{}
	users    []map[string]interface{}
	calls    map[string]int
	forms    []map[string]string // text parts of each multipart submission
	files    []map[string]string // part name -> filename
	statuses []map[string]string
	deleted  []string
	fail     map[string]int // path -> status code to answer with
	echo     bool           // append created rows to the sheet
}

func newFakeStore(t *testing.T) *fakeStore {
	t.Helper()
	f := &fakeStore{
		t:     t,
		calls: make(map[string]int),
		fail:  make(map[string]int),
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeStore) endpoints() webhook.Endpoints {
	return webhook.Endpoints{
		RecordsFetch:   f.srv.URL + "/records",
		RecordCreate:   f.srv.URL + "/create",
		RecordUpdate:   f.srv.URL + "/update",
		RecordDelete:   f.srv.URL + "/delete",
		ClientStatus:   f.srv.URL + "/status",
		UsersFetch:     f.srv.URL + "/users",
		ReportWorkflow: f.srv.URL + "/report",
	}
}

func (f *fakeStore) client() *webhook.Client {
	return webhook.NewClient(f.endpoints(), 5*time.Second)
}

func (f *fakeStore) clientWith(mutate func(*webhook.Endpoints)) *webhook.Client {
	e := f.endpoints()
	mutate(&e)
	return webhook.NewClient(e, 5*time.Second)
}

func (f *fakeStore) addRow(row map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, row)
}

func (f *fakeStore) setUsers(users ...map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = users
}

func (f *fakeStore) echoCreates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.echo = true
}

func (f *fakeStore) failWith(path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[path] = status
}

func (f *fakeStore) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeStore) statusCalls() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.statuses...)
}

func (f *fakeStore) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func (f *fakeStore) lastForm() (map[string]string, map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.forms) == 0 {
		return nil, nil
	}
	return f.forms[len(f.forms)-1], f.files[len(f.files)-1]
}

func (f *fakeStore) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[r.URL.Path]++
	if status, ok := f.fail[r.URL.Path]; ok {
		w.WriteHeader(status)
		w.Write([]byte(`{"message":"sheet unavailable"}`))
		return
	}

	switch r.URL.Path {
	case "/records":
		json.NewEncoder(w).Encode(f.rows)
	case "/users":
		json.NewEncoder(w).Encode(map[string]interface{}{"data": f.users})
	case "/create", "/update":
		form, files := f.readMultipart(r)
		f.forms = append(f.forms, form)
		f.files = append(f.files, files)
		if f.echo && r.URL.Path == "/create" {
			row := make(map[string]interface{}, len(form))
			for k, v := range form {
				row[k] = v
			}
			row["id"] = strconv.Itoa(100 + len(f.rows))
			f.rows = append(f.rows, row)
		}
		w.Write([]byte(`{"ok":true}`))
	case "/status":
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.statuses = append(f.statuses, body)
		for _, row := range f.rows {
			if cpf, _ := row["clientCpf"].(string); identity.Normalize(cpf) == body["cpf"] {
				row["clientStatus"] = body["status"]
			}
		}
		w.Write([]byte(`{"ok":true}`))
	case "/delete":
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.deleted = append(f.deleted, body["id"])
		w.Write([]byte(`{"ok":true}`))
	case "/report":
		w.Write([]byte(`{"ok":true}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeStore) readMultipart(r *http.Request) (map[string]string, map[string]string) {
	form := make(map[string]string)
	files := make(map[string]string)

	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		f.t.Errorf("submission is not multipart: %v", err)
		return form, files
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		f.t.Errorf("failed to parse multipart body (boundary %q): %v", params["boundary"], err)
		return form, files
	}
	for key, values := range r.MultipartForm.Value {
		form[key] = values[0]
	}
	for key, headers := range r.MultipartForm.File {
		files[key] = headers[0].Filename
	}
	return form, files
}
