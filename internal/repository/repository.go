// Package repository keeps the last known set of purchase records in memory.
package repository

import (
	"sync"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/identity"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
)

// ChangeListener is notified after the record set changed
type ChangeListener func(records []models.PurchaseRecord)

// Repository is the process-lifetime cache of purchase records.
// Records are kept in arrival order and addressed by id.
type Repository struct {
	mu      sync.RWMutex
	records []models.PurchaseRecord
	byID    map[string]int

	listenerMu sync.Mutex
	listeners  map[int]ChangeListener
	nextID     int
}

func New() *Repository {
	return &Repository{
		byID:      make(map[string]int),
		listeners: make(map[int]ChangeListener),
	}
}

// ReplaceAll swaps the whole record set
func (r *Repository) ReplaceAll(records []models.PurchaseRecord) {
	next := make([]models.PurchaseRecord, len(records))
	copy(next, records)
	index := make(map[string]int, len(next))
	for i, rec := range next {
		if rec.ID != "" {
			index[rec.ID] = i
		}
	}

	r.mu.Lock()
	r.records = next
	r.byID = index
	r.mu.Unlock()

	r.notify()
}

// Get returns the record with the given id
func (r *Repository) Get(id string) (models.PurchaseRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byID[id]
	if !ok {
		return models.PurchaseRecord{}, false
	}
	return r.records[i], true
}

// FindByIdentity returns every record whose CPF normalizes to key.
// An empty key matches nothing.
func (r *Repository) FindByIdentity(key string) []models.PurchaseRecord {
	if key == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.PurchaseRecord
	for _, rec := range r.records {
		if identity.Normalize(rec.ClientCPF) == key {
			out = append(out, rec)
		}
	}
	return out
}

// All returns a copy of every record in arrival order
func (r *Repository) All() []models.PurchaseRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.PurchaseRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of cached records
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Put inserts rec or replaces the record with the same id. Used to patch the
// cache after a submission until the next fetch replaces it.
func (r *Repository) Put(rec models.PurchaseRecord) {
	if rec.ID == "" {
		return
	}

	r.mu.Lock()
	next := make([]models.PurchaseRecord, len(r.records), len(r.records)+1)
	copy(next, r.records)
	if i, ok := r.byID[rec.ID]; ok {
		next[i] = rec
	} else {
		next = append(next, rec)
		r.byID[rec.ID] = len(next) - 1
	}
	r.records = next
	r.mu.Unlock()

	r.notify()
}

// Remove drops exactly one record. Used to patch the cache after a delete.
func (r *Repository) Remove(id string) bool {
	r.mu.Lock()
	i, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	next := make([]models.PurchaseRecord, 0, len(r.records)-1)
	next = append(next, r.records[:i]...)
	next = append(next, r.records[i+1:]...)
	r.records = next
	r.byID = make(map[string]int, len(next))
	for j, rec := range next {
		if rec.ID != "" {
			r.byID[rec.ID] = j
		}
	}
	r.mu.Unlock()

	r.notify()
	return true
}

// SetStatusForIdentity writes status on every record of the identity and
// returns how many records changed. Records of other identities are untouched.
func (r *Repository) SetStatusForIdentity(key string, status models.ClientStatus) int {
	if key == "" {
		return 0
	}

	r.mu.Lock()
	next := make([]models.PurchaseRecord, len(r.records))
	copy(next, r.records)
	changed := 0
	for i := range next {
		if identity.Normalize(next[i].ClientCPF) == key {
			next[i].ClientStatus = status
			changed++
		}
	}
	r.records = next
	r.mu.Unlock()

	if changed > 0 {
		r.notify()
	}
	return changed
}

// Subscribe registers fn for "records changed" notifications and returns
// a function that removes it.
func (r *Repository) Subscribe(fn ChangeListener) func() {
	r.listenerMu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.listenerMu.Unlock()

	return func() {
		r.listenerMu.Lock()
		delete(r.listeners, id)
		r.listenerMu.Unlock()
	}
}

func (r *Repository) notify() {
	r.listenerMu.Lock()
	fns := make([]ChangeListener, 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.listenerMu.Unlock()

	if len(fns) == 0 {
		return
	}
	snapshot := r.All()
	for _, fn := range fns {
		fn(snapshot)
	}
}
