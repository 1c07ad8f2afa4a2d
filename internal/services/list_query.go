package services

import (
	"sort"
	"strings"

	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/identity"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/merge"
	"github.com/Emi-Dz/formulario-clientes-parcelas/internal/models"
)

// Sort keys
const (
	SortByName         = "name"
	SortByCPF          = "cpf"
	SortByPurchaseDate = "purchaseDate"
	SortByStatus       = "status"
)

const DefaultPageSize = 20

// ListQuery selects a page of records
type ListQuery struct {
	Search   string `form:"search"`
	SortBy   string `form:"sort" binding:"omitempty,oneof=name cpf purchaseDate status"`
	Desc     bool   `form:"desc"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// Page is one slice of a filtered, sorted record list
type Page struct {
	Items      []models.PurchaseRecord `json:"items"`
	Total      int                     `json:"total"`
	Page       int                     `json:"page"`
	PageSize   int                     `json:"pageSize"`
	TotalPages int                     `json:"totalPages"`
}

// Filter keeps records whose normalized CPF contains the normalized search.
// A search without digits keeps everything.
func Filter(records []models.PurchaseRecord, search string) []models.PurchaseRecord {
	needle := identity.Normalize(search)
	out := make([]models.PurchaseRecord, 0, len(records))
	for _, rec := range records {
		if needle == "" || strings.Contains(identity.Normalize(rec.ClientCPF), needle) {
			out = append(out, rec)
		}
	}
	return out
}

// Sort orders records by key; equal keys keep their original order.
func Sort(records []models.PurchaseRecord, key string, desc bool) []models.PurchaseRecord {
	out := make([]models.PurchaseRecord, len(records))
	copy(out, records)
	if key == "" {
		return out
	}

	compare := func(a, b *models.PurchaseRecord) int {
		switch key {
		case SortByName:
			return strings.Compare(strings.ToLower(a.ClientFullName), strings.ToLower(b.ClientFullName))
		case SortByCPF:
			return strings.Compare(identity.Normalize(a.ClientCPF), identity.Normalize(b.ClientCPF))
		case SortByPurchaseDate:
			return merge.ParseDate(a.PurchaseDate).Compare(merge.ParseDate(b.PurchaseDate))
		case SortByStatus:
			return strings.Compare(string(a.ClientStatus), string(b.ClientStatus))
		}
		return 0
	}

	sort.SliceStable(out, func(i, j int) bool {
		c := compare(&out[i], &out[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

// Paginate slices records into page (1-based) of pageSize items
func Paginate(records []models.PurchaseRecord, page, pageSize int) Page {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}

	total := len(records)
	totalPages := (total + pageSize - 1) / pageSize
	start := total
	if page <= totalPages {
		start = (page - 1) * pageSize
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	items := make([]models.PurchaseRecord, end-start)
	copy(items, records[start:end])

	return Page{Items: items, Total: total, Page: page, PageSize: pageSize, TotalPages: totalPages}
}

// Query filters, sorts and paginates without touching the input slice
func Query(records []models.PurchaseRecord, q ListQuery) Page {
	return Paginate(Sort(Filter(records, q.Search), q.SortBy, q.Desc), q.Page, q.PageSize)
}
