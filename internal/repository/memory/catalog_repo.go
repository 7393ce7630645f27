package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pawprint-grooming/service-booking/internal/domain"
	"github.com/pawprint-grooming/service-booking/internal/domain/catalog"
)

// CatalogRepository is a map-backed catalog.Repository.
type CatalogRepository struct {
	mu     sync.RWMutex
	byCode map[string]*catalog.Service
}

// NewCatalogRepository creates a catalog holding the given services.
func NewCatalogRepository(seed ...*catalog.Service) *CatalogRepository {
	r := &CatalogRepository{byCode: make(map[string]*catalog.Service)}
	for _, s := range seed {
		r.byCode[s.Code()] = cloneService(s)
	}
	return r
}

func (r *CatalogRepository) FindByCode(ctx context.Context, code string) (*catalog.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byCode[code]
	if !ok {
		return nil, domain.NewNotFoundError("Service", code)
	}
	return cloneService(s), nil
}

func (r *CatalogRepository) FindByCodes(ctx context.Context, codes []string) (map[string]*catalog.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*catalog.Service, len(codes))
	for _, code := range codes {
		if s, ok := r.byCode[code]; ok {
			out[code] = cloneService(s)
		}
	}
	return out, nil
}

func (r *CatalogRepository) List(ctx context.Context, includeRetired bool) ([]*catalog.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*catalog.Service, 0, len(r.byCode))
	for _, s := range r.byCode {
		if s.IsActive() || includeRetired {
			out = append(out, cloneService(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category() != out[j].Category() {
			return out[i].Category() < out[j].Category()
		}
		return out[i].Name() < out[j].Name()
	})
	return out, nil
}

func (r *CatalogRepository) Upsert(ctx context.Context, s *catalog.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byCode[s.Code()] = cloneService(s)
	return nil
}
