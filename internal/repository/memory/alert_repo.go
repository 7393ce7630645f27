package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/pawprint-grooming/service-booking/internal/domain"
	"github.com/pawprint-grooming/service-booking/internal/domain/alert"
)

// AlertRepository is a map-backed alert.Repository.
type AlertRepository struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*alert.Alert
}

func NewAlertRepository() *AlertRepository {
	return &AlertRepository{byID: make(map[uuid.UUID]*alert.Alert)}
}

func (r *AlertRepository) Save(ctx context.Context, a *alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[a.ID()] = cloneAlert(a)
	return nil
}

func (r *AlertRepository) FindByID(ctx context.Context, id uuid.UUID) (*alert.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, domain.NewNotFoundError("Alert", id.String())
	}
	return cloneAlert(a), nil
}

func (r *AlertRepository) List(ctx context.Context, unacknowledgedOnly bool, page, limit int) ([]*alert.Alert, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*alert.Alert, 0, len(r.byID))
	for _, a := range r.byID {
		if unacknowledgedOnly && a.IsAcknowledged() {
			continue
		}
		all = append(all, cloneAlert(a))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt().After(all[j].CreatedAt()) })
	return paginate(all, page, limit), int64(len(all)), nil
}

func (r *AlertRepository) Update(ctx context.Context, a *alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[a.ID()]; !ok {
		return domain.NewNotFoundError("Alert", a.ID().String())
	}
	r.byID[a.ID()] = cloneAlert(a)
	return nil
}
