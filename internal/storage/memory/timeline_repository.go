package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// TimelineRepository хранит историю заказов в памяти.
// Порядок как в postgres: по времени события, при равенстве по порядку добавления.
type TimelineRepository struct {
	mu      sync.RWMutex
	byOrder map[string][]domain.TimelineEvent
	now     func() time.Time
}

// NewTimelineRepository создаёт пустую историю.
func NewTimelineRepository() *TimelineRepository {
	return &TimelineRepository{
		byOrder: make(map[string][]domain.TimelineEvent),
		now:     time.Now,
	}
}

// Append вставляет событие на его место в хронологии заказа.
func (r *TimelineRepository) Append(event domain.TimelineEvent) error {
	if strings.TrimSpace(event.OrderID) == "" {
		return domain.ErrOrderIDRequired
	}
	if event.Occurred.IsZero() {
		event.Occurred = r.now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	events := r.byOrder[event.OrderID]
	at := sort.Search(len(events), func(i int) bool {
		return events[i].Occurred.After(event.Occurred)
	})
	events = append(events, domain.TimelineEvent{})
	copy(events[at+1:], events[at:])
	events[at] = event
	r.byOrder[event.OrderID] = events
	return nil
}

// List возвращает копию истории заказа.
func (r *TimelineRepository) List(orderID string) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]domain.TimelineEvent{}, r.byOrder[orderID]...), nil
}

var _ domain.TimelineRepository = (*TimelineRepository)(nil)
