package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func TestTimelineRepository_ListIsChronological(t *testing.T) {
	repo := memory.NewTimelineRepository()
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	events := []domain.TimelineEvent{
		{OrderID: "ORD-1", Type: domain.TimelineStatusChanged, From: domain.OrderStatusPlaced, To: domain.OrderStatusPacked, Occurred: base.Add(time.Hour)},
		{OrderID: "ORD-1", Type: domain.TimelineOrderPlaced, To: domain.OrderStatusPlaced, Occurred: base},
		{OrderID: "ORD-2", Type: domain.TimelineOrderPlaced, To: domain.OrderStatusPlaced, Occurred: base},
	}
	for _, e := range events {
		if err := repo.Append(e); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	list, err := repo.List("ORD-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 events, got %d", len(list))
	}
	if list[0].Type != domain.TimelineOrderPlaced || list[1].To != domain.OrderStatusPacked {
		t.Fatalf("unexpected order of events: %+v", list)
	}

	empty, err := repo.List("missing")
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %v, %v", empty, err)
	}
}

func TestTimelineRepository_EqualTimesKeepAppendOrder(t *testing.T) {
	repo := memory.NewTimelineRepository()
	at := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	for _, to := range []domain.OrderStatus{domain.OrderStatusPacked, domain.OrderStatusOutForDelivery, domain.OrderStatusDelivered} {
		if err := repo.Append(domain.TimelineEvent{OrderID: "ORD-1", Type: domain.TimelineStatusChanged, To: to, Occurred: at}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	// более раннее событие встаёт в начало
	if err := repo.Append(domain.TimelineEvent{OrderID: "ORD-1", Type: domain.TimelineOrderPlaced, To: domain.OrderStatusPlaced, Occurred: at.Add(-time.Minute)}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	list, _ := repo.List("ORD-1")
	want := []domain.OrderStatus{domain.OrderStatusPlaced, domain.OrderStatusPacked, domain.OrderStatusOutForDelivery, domain.OrderStatusDelivered}
	if len(list) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(list))
	}
	for i, status := range want {
		if list[i].To != status {
			t.Fatalf("event %d: expected %s, got %s", i, status, list[i].To)
		}
	}
}

func TestTimelineRepository_AppendValidatesAndStamps(t *testing.T) {
	repo := memory.NewTimelineRepository()

	if err := repo.Append(domain.TimelineEvent{Type: domain.TimelineOrderPlaced}); !errors.Is(err, domain.ErrOrderIDRequired) {
		t.Fatalf("expected ErrOrderIDRequired, got %v", err)
	}

	before := time.Now().UTC()
	if err := repo.Append(domain.TimelineEvent{OrderID: "ORD-1", Type: domain.TimelineOrderPlaced}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	list, _ := repo.List("ORD-1")
	if len(list) != 1 || list[0].Occurred.Before(before) {
		t.Fatalf("missing time must be stamped on append: %+v", list)
	}

	// List отдаёт копию
	list[0].Reason = "edited"
	again, _ := repo.List("ORD-1")
	if again[0].Reason != "" {
		t.Fatal("list must not expose stored events")
	}
}
