// Package dashboard считает сводку по заказам для панели администратора.
package dashboard

import (
	"sort"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// TopLocations: сколько пин-кодов показывается в сводке.
const TopLocations = 5

// UnknownPincode обозначает заказы без адреса.
const UnknownPincode = "Unknown"

// StatusCount: число заказов в статусе.
type StatusCount struct {
	Status domain.OrderStatus `json:"status"`
	Orders int                `json:"orders"`
}

// DayStats: заказы и выручка за день.
type DayStats struct {
	Date    string `json:"date"`
	Orders  int    `json:"orders"`
	Revenue int64  `json:"revenue"`
}

// LocationStats: число заказов по пин-коду.
type LocationStats struct {
	Pincode string `json:"pincode"`
	Orders  int    `json:"orders"`
}

// Summary: сводка для панели администратора.
type Summary struct {
	TotalOrders  int             `json:"totalOrders"`
	TotalRevenue int64           `json:"totalRevenue"`
	ByStatus     []StatusCount   `json:"byStatus"`
	ByDay        []DayStats      `json:"byDay"`
	TopPincodes  []LocationStats `json:"topPincodes"`
}

// Summarize строит сводку. Дни группируются по календарной дате в loc.
func Summarize(orders []domain.Order, loc *time.Location) Summary {
	if loc == nil {
		loc = time.UTC
	}
	out := Summary{
		TotalOrders: len(orders),
		ByStatus:    []StatusCount{},
		ByDay:       []DayStats{},
		TopPincodes: []LocationStats{},
	}

	statusIdx := map[domain.OrderStatus]int{}
	dayIdx := map[string]int{}
	pinIdx := map[string]int{}

	for _, o := range orders {
		out.TotalRevenue += o.Pricing.Total

		status := o.Status
		if status == "" {
			status = domain.OrderStatusPlaced
		}
		if i, ok := statusIdx[status]; ok {
			out.ByStatus[i].Orders++
		} else {
			statusIdx[status] = len(out.ByStatus)
			out.ByStatus = append(out.ByStatus, StatusCount{Status: status, Orders: 1})
		}

		day := o.CreatedAt.In(loc).Format(time.DateOnly)
		if i, ok := dayIdx[day]; ok {
			out.ByDay[i].Orders++
			out.ByDay[i].Revenue += o.Pricing.Total
		} else {
			dayIdx[day] = len(out.ByDay)
			out.ByDay = append(out.ByDay, DayStats{Date: day, Orders: 1, Revenue: o.Pricing.Total})
		}

		pin := UnknownPincode
		if o.AddressSnapshot != nil && o.AddressSnapshot.Pincode != "" {
			pin = o.AddressSnapshot.Pincode
		}
		if i, ok := pinIdx[pin]; ok {
			out.TopPincodes[i].Orders++
		} else {
			pinIdx[pin] = len(out.TopPincodes)
			out.TopPincodes = append(out.TopPincodes, LocationStats{Pincode: pin, Orders: 1})
		}
	}

	sort.Slice(out.ByDay, func(i, j int) bool { return out.ByDay[i].Date < out.ByDay[j].Date })
	sort.SliceStable(out.TopPincodes, func(i, j int) bool {
		return out.TopPincodes[i].Orders > out.TopPincodes[j].Orders
	})
	if len(out.TopPincodes) > TopLocations {
		out.TopPincodes = out.TopPincodes[:TopLocations]
	}
	return out
}
