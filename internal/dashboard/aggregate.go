// Package dashboard combines the backend's summary reports with the live
// floor state into the manager dashboard.
package dashboard

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/pos-gateway/internal/apiclient"
	"github.com/iliyamo/pos-gateway/internal/format"
	"github.com/iliyamo/pos-gateway/internal/model"
)

// NoTablesMessage replaces the occupancy figure when no tables exist.
const NoTablesMessage = "No tables configured"

// Occupancy levels.
const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

// Upstream is the part of the REST client the aggregator needs.
type Upstream interface {
	DashboardSummary(ctx context.Context) (model.DashboardSummary, error)
	SalesSummary(ctx context.Context) (model.SalesSummary, error)
	ListOrders(ctx context.Context, f apiclient.OrderFilter) ([]model.Order, error)
}

// FloorState supplies live table counts.
type FloorState interface {
	Occupancy() (total, occupied int)
}

// SessionCounter supplies the number of running shifts.
type SessionCounter interface {
	Active() int
}

type OccupancyCard struct {
	Percentage float64 `json:"percentage"`
	Occupied   int     `json:"occupied"`
	Total      int     `json:"total"`
	Level      string  `json:"level"`
	Message    string  `json:"message,omitempty"`
}

type SalesCard struct {
	Total         float64 `json:"total"`
	Paid          float64 `json:"paid"`
	Credit        float64 `json:"credit"`
	Discount      float64 `json:"discount"`
	PaidPercent   int     `json:"paid_percent"`
	CreditPercent int     `json:"credit_percent"`
	TotalDisplay  string  `json:"total_display"`
}

type OrderMix struct {
	Total           int     `json:"total"`
	DineIn          int     `json:"dine_in"`
	Takeaway        int     `json:"takeaway"`
	Delivery        int     `json:"delivery"`
	DineInPercent   float64 `json:"dine_in_percent"`
	TakeawayPercent float64 `json:"takeaway_percent"`
	DeliveryPercent float64 `json:"delivery_percent"`
}

type RankedItem struct {
	Rank     int     `json:"rank"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
	Share    int     `json:"share"`
}

type AreaShare struct {
	Area   string  `json:"area"`
	Amount float64 `json:"amount"`
	Share  int     `json:"share"`
}

type Outstanding struct {
	Amount  float64         `json:"amount"`
	Display string          `json:"display"`
	Items   []model.TopItem `json:"items"`
}

type PeakSeries struct {
	Orders    []int     `json:"orders"`
	Sales     []float64 `json:"sales"`
	PeakIndex int       `json:"peak_index"`
}

// Dashboard is the display model.  Failed lists the reports that could not
// be fetched; their cards carry zero values.
type Dashboard struct {
	Occupancy      OccupancyCard       `json:"occupancy"`
	Sales          SalesCard           `json:"sales"`
	Orders         OrderMix            `json:"orders"`
	Outstanding    Outstanding         `json:"outstanding"`
	TopSelling     []RankedItem        `json:"top_selling"`
	SalesByArea    []AreaShare         `json:"sales_by_area"`
	AreaTotal      float64             `json:"area_total"`
	Peak           PeakSeries          `json:"peak"`
	SalesSummary   *model.SalesSummary `json:"sales_summary,omitempty"`
	ActiveSessions int                 `json:"active_sessions"`
	Period         string              `json:"period"`
	Failed         []string            `json:"failed,omitempty"`
	GeneratedAt    time.Time           `json:"generated_at"`
}

type Aggregator struct {
	api      Upstream
	floor    FloorState
	sessions SessionCounter
	glyph    string
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewAggregator(api Upstream, floor FloorState, sessions SessionCounter, glyph string, log logrus.FieldLogger) *Aggregator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Aggregator{
		api:      api,
		floor:    floor,
		sessions: sessions,
		glyph:    glyph,
		log:      log.WithField("component", "dashboard"),
		now:      time.Now,
	}
}

// Build fetches both summaries concurrently.  Either may fail without
// failing the dashboard.
func (a *Aggregator) Build(ctx context.Context) Dashboard {
	var (
		g       errgroup.Group
		mu      sync.Mutex
		failed  []string
		summary *model.DashboardSummary
		sales   *model.SalesSummary
	)
	fail := func(name string, err error) {
		a.log.WithError(err).WithField("report", name).Warn("dashboard report unavailable")
		mu.Lock()
		failed = append(failed, name)
		mu.Unlock()
	}
	g.Go(func() error {
		s, err := a.api.DashboardSummary(ctx)
		if err != nil {
			fail("dashboard_summary", err)
			return nil
		}
		summary = &s
		return nil
	})
	g.Go(func() error {
		s, err := a.api.SalesSummary(ctx)
		if err != nil {
			fail("sales_summary", err)
			return nil
		}
		sales = &s
		return nil
	})
	_ = g.Wait()
	sort.Strings(failed)

	var s model.DashboardSummary
	if summary != nil {
		s = *summary
	}
	total, occupied := s.TotalTables, s.OccupiedTables
	if a.floor != nil {
		if t, o := a.floor.Occupancy(); t > 0 {
			total, occupied = t, o
		}
	}
	d := Dashboard{
		Occupancy:    OccupancyFor(total, occupied),
		Sales:        a.salesCard(s),
		Orders:       orderMix(s),
		Outstanding:  Outstanding{Amount: s.OutstandingRevenue, Display: format.Money(a.glyph, s.OutstandingRevenue), Items: nonNil(s.TopOutstandingItems)},
		TopSelling:   RankTopSelling(s.TopSellingItems),
		Peak:         PeakFor(s.PeakTimeData, s.HourlySales),
		SalesSummary: sales,
		Period:       s.Period,
		Failed:       failed,
		GeneratedAt:  a.now(),
	}
	d.SalesByArea, d.AreaTotal = AreaShares(s.SalesByArea)
	if d.Period == "" {
		d.Period = "Last 24 Hours"
	}
	if a.sessions != nil {
		d.ActiveSessions = a.sessions.Active()
	}
	return d
}

// OccupancyFor computes the occupancy card.  The percentage is clamped to
// [0,100] and is 0 with an explanatory message when there are no tables.
func OccupancyFor(total, occupied int) OccupancyCard {
	c := OccupancyCard{Total: total, Occupied: occupied}
	if total <= 0 {
		c.Total = 0
		c.Level = LevelLow
		c.Message = NoTablesMessage
		return c
	}
	pct := math.Round(float64(occupied)/float64(total)*1000) / 10
	c.Percentage = math.Min(100, math.Max(0, pct))
	c.Level = Level(c.Percentage)
	return c
}

// Level classifies an occupancy percentage.
func Level(pct float64) string {
	switch {
	case pct < 50:
		return LevelLow
	case pct < 80:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// Percent is round(part/total·100), 0 when total is not positive.
func Percent(part, total float64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(part/total*100 + 0.5))
}

func (a *Aggregator) salesCard(s model.DashboardSummary) SalesCard {
	return SalesCard{
		Total:         s.Sales24h,
		Paid:          s.PaidSales,
		Credit:        s.CreditSales,
		Discount:      s.Discount,
		PaidPercent:   Percent(s.PaidSales, s.Sales24h),
		CreditPercent: Percent(s.CreditSales, s.Sales24h),
		TotalDisplay:  format.Money(a.glyph, s.Sales24h),
	}
}

func orderMix(s model.DashboardSummary) OrderMix {
	m := OrderMix{
		Total:    s.Orders24h,
		DineIn:   s.DineInCount,
		Takeaway: s.TakeawayCount,
		Delivery: s.DeliveryCount,
	}
	if m.Total > 0 {
		share := func(n int) float64 { return math.Round(float64(n)/float64(m.Total)*1000) / 10 }
		m.DineInPercent = share(m.DineIn)
		m.TakeawayPercent = share(m.Takeaway)
		m.DeliveryPercent = share(m.Delivery)
	}
	return m
}

// RankTopSelling orders items by revenue, highest first, with each item's
// share of the listed revenue.
func RankTopSelling(items []model.TopItem) []RankedItem {
	sorted := append([]model.TopItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Revenue > sorted[j].Revenue })
	var total float64
	for _, it := range sorted {
		total += it.Revenue
	}
	out := make([]RankedItem, 0, len(sorted))
	for i, it := range sorted {
		out = append(out, RankedItem{
			Rank:     i + 1,
			Name:     it.Name,
			Quantity: it.Quantity,
			Revenue:  it.Revenue,
			Share:    Percent(it.Revenue, total),
		})
	}
	return out
}

// AreaShares attaches each floor's share of total floor sales.
func AreaShares(areas []model.AreaSales) ([]AreaShare, float64) {
	var total float64
	for _, a := range areas {
		total += a.Amount
	}
	out := make([]AreaShare, 0, len(areas))
	for _, a := range areas {
		out = append(out, AreaShare{Area: a.Area, Amount: a.Amount, Share: Percent(a.Amount, total)})
	}
	return out, total
}

// PeakFor normalises both hourly series to 24 buckets (oldest hour first)
// and finds the busiest bucket.  PeakIndex is -1 when every bucket is 0.
func PeakFor(orders []int, sales []float64) PeakSeries {
	p := PeakSeries{Orders: make([]int, 24), Sales: make([]float64, 24), PeakIndex: -1}
	copy(p.Orders, orders)
	copy(p.Sales, sales)
	best := 0
	for i, n := range p.Orders {
		if n > best {
			best = n
			p.PeakIndex = i
		}
	}
	return p
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
