package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pulseboard/internal/normalize"
	"pulseboard/internal/repository"
)

const (
	dashboardSalesRowLimit = 500
	dashboardPostLimit     = 3
	dashboardEventLimit    = 12
	dashboardVideoDays     = 90
)

// DashboardService assembles the aggregated read model. It is a pure read
// path over the repository; nothing here mutates state.
type DashboardService struct {
	Repo     repository.Repository
	Location *time.Location
}

type DashboardPayload struct {
	GeneratedAt time.Time       `json:"generatedAt"`
	Sales       SalesSection    `json:"sales"`
	YouTube     VideoSection    `json:"youtube"`
	Telegram    TelegramSection `json:"telegram"`
	Calendar    CalendarSection `json:"calendar"`
}

type SalesSection struct {
	Rows       []SalesRowView   `json:"rows"`
	Daily      []DailySalesView `json:"daily"`
	Totals     SalesTotals      `json:"totals"`
	TrendPct   float64          `json:"trendPct"`
	TopProduct *TopProductView  `json:"topProduct"`
}

type SalesRowView struct {
	Title string  `json:"title"`
	Cost  float64 `json:"cost"`
	Count int     `json:"count"`
	Date  string  `json:"date"`
}

type DailySalesView struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
	Count  int64   `json:"count"`
}

type PeriodTotals struct {
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
}

type SalesTotals struct {
	Today PeriodTotals `json:"today"`
	Week  PeriodTotals `json:"week"`
	Month PeriodTotals `json:"month"`
}

type TopProductView struct {
	Name   string  `json:"name"`
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
}

type VideoSection struct {
	Daily  []VideoDailyView `json:"daily"`
	Totals VideoTotals      `json:"totals"`
}

type VideoDailyView struct {
	Date             string `json:"date"`
	Views            int64  `json:"views"`
	Subscribers      int64  `json:"subscribers"`
	ViewsDelta       int64  `json:"viewsDelta"`
	SubscribersDelta int64  `json:"subscribersDelta"`
}

type PeriodCounters struct {
	Today int64 `json:"today"`
	Week  int64 `json:"week"`
	Month int64 `json:"month"`
}

type VideoTotals struct {
	Views       PeriodCounters `json:"views"`
	Subscribers PeriodCounters `json:"subscribers"`
}

type TelegramSection struct {
	Posts []PostView `json:"posts"`
}

type PostView struct {
	Channel   string    `json:"channel"`
	Title     string    `json:"title"`
	Excerpt   string    `json:"excerpt"`
	Body      string    `json:"body"`
	URL       *string   `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

type CalendarSection struct {
	Events []EventView `json:"events"`
}

type EventView struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    *string    `json:"location"`
	StartAt     time.Time  `json:"startAt"`
	EndAt       *time.Time `json:"endAt"`
	URL         *string    `json:"url"`
}

func (s *DashboardService) Build(ctx context.Context) (DashboardPayload, error) {
	now := time.Now().UTC()

	sales, err := s.buildSales(ctx, now)
	if err != nil {
		return DashboardPayload{}, fmt.Errorf("sales section: %w", err)
	}
	video, err := s.buildVideo(ctx)
	if err != nil {
		return DashboardPayload{}, fmt.Errorf("youtube section: %w", err)
	}
	posts, err := s.buildPosts(ctx)
	if err != nil {
		return DashboardPayload{}, fmt.Errorf("telegram section: %w", err)
	}
	events, err := s.buildEvents(ctx, now)
	if err != nil {
		return DashboardPayload{}, fmt.Errorf("calendar section: %w", err)
	}

	return DashboardPayload{
		GeneratedAt: now,
		Sales:       sales,
		YouTube:     video,
		Telegram:    TelegramSection{Posts: posts},
		Calendar:    CalendarSection{Events: events},
	}, nil
}

// --- sales -------------------------------------------------------------------

func (s *DashboardService) buildSales(ctx context.Context, now time.Time) (SalesSection, error) {
	rows, err := s.Repo.ListRecentSalesRows(ctx, dashboardSalesRowLimit)
	if err != nil {
		return SalesSection{}, err
	}
	daily, err := s.Repo.SalesDaily(ctx)
	if err != nil {
		return SalesSection{}, err
	}
	top, err := s.Repo.TopProductSince(ctx, normalize.PastDestinationDay(now, 29, s.Location))
	if err != nil {
		return SalesSection{}, err
	}

	section := SalesSection{
		Rows:  make([]SalesRowView, 0, len(rows)),
		Daily: make([]DailySalesView, 0, len(daily)),
		Totals: SalesTotals{
			Today: sumLastSales(daily, 1),
			Week:  sumLastSales(daily, 7),
			Month: sumLastSales(daily, 30),
		},
		TrendPct: salesTrendPct(daily),
	}
	for _, row := range rows {
		section.Rows = append(section.Rows, SalesRowView{
			Title: row.ProductName,
			Cost:  row.UnitPrice.InexactFloat64(),
			Count: row.Quantity,
			Date:  row.SaleDate,
		})
	}
	for _, bucket := range daily {
		section.Daily = append(section.Daily, DailySalesView{
			Date:   bucket.Date,
			Amount: bucket.Amount.InexactFloat64(),
			Count:  bucket.Count,
		})
	}
	if top != nil {
		section.TopProduct = &TopProductView{
			Name:   top.Name,
			Count:  top.Count,
			Amount: top.Amount.InexactFloat64(),
		}
	}
	return section, nil
}

// sumLastSales totals the trailing n daily buckets. Buckets are positional,
// not calendar-based: "today" is the most recent bucket even when the data is
// stale or has day gaps.
func sumLastSales(daily []repository.SalesDailyRow, n int) PeriodTotals {
	amount := decimal.Zero
	var count int64
	for _, bucket := range tailSales(daily, n) {
		amount = amount.Add(bucket.Amount)
		count += bucket.Count
	}
	return PeriodTotals{Count: count, Amount: amount.Round(2).InexactFloat64()}
}

// salesTrendPct compares the trailing 7 buckets against the 7 before them.
// A non-positive base period yields zero rather than a blow-up.
func salesTrendPct(daily []repository.SalesDailyRow) float64 {
	current := decimal.Zero
	for _, bucket := range tailSales(daily, 7) {
		current = current.Add(bucket.Amount)
	}
	prior := decimal.Zero
	for _, bucket := range tailSales(dropTailSales(daily, 7), 7) {
		prior = prior.Add(bucket.Amount)
	}
	if prior.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	pct := current.Sub(prior).Div(prior).Mul(decimal.NewFromInt(100))
	return pct.Round(2).InexactFloat64()
}

func tailSales(daily []repository.SalesDailyRow, n int) []repository.SalesDailyRow {
	if n >= len(daily) {
		return daily
	}
	return daily[len(daily)-n:]
}

func dropTailSales(daily []repository.SalesDailyRow, n int) []repository.SalesDailyRow {
	if n >= len(daily) {
		return nil
	}
	return daily[:len(daily)-n]
}

// --- video -------------------------------------------------------------------

func (s *DashboardService) buildVideo(ctx context.Context) (VideoSection, error) {
	series, err := s.Repo.VideoDailySeries(ctx, dashboardVideoDays)
	if err != nil {
		return VideoSection{}, err
	}

	daily := videoDeltas(series)
	views := func(d VideoDailyView) int64 { return d.ViewsDelta }
	subscribers := func(d VideoDailyView) int64 { return d.SubscribersDelta }
	totals := VideoTotals{
		Views: PeriodCounters{
			Today: sumVideoTail(daily, 1, views),
			Week:  sumVideoTail(daily, 7, views),
			Month: sumVideoTail(daily, 30, views),
		},
		Subscribers: PeriodCounters{
			Today: sumVideoTail(daily, 1, subscribers),
			Week:  sumVideoTail(daily, 7, subscribers),
			Month: sumVideoTail(daily, 30, subscribers),
		},
	}
	return VideoSection{Daily: daily, Totals: totals}, nil
}

// videoDeltas turns cumulative per-day counters into growth figures. The first
// known day only has its own open-to-close movement; later days compare
// against the previous day's close. Counter resets clamp to zero.
func videoDeltas(series []repository.VideoDailyRow) []VideoDailyView {
	daily := make([]VideoDailyView, 0, len(series))
	for i, row := range series {
		view := VideoDailyView{
			Date:        row.Date,
			Views:       row.Views,
			Subscribers: row.Subscribers,
		}
		if i == 0 {
			view.ViewsDelta = clampDelta(row.Views - row.ViewsOpen)
			view.SubscribersDelta = clampDelta(row.Subscribers - row.SubscribersOpen)
		} else {
			view.ViewsDelta = clampDelta(row.Views - series[i-1].Views)
			view.SubscribersDelta = clampDelta(row.Subscribers - series[i-1].Subscribers)
		}
		daily = append(daily, view)
	}
	return daily
}

func clampDelta(delta int64) int64 {
	if delta < 0 {
		return 0
	}
	return delta
}

// sumVideoTail sums a delta over the trailing n series entries, positional
// like the sales buckets.
func sumVideoTail(daily []VideoDailyView, n int, pick func(VideoDailyView) int64) int64 {
	start := len(daily) - n
	if start < 0 {
		start = 0
	}
	var total int64
	for _, day := range daily[start:] {
		total += pick(day)
	}
	return total
}

// --- posts and events ---------------------------------------------------------

func (s *DashboardService) buildPosts(ctx context.Context) ([]PostView, error) {
	posts, err := s.Repo.ListLatestMessagePosts(ctx, dashboardPostLimit)
	if err != nil {
		return nil, err
	}
	views := make([]PostView, 0, len(posts))
	for _, post := range posts {
		views = append(views, PostView{
			Channel:   post.ChannelTitle,
			Title:     post.Title,
			Excerpt:   post.Excerpt,
			Body:      post.Body,
			URL:       post.Permalink,
			CreatedAt: post.PostedAt,
		})
	}
	return views, nil
}

func (s *DashboardService) buildEvents(ctx context.Context, now time.Time) ([]EventView, error) {
	events, err := s.Repo.ListUpcomingEvents(ctx, now, dashboardEventLimit)
	if err != nil {
		return nil, err
	}
	views := make([]EventView, 0, len(events))
	for _, event := range events {
		views = append(views, EventView{
			Title:       event.Title,
			Description: event.Description,
			Location:    event.Location,
			StartAt:     event.StartsAt,
			EndAt:       event.EndsAt,
			URL:         event.Link,
		})
	}
	return views, nil
}
