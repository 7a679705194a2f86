package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"tradedash/internal/amqp"
	"tradedash/internal/cache"
	"tradedash/internal/core"
	"tradedash/internal/dataset"
	applog "tradedash/internal/log"
	"tradedash/internal/source"
)

var (
	// ErrNotLoaded is returned before the first successful reload.
	ErrNotLoaded = errors.New("dataset not loaded")
	// ErrEmptyDataset is returned when a source yields no rows.
	ErrEmptyDataset = errors.New("dataset is empty")
	// ErrNoYears is returned when no row carries a usable date.
	ErrNoYears = errors.New("dataset has no dated rows")
)

// Publisher announces reloads to other instances.
type Publisher interface {
	PublishDatasetReloaded(ctx context.Context, msg *amqp.DatasetReloadedMessage) error
}

type DashboardOptions struct {
	SampleSize          int
	SampleSeed          uint64
	DefaultCountryCount int
	DefaultTheme        string
	CacheSize           int
	CacheTTL            time.Duration
	InstanceID          string
}

// SelectionRequest is the raw filter input of a dashboard request.
// Year 0 selects the latest year. CountriesSet distinguishes an absent
// country filter (use defaults) from an explicitly empty one (all countries).
type SelectionRequest struct {
	Year         int
	Countries    []string
	CountriesSet bool
	Theme        string
}

// Stats describes the active dataset.
type Stats struct {
	Loaded     bool      `json:"loaded"`
	Source     string    `json:"source"`
	Rows       int       `json:"rows"`
	SourceRows int       `json:"source_rows"`
	Years      []int     `json:"years"`
	Countries  int       `json:"countries"`
	Generation uint64    `json:"generation"`
	LoadedAt   time.Time `json:"loaded_at"`
}

// Options lists what the front end may select.
type Options struct {
	Years            []int    `json:"years"`
	Countries        []string `json:"countries"`
	Themes           []string `json:"themes"`
	DefaultYear      int      `json:"default_year"`
	DefaultCountries []string `json:"default_countries"`
	DefaultTheme     string   `json:"default_theme"`
}

type snapshot struct {
	records    []core.Transaction
	years      []int
	countries  []string
	source     string
	sourceRows int
	generation uint64
	loadedAt   time.Time
}

// DashboardService serves dashboard views over an in-memory dataset that
// can be swapped atomically by Reload.
type DashboardService struct {
	source    source.TransactionSource
	publisher Publisher
	opts      DashboardOptions
	views     *cache.LRUCache[core.DashboardView]

	current    atomic.Pointer[snapshot]
	reloadMu   sync.Mutex
	generation uint64
}

// NewDashboardService wires a source and an optional publisher.
// The dataset is empty until Reload succeeds.
func NewDashboardService(src source.TransactionSource, publisher Publisher, opts DashboardOptions) *DashboardService {
	if opts.DefaultTheme == "" {
		opts.DefaultTheme = core.DefaultTheme
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	return &DashboardService{
		source:    src,
		publisher: publisher,
		opts:      opts,
		views:     cache.NewLRUCache[core.DashboardView](opts.CacheSize, opts.CacheTTL),
	}
}

// ViewCache exposes the view cache for periodic expiry sweeps.
func (s *DashboardService) ViewCache() cache.Cleaner {
	return s.views
}

// Reload loads the dataset from the source and swaps it in. On failure the
// previous dataset stays active.
func (s *DashboardService) Reload(ctx context.Context) (Stats, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	records, err := s.source.Load(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("load %s: %w", s.source.Name(), err)
	}
	if len(records) == 0 {
		return Stats{}, fmt.Errorf("load %s: %w", s.source.Name(), ErrEmptyDataset)
	}

	sampled := dataset.Sample(records, s.opts.SampleSize, s.opts.SampleSeed)

	s.generation++
	snap := &snapshot{
		records:    sampled,
		years:      dataset.YearsAvailable(sampled),
		countries:  dataset.Countries(sampled),
		source:     s.source.Name(),
		sourceRows: len(records),
		generation: s.generation,
		loadedAt:   time.Now(),
	}
	s.current.Store(snap)
	purged := s.views.Purge()

	slog.InfoContext(ctx, "Dataset reloaded",
		applog.FieldComponent, applog.ComponentDataset,
		applog.FieldSource, snap.source,
		applog.FieldRows, len(snap.records),
		"source_rows", snap.sourceRows,
		"years", snap.years,
		"purged_views", purged,
		"duration_ms", time.Since(start).Milliseconds())

	return snap.stats(), nil
}

// ReloadAndNotify reloads and then announces the new dataset. A publish
// failure is logged and does not fail the reload.
func (s *DashboardService) ReloadAndNotify(ctx context.Context) (Stats, error) {
	stats, err := s.Reload(ctx)
	if err != nil {
		return stats, err
	}
	if s.publisher == nil {
		return stats, nil
	}

	msg := amqp.NewDatasetReloadedMessage(s.opts.InstanceID, stats.Source, stats.Rows, stats.Years)
	if err := s.publisher.PublishDatasetReloaded(ctx, msg); err != nil {
		slog.WarnContext(ctx, "Failed to announce dataset reload",
			applog.FieldComponent, applog.ComponentDataset,
			applog.FieldError, err)
	}
	return stats, nil
}

// InstanceID identifies this service in reload announcements.
func (s *DashboardService) InstanceID() string {
	return s.opts.InstanceID
}

// Resolve turns a raw request into a validated selection, filling defaults
// from the active dataset.
func (s *DashboardService) Resolve(req SelectionRequest) (core.Selection, error) {
	snap := s.current.Load()
	if snap == nil {
		return core.Selection{}, ErrNotLoaded
	}

	year := req.Year
	if year == 0 {
		if len(snap.years) == 0 {
			return core.Selection{}, ErrNoYears
		}
		year = snap.years[0]
	}

	countries := req.Countries
	if !req.CountriesSet {
		countries = snap.defaultCountries(s.opts.DefaultCountryCount)
	}

	theme := req.Theme
	if theme == "" {
		theme = s.opts.DefaultTheme
	}

	return core.NewSelection(year, countries, theme)
}

// View computes the dashboard for sel. The ranked comparison always covers
// every country of the dataset; totals and chart series cover the selection.
func (s *DashboardService) View(ctx context.Context, sel core.Selection) (core.DashboardView, error) {
	snap := s.current.Load()
	if snap == nil {
		return core.DashboardView{}, ErrNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return core.DashboardView{}, err
	}

	key := fmt.Sprintf("%d/%s", snap.generation, sel.Key())
	if view, ok := s.views.Get(key); ok {
		slog.DebugContext(ctx, "Dashboard view served from cache",
			applog.FieldComponent, applog.ComponentCache, "key", key)
		return view, nil
	}

	filtered := dataset.FilterByCountries(dataset.FilterByYear(snap.records, sel.Year), sel.Countries())
	comparison := Compare(snap.records, sel.Year)
	metrics, ok := ExtractMetrics(comparison)

	view := core.DashboardView{
		Selection:  sel,
		Rows:       len(filtered),
		TotalValue: TotalValue(filtered),
		Comparison: comparison,
		Metrics:    metrics,
		HasMetrics: ok,
		Charts:     BuildCharts(filtered),
	}
	s.views.Set(key, view)

	slog.DebugContext(ctx, "Dashboard view computed",
		applog.FieldComponent, applog.ComponentComparison,
		applog.FieldYear, sel.Year,
		applog.FieldCountries, sel.Countries(),
		applog.FieldRows, view.Rows)

	return view, nil
}

// Comparison ranks every country of the dataset for year.
func (s *DashboardService) Comparison(year int) ([]core.YearlyRow, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return Compare(snap.records, year), nil
}

func (s *DashboardService) Options() (Options, error) {
	snap := s.current.Load()
	if snap == nil {
		return Options{}, ErrNotLoaded
	}
	opts := Options{
		Years:            slices.Clone(snap.years),
		Countries:        slices.Clone(snap.countries),
		Themes:           slices.Clone(core.Themes),
		DefaultCountries: snap.defaultCountries(s.opts.DefaultCountryCount),
		DefaultTheme:     s.opts.DefaultTheme,
	}
	if len(snap.years) > 0 {
		opts.DefaultYear = snap.years[0]
	}
	return opts, nil
}

func (s *DashboardService) Stats() Stats {
	snap := s.current.Load()
	if snap == nil {
		return Stats{}
	}
	return snap.stats()
}

// Ready reports whether a dataset has been loaded.
func (s *DashboardService) Ready() bool {
	return s.current.Load() != nil
}

func (snap *snapshot) defaultCountries(n int) []string {
	n = min(max(n, 0), len(snap.countries))
	return slices.Clone(snap.countries[:n])
}

func (snap *snapshot) stats() Stats {
	return Stats{
		Loaded:     true,
		Source:     snap.source,
		Rows:       len(snap.records),
		SourceRows: snap.sourceRows,
		Years:      slices.Clone(snap.years),
		Countries:  len(snap.countries),
		Generation: snap.generation,
		LoadedAt:   snap.loadedAt,
	}
}
