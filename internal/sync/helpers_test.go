// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"testing"
	"time"

	"github.com/sellerpulse/sellerpulse/internal/config"
	"github.com/sellerpulse/sellerpulse/internal/models"
	"github.com/sellerpulse/sellerpulse/internal/sources"
)

const testOrgID int64 = 42

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

// fakeClock is a mutable, thread-safe clock for deterministic deadlines.
type fakeClock struct {
	mu  stdsync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeStore is an in-memory Store. Rows are keyed (org, natural key, date)
// exactly like the real tables, so idempotence is observable.
type fakeStore struct {
	mu         stdsync.Mutex
	sales      map[string]models.SalesFact
	traffic    map[string]models.TrafficFact
	engagement map[string]models.EngagementFact
	ads        map[string]models.AdSpendFact
	runs       []models.SyncRunSummary
	orgs       []int64

	cursorErr map[models.Source]error
	upsertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sales:      make(map[string]models.SalesFact),
		traffic:    make(map[string]models.TrafficFact),
		engagement: make(map[string]models.EngagementFact),
		ads:        make(map[string]models.AdSpendFact),
		cursorErr:  make(map[models.Source]error),
	}
}

func factKey(orgID int64, naturalKey string, date time.Time) string {
	return fmt.Sprintf("%d|%s|%s", orgID, naturalKey, date.Format("2006-01-02"))
}

func (s *fakeStore) datesFor(orgID int64, source models.Source) map[string]bool {
	dates := make(map[string]bool)
	collect := func(key string) {
		var org int64
		if _, err := fmt.Sscanf(key, "%d|", &org); err != nil || org != orgID {
			return
		}
		dates[key[len(key)-10:]] = true
	}
	switch source {
	case models.SourceOrders:
		for k := range s.sales {
			collect(k)
		}
	case models.SourceTraffic:
		for k := range s.traffic {
			collect(k)
		}
	case models.SourceEngagement:
		for k := range s.engagement {
			collect(k)
		}
	case models.SourceAds:
		for k := range s.ads {
			collect(k)
		}
	}
	return dates
}

func (s *fakeStore) MaxFactDate(_ context.Context, orgID int64, source models.Source) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cursorErr[source]; err != nil {
		return nil, err
	}
	var max *time.Time
	for dateStr := range s.datesFor(orgID, source) {
		d, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}
		if max == nil || d.After(*max) {
			dd := d
			max = &dd
		}
	}
	return max, nil
}

func (s *fakeStore) DatesPresent(_ context.Context, orgID int64, source models.Source, from, to time.Time) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cursorErr[source]; err != nil {
		return nil, err
	}
	present := make(map[string]bool)
	for dateStr := range s.datesFor(orgID, source) {
		d, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}
		if !d.Before(from) && !d.After(to) {
			present[dateStr] = true
		}
	}
	return present, nil
}

func (s *fakeStore) UpsertSalesFact(_ context.Context, f *models.SalesFact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.sales[factKey(f.OrgID, f.Marketplace, f.Date)] = *f
	return nil
}

func (s *fakeStore) UpsertTrafficFact(_ context.Context, f *models.TrafficFact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.traffic[factKey(f.OrgID, f.ASIN, f.Date)] = *f
	return nil
}

func (s *fakeStore) UpsertEngagementFact(_ context.Context, f *models.EngagementFact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.engagement[factKey(f.OrgID, f.CampaignID, f.Date)] = *f
	return nil
}

func (s *fakeStore) UpsertAdSpendFact(_ context.Context, f *models.AdSpendFact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.ads[factKey(f.OrgID, f.CampaignID, f.Date)] = *f
	return nil
}

func (s *fakeStore) InsertSyncRun(_ context.Context, summary *models.SyncRunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, *summary)
	return nil
}

func (s *fakeStore) ConfiguredOrgs(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orgs, nil
}

// seedSales pre-populates sales rows so a cursor exists.
func (s *fakeStore) seedSales(t *testing.T, orgID int64, dates ...string) {
	t.Helper()
	for _, date := range dates {
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			t.Fatalf("bad seed date %q: %v", date, err)
		}
		s.sales[factKey(orgID, "US", d)] = models.SalesFact{OrgID: orgID, Marketplace: "US", Date: d}
	}
}

// seedTraffic pre-populates traffic rows so a cursor exists.
func (s *fakeStore) seedTraffic(t *testing.T, orgID int64, dates ...string) {
	t.Helper()
	for _, date := range dates {
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			t.Fatalf("bad seed date %q: %v", date, err)
		}
		s.traffic[factKey(orgID, "B0TEST1", d)] = models.TrafficFact{OrgID: orgID, ASIN: "B0TEST1", Date: d}
	}
}

func (s *fakeStore) seedAds(t *testing.T, orgID int64, dates ...string) {
	t.Helper()
	for _, date := range dates {
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			t.Fatalf("bad seed date %q: %v", date, err)
		}
		s.ads[factKey(orgID, "camp-1", d)] = models.AdSpendFact{OrgID: orgID, CampaignID: "camp-1", Date: d}
	}
}

// fakeCreds serves credentials for the sources it knows about and
// ErrNoCredentials otherwise.
type fakeCreds struct {
	known map[models.Source]*sources.Credentials
	err   error
}

func newFakeCreds(srcs ...models.Source) *fakeCreds {
	known := make(map[models.Source]*sources.Credentials)
	for _, s := range srcs {
		known[s] = &sources.Credentials{APIKey: "k-" + string(s)}
	}
	return &fakeCreds{known: known}
}

func (c *fakeCreds) Get(_ context.Context, _ int64, source models.Source) (*sources.Credentials, error) {
	if c.err != nil {
		return nil, c.err
	}
	creds, ok := c.known[source]
	if !ok {
		return nil, sources.ErrNoCredentials
	}
	return creds, nil
}

// fakeOrders returns one synthetic row per fetched date, with scripted
// failures per date string.
type fakeOrders struct {
	mu     stdsync.Mutex
	calls  []string
	failOn map[string]error
}

func newFakeOrders() *fakeOrders { return &fakeOrders{failOn: make(map[string]error)} }

func (f *fakeOrders) FetchDay(_ context.Context, _ *sources.Credentials, date time.Time) ([]models.SalesFact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := date.Format("2006-01-02")
	f.calls = append(f.calls, key)
	if err := f.failOn[key]; err != nil {
		return nil, err
	}
	return []models.SalesFact{{Marketplace: "US", Date: date, OrderCount: 1, Revenue: 10, Currency: "USD"}}, nil
}

type fakeTraffic struct {
	mu     stdsync.Mutex
	calls  []string
	failOn map[string]error
}

func newFakeTraffic() *fakeTraffic { return &fakeTraffic{failOn: make(map[string]error)} }

func (f *fakeTraffic) FetchDay(_ context.Context, _ *sources.Credentials, date time.Time) ([]models.TrafficFact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := date.Format("2006-01-02")
	f.calls = append(f.calls, key)
	if err := f.failOn[key]; err != nil {
		return nil, err
	}
	return []models.TrafficFact{{ASIN: "B0TEST1", Date: date, PageViews: 5, Sessions: 3}}, nil
}

type fakeEngagement struct {
	mu     stdsync.Mutex
	calls  []string
	failOn map[string]error
}

func newFakeEngagement() *fakeEngagement { return &fakeEngagement{failOn: make(map[string]error)} }

func (f *fakeEngagement) FetchDay(_ context.Context, _ *sources.Credentials, date time.Time) ([]models.EngagementFact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := date.Format("2006-01-02")
	f.calls = append(f.calls, key)
	if err := f.failOn[key]; err != nil {
		return nil, err
	}
	return []models.EngagementFact{{CampaignID: "flow-1", Date: date, Sends: 2}}, nil
}

// pollStep scripts one poll response for a date; the last step repeats once
// the script is exhausted.
type pollStep struct {
	poll *sources.ReportPoll
	err  error
}

// fakeAds scripts the async report workflow. Every network-shaped call
// increments calls, so circuit-break tests can assert silence.
type fakeAds struct {
	mu          stdsync.Mutex
	nextID      int
	jobDates    map[string]string // job ID -> date string
	createErr   map[string]error  // by date string
	pollScripts map[string][]pollStep
	pollCounts  map[string]int
	downloadErr map[string]error
	calls       int
}

func newFakeAds() *fakeAds {
	return &fakeAds{
		jobDates:    make(map[string]string),
		createErr:   make(map[string]error),
		pollScripts: make(map[string][]pollStep),
		pollCounts:  make(map[string]int),
		downloadErr: make(map[string]error),
	}
}

func (f *fakeAds) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeAds) CreateReport(_ context.Context, _ *sources.Credentials, date time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	key := date.Format("2006-01-02")
	if err := f.createErr[key]; err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("job-%d", f.nextID)
	f.jobDates[id] = key
	return id, nil
}

func (f *fakeAds) PollReport(_ context.Context, _ *sources.Credentials, reportID string) (*sources.ReportPoll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	date := f.jobDates[reportID]
	script := f.pollScripts[date]
	if len(script) == 0 {
		// Unscripted dates complete on the first poll.
		return &sources.ReportPoll{Done: true}, nil
	}
	idx := f.pollCounts[date]
	f.pollCounts[date]++
	if idx >= len(script) {
		idx = len(script) - 1
	}
	step := script[idx]
	return step.poll, step.err
}

func (f *fakeAds) DownloadReport(_ context.Context, _ *sources.Credentials, reportID string, date time.Time) ([]models.AdSpendFact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.downloadErr[date.Format("2006-01-02")]; err != nil {
		return nil, err
	}
	return []models.AdSpendFact{{CampaignID: "camp-1", Date: date, Impressions: 100, Spend: 5}}, nil
}

// fixture bundles an engine over fakes with a controllable clock. sleep
// advances the fake clock instead of waiting.
type fixture struct {
	store      *fakeStore
	creds      *fakeCreds
	orders     *fakeOrders
	traffic    *fakeTraffic
	engagement *fakeEngagement
	ads        *fakeAds
	clock      *fakeClock
	engine     *Engine
}

func newFixture(t *testing.T, now string) *fixture {
	t.Helper()
	f := &fixture{
		store:      newFakeStore(),
		creds:      newFakeCreds(models.AllSources...),
		orders:     newFakeOrders(),
		traffic:    newFakeTraffic(),
		engagement: newFakeEngagement(),
		ads:        newFakeAds(),
		clock:      newFakeClock(mustDate(t, now).Add(12 * time.Hour)),
	}
	f.engine = &Engine{
		store:      f.store,
		creds:      f.creds,
		orders:     f.orders,
		traffic:    f.traffic,
		engagement: f.engagement,
		ads:        f.ads,
		syncCfg: config.SyncConfig{
			Interval:      time.Hour,
			BootstrapDays: 30,
			ReconcileDays: 3,
			RetryAttempts: 0,
			RetryDelay:    time.Millisecond,
			Timezone:      "UTC",
		},
		adsSettings: adsSettings{
			lookbackDays:  14,
			batchSize:     5,
			batchPause:    2 * time.Second,
			pollInterval:  10 * time.Second,
			batchDeadline: 3 * time.Minute,
			runDeadline:   12 * time.Minute,
		},
		createRatePerSec: 10000,
		clock:            f.clock,
		sleep: func(_ context.Context, d time.Duration) error {
			f.clock.Advance(d)
			return nil
		},
		loc: time.UTC,
	}
	return f
}
