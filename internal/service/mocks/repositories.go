package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SergeiKhy/email-tracker/internal/models"
	"github.com/SergeiKhy/email-tracker/internal/repository"
)

// MockEventRepository implements repository.EventRepository for testing
type MockEventRepository struct {
	mu     sync.RWMutex
	opens  []models.OpenEvent
	clicks []models.ClickEvent
	nextID int64

	// FailWith, when set, makes every write return this error
	FailWith error
}

func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{nextID: 1}
}

func (m *MockEventRepository) InsertOpen(ctx context.Context, event *models.OpenEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}

	event.ID = m.nextID
	m.nextID++
	m.opens = append(m.opens, *event)
	return nil
}

func (m *MockEventRepository) InsertClick(ctx context.Context, event *models.ClickEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}

	event.ID = m.nextID
	m.nextID++
	m.clicks = append(m.clicks, *event)
	return nil
}

func (m *MockEventRepository) ListOpens(ctx context.Context, trackingID string) ([]models.OpenEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []models.OpenEvent{}
	for _, event := range m.opens {
		if trackingID == "" || event.TrackingID == trackingID {
			result = append(result, event)
		}
	}

	// Newest first
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].OpenedAt.After(result[j].OpenedAt)
	})
	return result, nil
}

func (m *MockEventRepository) ListConfirmedOpens(ctx context.Context, trackingID string) ([]models.OpenEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []models.OpenEvent{}
	for _, event := range m.opens {
		if event.TrackingID == trackingID && event.Confirmed {
			result = append(result, event)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].OpenedAt.Before(result[j].OpenedAt)
	})
	return result, nil
}

func (m *MockEventRepository) ListClicks(ctx context.Context, trackingID string) ([]models.ClickEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []models.ClickEvent{}
	for _, event := range m.clicks {
		if event.TrackingID == trackingID {
			result = append(result, event)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ClickedAt.Before(result[j].ClickedAt)
	})
	return result, nil
}

// OpenCount returns the number of stored open events
func (m *MockEventRepository) OpenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.opens)
}

// ClickCount returns the number of stored click events
func (m *MockEventRepository) ClickCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clicks)
}

// MockSummaryRepository implements repository.SummaryRepository for testing.
// RecordOpen/RecordClick are atomic under the mutex, mirroring the
// single-statement upsert of the Postgres implementation.
type MockSummaryRepository struct {
	mu        sync.RWMutex
	summaries map[string]*models.TrackingSummary

	// FailWith, when set, makes every write return this error
	FailWith error
}

func NewMockSummaryRepository() *MockSummaryRepository {
	return &MockSummaryRepository{
		summaries: make(map[string]*models.TrackingSummary),
	}
}

func (m *MockSummaryRepository) RecordOpen(ctx context.Context, trackingID string, openedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}

	summary, exists := m.summaries[trackingID]
	if !exists {
		summary = &models.TrackingSummary{
			TrackingID: trackingID,
			CreatedAt:  openedAt,
		}
		m.summaries[trackingID] = summary
	}

	summary.OpenCount++
	opened := openedAt
	summary.LastOpenedAt = &opened
	if summary.FirstOpenedAt == nil {
		first := openedAt
		summary.FirstOpenedAt = &first
	}
	return nil
}

func (m *MockSummaryRepository) RecordClick(ctx context.Context, trackingID string, clickedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}

	summary, exists := m.summaries[trackingID]
	if !exists {
		summary = &models.TrackingSummary{
			TrackingID: trackingID,
			CreatedAt:  clickedAt,
		}
		m.summaries[trackingID] = summary
	}

	summary.ClickCount++
	return nil
}

func (m *MockSummaryRepository) GetByTrackingID(ctx context.Context, trackingID string) (*models.TrackingSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary, exists := m.summaries[trackingID]
	if !exists {
		return nil, repository.ErrSummaryNotFound
	}

	copied := *summary
	return &copied, nil
}

func (m *MockSummaryRepository) GetStats(ctx context.Context) (*models.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &models.Stats{}
	for _, summary := range m.summaries {
		stats.TotalOpens += summary.OpenCount
		stats.TotalClicks += summary.ClickCount
		stats.UniqueTrackingIDs++
	}
	return stats, nil
}

// FakeLocator implements geo.Locator for testing
type FakeLocator struct {
	mu       sync.Mutex
	Location *models.GeoLocation
	Err      error
	calls    int
}

func (f *FakeLocator) FetchByIP(ctx context.Context, ip string) (*models.GeoLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Location != nil {
		return f.Location, nil
	}
	return &models.GeoLocation{Country: "Netherlands", City: "Amsterdam", ISP: "Test ISP"}, nil
}

// Calls returns how many times the external lookup was invoked
func (f *FakeLocator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
