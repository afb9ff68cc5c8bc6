package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/okwach/wablast-backend/internal/model"
	"github.com/okwach/wablast-backend/internal/service"
	"github.com/okwach/wablast-backend/internal/whatsapp"
)

// --- In-memory queue entry repo ---

type memEntryRepo struct {
	mu      sync.Mutex
	entries map[int]*model.QueueEntry
	nextID  int
}

func newMemEntryRepo() *memEntryRepo {
	return &memEntryRepo{entries: map[int]*model.QueueEntry{}, nextID: 1}
}

func (m *memEntryRepo) add(e *model.QueueEntry) *model.QueueEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.nextID
	m.nextID++
	if e.Status == "" {
		e.Status = model.StatusPending
	}
	if e.MaxAttempts == 0 {
		e.MaxAttempts = model.DefaultMaxAttempts
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	m.entries[e.ID] = e
	return e
}

func (m *memEntryRepo) GetByID(id int) (*model.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("entry %d not found", id)
	}
	cp := *e
	return &cp, nil
}

func (m *memEntryRepo) FetchPending(limit int) ([]*model.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending := []*model.QueueEntry{}
	for _, e := range m.entries {
		if e.Status == model.StatusPending {
			cp := *e
			pending = append(pending, &cp)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Priority != pending[j].Priority {
			return pending[i].Priority < pending[j].Priority
		}
		if !pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return pending[i].CreatedAt.Before(pending[j].CreatedAt)
		}
		return pending[i].ID < pending[j].ID
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (m *memEntryRepo) Claim(id int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.Status != model.StatusPending {
		return false, nil
	}
	e.Status = model.StatusProcessing
	return true, nil
}

func (m *memEntryRepo) MarkSent(id int, processedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[id]
	e.Status = model.StatusSent
	e.ProcessedAt = &processedAt
	e.LastError = ""
	return nil
}

func (m *memEntryRepo) MarkRetry(id int, attempts int, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[id]
	e.Status = model.StatusPending
	e.Attempts = attempts
	e.LastError = lastError
	return nil
}

func (m *memEntryRepo) MarkFailed(id int, attempts int, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[id]
	e.Status = model.StatusFailed
	e.Attempts = attempts
	e.LastError = lastError
	now := time.Now()
	e.ProcessedAt = &now
	return nil
}

func (m *memEntryRepo) StatsByCampaign(campaignID int) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := map[string]int{
		model.StatusPending:    0,
		model.StatusProcessing: 0,
		model.StatusSent:       0,
		model.StatusFailed:     0,
	}
	for _, e := range m.entries {
		if e.CampaignID == campaignID {
			stats[e.Status]++
		}
	}
	return stats, nil
}

func (m *memEntryRepo) RequeueFailed(campaignID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.CampaignID == campaignID && e.Status == model.StatusFailed {
			e.Status = model.StatusPending
			e.Attempts = 0
			e.LastError = ""
			e.ProcessedAt = nil
			n++
		}
	}
	return n, nil
}

// --- Fake sender ---

type fakeSender struct {
	mu         sync.Mutex
	textPhones []string
	imgPhones  []string
	textErr    error
	imageErr   error
	textFail   string // provider-level rejection message, if set
}

func (f *fakeSender) SendText(ctx context.Context, phone, body string) (*whatsapp.SendResult, error) {
	f.mu.Lock()
	f.textPhones = append(f.textPhones, phone)
	f.mu.Unlock()
	if f.textErr != nil {
		return nil, f.textErr
	}
	if f.textFail != "" {
		return &whatsapp.SendResult{Success: false, Error: f.textFail}, nil
	}
	return &whatsapp.SendResult{Success: true, ProviderID: "fake"}, nil
}

func (f *fakeSender) SendImage(ctx context.Context, phone, caption, imageURL string) (*whatsapp.SendResult, error) {
	f.mu.Lock()
	f.imgPhones = append(f.imgPhones, phone)
	f.mu.Unlock()
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return &whatsapp.SendResult{Success: true, ProviderID: "fake"}, nil
}

func (f *fakeSender) SetPresence(ctx context.Context, phone, state string) error {
	return nil
}

func (f *fakeSender) textSends() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.textPhones...)
}

type zeroPacer struct{}

func (zeroPacer) TypingDelay() time.Duration  { return 0 }
func (zeroPacer) MessageDelay() time.Duration { return 0 }

func newTestDrainer(repo *memEntryRepo, sender whatsapp.Sender) *service.Drainer {
	return service.NewDrainer(repo, sender, zeroPacer{}, nil)
}

// --- Tests ---

func TestDrainSendsAllPending(t *testing.T) {
	repo := newMemEntryRepo()
	for i := 0; i < 3; i++ {
		repo.add(&model.QueueEntry{CampaignID: 1, Phone: fmt.Sprintf("2547000000%02d", i), Message: "hello"})
	}
	d := newTestDrainer(repo, &fakeSender{})

	result, err := d.Drain(context.Background(), 5)
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if result.Sent != 3 || result.Failed != 0 || result.Total != 3 {
		t.Errorf("expected sent=3 failed=0 total=3, got %+v", result)
	}
	for id := 1; id <= 3; id++ {
		e, _ := repo.GetByID(id)
		if e.Status != model.StatusSent {
			t.Errorf("entry %d: expected sent, got %s", id, e.Status)
		}
		if e.ProcessedAt == nil {
			t.Errorf("entry %d: processed_at not set", id)
		}
	}
}

func TestDrainBatchCap(t *testing.T) {
	repo := newMemEntryRepo()
	for i := 0; i < 7; i++ {
		repo.add(&model.QueueEntry{CampaignID: 1, Phone: "254700000001", Message: "hi"})
	}
	d := newTestDrainer(repo, &fakeSender{})

	result, err := d.Drain(context.Background(), 5)
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if result.Total != 5 {
		t.Errorf("expected total=5, got %d", result.Total)
	}

	stats, _ := repo.StatsByCampaign(1)
	if stats[model.StatusPending] != 2 {
		t.Errorf("expected 2 entries left pending, got %d", stats[model.StatusPending])
	}
}

func TestDrainOrdersByPriorityThenAge(t *testing.T) {
	repo := newMemEntryRepo()
	base := time.Now()
	repo.add(&model.QueueEntry{CampaignID: 1, Phone: "old-low", Message: "x", Priority: 200, CreatedAt: base})
	repo.add(&model.QueueEntry{CampaignID: 1, Phone: "young-high", Message: "x", Priority: 10, CreatedAt: base.Add(2 * time.Second)})
	repo.add(&model.QueueEntry{CampaignID: 1, Phone: "old-high", Message: "x", Priority: 10, CreatedAt: base.Add(time.Second)})

	sender := &fakeSender{}
	d := newTestDrainer(repo, sender)
	if _, err := d.Drain(context.Background(), 5); err != nil {
		t.Fatalf("drain failed: %v", err)
	}

	want := []string{"old-high", "young-high", "old-low"}
	got := sender.textSends()
	if len(got) != len(want) {
		t.Fatalf("expected %d sends, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("send %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestRetryExhaustion(t *testing.T) {
	repo := newMemEntryRepo()
	repo.add(&model.QueueEntry{CampaignID: 1, Phone: "254700000001", Message: "hi"})
	sender := &fakeSender{textFail: "connection reset by peer"}
	d := newTestDrainer(repo, sender)

	// First max_attempts-1 passes re-queue the entry.
	for attempt := 1; attempt < model.DefaultMaxAttempts; attempt++ {
		result, err := d.Drain(context.Background(), 5)
		if err != nil {
			t.Fatalf("drain failed: %v", err)
		}
		if result.Failed != 1 || result.Sent != 0 {
			t.Fatalf("pass %d: expected failed=1 sent=0, got %+v", attempt, result)
		}
		e, _ := repo.GetByID(1)
		if e.Status != model.StatusPending {
			t.Fatalf("pass %d: expected pending, got %s", attempt, e.Status)
		}
		if e.Attempts != attempt {
			t.Fatalf("pass %d: expected attempts=%d, got %d", attempt, attempt, e.Attempts)
		}
	}

	// Final pass quarantines it.
	if _, err := d.Drain(context.Background(), 5); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	e, _ := repo.GetByID(1)
	if e.Status != model.StatusFailed {
		t.Errorf("expected failed, got %s", e.Status)
	}
	if e.Attempts != e.MaxAttempts {
		t.Errorf("expected attempts==max_attempts (%d), got %d", e.MaxAttempts, e.Attempts)
	}
	if e.LastError == "" {
		t.Error("expected last_error to be recorded")
	}

	// Quarantined entries are never picked up again.
	result, err := d.Drain(context.Background(), 5)
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if result.Total != 0 {
		t.Errorf("expected nothing to process after quarantine, got total=%d", result.Total)
	}
}

func TestMediaFallbackToText(t *testing.T) {
	repo := newMemEntryRepo()
	repo.add(&model.QueueEntry{
		CampaignID: 1,
		Phone:      "254700000001",
		Message:    "look at this",
		ImageURL:   "https://cdn.example.com/p.jpg",
	})
	sender := &fakeSender{imageErr: fmt.Errorf("media upload timed out")}
	d := newTestDrainer(repo, sender)

	result, err := d.Drain(context.Background(), 5)
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if result.Sent != 1 {
		t.Fatalf("expected sent=1, got %+v", result)
	}
	if got := len(sender.textSends()); got != 1 {
		t.Errorf("expected exactly one text fallback, got %d", got)
	}
	e, _ := repo.GetByID(1)
	if e.Status != model.StatusSent {
		t.Errorf("expected sent, got %s", e.Status)
	}
	// The same-attempt fallback must not consume a retry.
	if e.Attempts != 0 {
		t.Errorf("expected attempts unchanged (0), got %d", e.Attempts)
	}
}

func TestNonMediaImageErrorSkipsFallback(t *testing.T) {
	repo := newMemEntryRepo()
	repo.add(&model.QueueEntry{
		CampaignID: 1,
		Phone:      "254700000001",
		Message:    "look at this",
		ImageURL:   "https://cdn.example.com/p.jpg",
	})
	sender := &fakeSender{imageErr: fmt.Errorf("recipient has blocked you")}
	d := newTestDrainer(repo, sender)

	if _, err := d.Drain(context.Background(), 5); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if got := len(sender.textSends()); got != 0 {
		t.Errorf("expected no text fallback for non-media error, got %d", got)
	}
	e, _ := repo.GetByID(1)
	if e.Status != model.StatusPending || e.Attempts != 1 {
		t.Errorf("expected re-queued with attempts=1, got status=%s attempts=%d", e.Status, e.Attempts)
	}
}

func TestConcurrentDrainsClaimEachEntryOnce(t *testing.T) {
	repo := newMemEntryRepo()
	const n = 6
	for i := 0; i < n; i++ {
		repo.add(&model.QueueEntry{CampaignID: 1, Phone: fmt.Sprintf("phone-%d", i), Message: "hi"})
	}
	sender := &fakeSender{}

	var wg sync.WaitGroup
	results := make([]*service.DrainResult, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := newTestDrainer(repo, sender)
			r, err := d.Drain(context.Background(), n)
			if err != nil {
				t.Errorf("drain %d failed: %v", i, err)
				return
			}
			results[i] = r
		}(i)
	}
	wg.Wait()

	total := results[0].Total + results[1].Total
	if total != n {
		t.Errorf("expected %d entries processed across both drains, got %d", n, total)
	}

	seen := map[string]int{}
	for _, phone := range sender.textSends() {
		seen[phone]++
	}
	for phone, count := range seen {
		if count != 1 {
			t.Errorf("entry %s sent %d times, expected exactly once", phone, count)
		}
	}

	stats, _ := repo.StatsByCampaign(1)
	if stats[model.StatusSent] != n {
		t.Errorf("expected all %d entries sent, got %d", n, stats[model.StatusSent])
	}
}

func TestInterMessagePacingApplies(t *testing.T) {
	repo := newMemEntryRepo()
	repo.add(&model.QueueEntry{CampaignID: 1, Phone: "254700000001", Message: "a"})
	repo.add(&model.QueueEntry{CampaignID: 1, Phone: "254700000002", Message: "b"})

	pacer := &countingPacer{}
	d := service.NewDrainer(repo, &fakeSender{}, pacer, nil)
	if _, err := d.Drain(context.Background(), 5); err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if pacer.typing != 2 {
		t.Errorf("expected 2 typing delays, got %d", pacer.typing)
	}
	if pacer.message != 2 {
		t.Errorf("expected an inter-message delay after every entry, got %d", pacer.message)
	}
}

type countingPacer struct {
	typing  int
	message int
}

func (p *countingPacer) TypingDelay() time.Duration {
	p.typing++
	return 0
}

func (p *countingPacer) MessageDelay() time.Duration {
	p.message++
	return 0
}
