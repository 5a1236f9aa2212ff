package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/indexnow-studio/backend/internal/domain"
)

// In-memory store fakes shared by the service tests.

type fakeTxStore struct {
	mu            sync.Mutex
	txs           map[string]*domain.Transaction
	verifications []verification
	createErr     error
	reads         int
}

type verification struct {
	Status     domain.TransactionStatus
	VerifiedBy string
	Notes      string
}

func newFakeTxStore() *fakeTxStore {
	return &fakeTxStore{txs: make(map[string]*domain.Transaction)}
}

func (f *fakeTxStore) Create(_ context.Context, t *domain.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	cp := *t
	f.txs[t.ID] = &cp
	return nil
}

func (f *fakeTxStore) FindByID(_ context.Context, id string) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if t, ok := f.txs[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeTxStore) FindByOrderID(_ context.Context, orderID string) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	for _, t := range f.txs {
		if t.OrderID == orderID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeTxStore) FindByMetadataOrderID(_ context.Context, orderID string) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	for _, t := range f.txs {
		if t.Status.Terminal() {
			continue
		}
		if v, ok := t.Metadata["order_id"].(string); ok && v == orderID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeTxStore) FindByGatewayTransactionID(_ context.Context, fragment string) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	for _, t := range f.txs {
		if t.Status.Terminal() || t.GatewayTransactionID == nil {
			continue
		}
		if strings.HasSuffix(*t.GatewayTransactionID, fragment) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeTxStore) UpdateStatus(_ context.Context, id string, status domain.TransactionStatus, gatewayTxID *string, processedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.txs[id]
	if !ok {
		return errors.New("no such transaction")
	}
	t.Status = status
	if gatewayTxID != nil {
		t.GatewayTransactionID = gatewayTxID
	}
	if processedAt != nil {
		t.ProcessedAt = processedAt
	}
	return nil
}

func (f *fakeTxStore) SetVerification(_ context.Context, id string, status domain.TransactionStatus, verifiedBy, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.txs[id]
	if !ok {
		return errors.New("no such transaction")
	}
	t.Status = status
	t.VerifiedBy = &verifiedBy
	t.Notes = &notes
	f.verifications = append(f.verifications, verification{Status: status, VerifiedBy: verifiedBy, Notes: notes})
	return nil
}

func (f *fakeTxStore) ListByUser(_ context.Context, userID string) ([]*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Transaction
	for _, t := range f.txs {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

type entitlementWrite struct {
	UserID       string
	PackageID    string
	SubscribedAt time.Time
	ExpiresAt    time.Time
}

type fakeUserStore struct {
	mu           sync.Mutex
	users        map[string]*domain.User
	entitlements []entitlementWrite
	quotaUsage   map[string]int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:      make(map[string]*domain.User),
		quotaUsage: make(map[string]int),
	}
}

func (f *fakeUserStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeUserStore) UpdateEntitlement(_ context.Context, userID, packageID string, subscribedAt, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entitlements = append(f.entitlements, entitlementWrite{userID, packageID, subscribedAt, expiresAt})
	if u, ok := f.users[userID]; ok {
		u.PackageID = &packageID
		u.SubscribedAt = &subscribedAt
		u.ExpiresAt = &expiresAt
	}
	return nil
}

func (f *fakeUserStore) IncrementDailyQuota(_ context.Context, userID string, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotaUsage[userID] += n
	if u, ok := f.users[userID]; ok {
		u.DailyQuotaUsed += n
	}
	return nil
}

type fakeSubStore struct {
	mu       sync.Mutex
	subs     map[string]*domain.RecurringSubscription
	failures map[string]string              // sub id -> failure reason
	advanced map[string][2]time.Time        // sub id -> next billing, expiry
	extended map[string][2]time.Time
}

func newFakeSubStore() *fakeSubStore {
	return &fakeSubStore{
		subs:     make(map[string]*domain.RecurringSubscription),
		failures: make(map[string]string),
		advanced: make(map[string][2]time.Time),
		extended: make(map[string][2]time.Time),
	}
}

func (f *fakeSubStore) Create(_ context.Context, s *domain.RecurringSubscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.subs[s.ID] = &cp
	return nil
}

func (f *fakeSubStore) FindActiveByUser(_ context.Context, userID string) (*domain.RecurringSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		if s.UserID == userID && s.Status == domain.SubActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeSubStore) DueForBilling(_ context.Context, now time.Time) ([]*domain.RecurringSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.RecurringSubscription
	for _, s := range f.subs {
		if s.Status == domain.SubActive && !s.NextBillingDate.After(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeSubStore) AdvanceBilling(_ context.Context, id string, nextBillingDate, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok {
		return errors.New("no such subscription")
	}
	s.NextBillingDate = nextBillingDate
	s.ExpiresAt = expiresAt
	f.advanced[id] = [2]time.Time{nextBillingDate, expiresAt}
	return nil
}

func (f *fakeSubStore) Extend(_ context.Context, id string, nextBillingDate, expiresAt time.Time, cardToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok {
		return errors.New("no such subscription")
	}
	s.Status = domain.SubActive
	s.NextBillingDate = nextBillingDate
	s.ExpiresAt = expiresAt
	if cardToken != "" {
		s.CardToken = cardToken
	}
	f.extended[id] = [2]time.Time{nextBillingDate, expiresAt}
	return nil
}

func (f *fakeSubStore) MarkPaymentFailed(_ context.Context, id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok {
		return errors.New("no such subscription")
	}
	s.Status = domain.SubPaymentFailed
	f.failures[id] = reason
	return nil
}

type fakeCatalog struct {
	pkgs map[string]*domain.Package
	gws  map[string]*domain.PaymentGatewayConfig
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		pkgs: make(map[string]*domain.Package),
		gws:  make(map[string]*domain.PaymentGatewayConfig),
	}
}

func (f *fakeCatalog) FindByID(_ context.Context, id string) (*domain.Package, error) {
	if p, ok := f.pkgs[id]; ok {
		return p, nil
	}
	return nil, nil
}

func (f *fakeCatalog) FindGatewayByID(_ context.Context, id string) (*domain.PaymentGatewayConfig, error) {
	if g, ok := f.gws[id]; ok {
		return g, nil
	}
	return nil, nil
}

type fakeJobStore struct {
	mu      sync.Mutex
	jobs    map[string]*domain.IndexJob
	updates []domain.JobStatus
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]*domain.IndexJob)}
}

func (f *fakeJobStore) Create(_ context.Context, j *domain.IndexJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *j
	f.jobs[j.ID] = &cp
	return nil
}

func (f *fakeJobStore) FindByID(_ context.Context, id, userID string) (*domain.IndexJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.jobs[id]; ok && j.UserID == userID {
		cp := *j
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeJobStore) List(_ context.Context, userID string, _ domain.JobListQuery) ([]*domain.IndexJob, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.IndexJob
	for _, j := range f.jobs {
		if j.UserID == userID {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (f *fakeJobStore) UpdateStatus(_ context.Context, id string, status domain.JobStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return errors.New("no such job")
	}
	j.Status = status
	f.updates = append(f.updates, status)
	return nil
}

func (f *fakeJobStore) UpdateCounters(_ context.Context, id string, processed, succeeded, failed int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return errors.New("no such job")
	}
	j.ProcessedURLs, j.SucceededURLs, j.FailedURLs = processed, succeeded, failed
	return nil
}

func (f *fakeJobStore) FindPendingDue(_ context.Context, now time.Time, _ int) ([]*domain.IndexJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.IndexJob
	for _, j := range f.jobs {
		if j.Status != domain.JobPending {
			continue
		}
		if j.StartTime != nil && j.StartTime.After(now) {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeJobStore) Delete(_ context.Context, id, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.jobs[id]; ok && j.UserID == userID {
		delete(f.jobs, id)
		return true, nil
	}
	return false, nil
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeBroadcaster) BroadcastJobUpdate(jobID, status string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "job_update:"+status)
}

func (f *fakeBroadcaster) BroadcastToUser(_, event string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "user:"+event)
}

func (f *fakeBroadcaster) BroadcastJobProgress(_ string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "job_progress")
}

func (f *fakeBroadcaster) BroadcastURLSubmission(_ string, _ any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "url_submission")
}
