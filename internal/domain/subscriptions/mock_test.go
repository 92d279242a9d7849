package subscriptions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/Spok95/barber-club/internal/domain/catalog"
	"github.com/Spok95/barber-club/internal/domain/clients"
)

// ---------- Store ----------

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetActive(ctx context.Context, clientID, barbershopID uuid.UUID) (*Subscription, error) {
	args := m.Called(ctx, clientID, barbershopID)
	sub, _ := args.Get(0).(*Subscription)
	return sub, args.Error(1)
}

func (m *mockStore) GetByID(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	args := m.Called(ctx, id)
	sub, _ := args.Get(0).(*Subscription)
	return sub, args.Error(1)
}

func (m *mockStore) CountUsage(ctx context.Context, subscriptionID, serviceID uuid.UUID, from, to time.Time) (int, error) {
	args := m.Called(ctx, subscriptionID, serviceID, from, to)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) AddUsage(ctx context.Context, rec UsageRecord) (uuid.UUID, error) {
	args := m.Called(ctx, rec)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockStore) Renew(ctx context.Context, id uuid.UUID, nextDue time.Time, tr Transaction) (*Renewed, error) {
	args := m.Called(ctx, id, nextDue, tr)
	r, _ := args.Get(0).(*Renewed)
	return r, args.Error(1)
}

func (m *mockStore) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	return m.Called(ctx, id, status).Error(0)
}

// ---------- PlanCatalog ----------

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) GetPlan(ctx context.Context, id uuid.UUID) (*catalog.Plan, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*catalog.Plan)
	return p, args.Error(1)
}

func (m *mockCatalog) GetPlanItem(ctx context.Context, planID, serviceID uuid.UUID) (*catalog.PlanItem, error) {
	args := m.Called(ctx, planID, serviceID)
	it, _ := args.Get(0).(*catalog.PlanItem)
	return it, args.Error(1)
}

func (m *mockCatalog) ListPlanItems(ctx context.Context, planID uuid.UUID) ([]catalog.PlanItem, error) {
	args := m.Called(ctx, planID)
	items, _ := args.Get(0).([]catalog.PlanItem)
	return items, args.Error(1)
}

// ---------- ClientDirectory ----------

type staticClients map[uuid.UUID]*clients.Client

func (s staticClients) GetByID(_ context.Context, id uuid.UUID) (*clients.Client, error) {
	return s[id], nil
}

// ---------- Notifier ----------

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, text)
	return n.err
}

func (n *recordingNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

// ---------- Processor ----------

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) CancelSubscription(ctx context.Context, processorID string) (bool, error) {
	args := m.Called(ctx, processorID)
	return args.Bool(0), args.Error(1)
}
