package services

import (
	"context"
	"sync"
	"testing"

	"publication-backend/application/ports"
	"publication-backend/domain/config"
	"publication-backend/domain/core/entities"
	"publication-backend/domain/core/valueobjects"
	"publication-backend/domain/events"
	"publication-backend/infrastructure/persistence/memory"
	"publication-backend/infrastructure/persistence/repository"
	"publication-backend/pkg/observability"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockEventPublisher records every published batch
type MockEventPublisher struct {
	mock.Mock
	mu        sync.Mutex
	published []events.DomainEvent
}

func (m *MockEventPublisher) Publish(ctx context.Context, batch []events.DomainEvent) error {
	args := m.Called(ctx, batch)
	m.mu.Lock()
	m.published = append(m.published, batch...)
	m.mu.Unlock()
	return args.Error(0)
}

// Types lists the event types published so far, in order
func (m *MockEventPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.published))
	for _, e := range m.published {
		out = append(out, e.GetEventType())
	}
	return out
}

type MockChannelClaimResolver struct {
	mock.Mock
}

func (m *MockChannelClaimResolver) ResolveClaim(ctx context.Context, channelIdentifier string) (*ports.ChannelClaim, error) {
	args := m.Called(ctx, channelIdentifier)
	if claim := args.Get(0); claim != nil {
		return claim.(*ports.ChannelClaim), args.Error(1)
	}
	return nil, args.Error(1)
}

var (
	owner   = valueobjects.UserInstance{Username: "owner@unit", CustomerID: "c1", TopLevelOrgID: "unit"}
	curator = "curator@unit"
)

type testEnv struct {
	repo      *repository.Repository
	publisher *MockEventPublisher
	channels  *MockChannelClaimResolver
	metrics   *observability.Collector
	pubs      *PublicationService
	tickets   *TicketService
	queries   *QueryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	cfg := config.DefaultDomainConfig()

	env := &testEnv{
		repo:      repository.NewRepository(memory.NewStore(logger), cfg.MaxTransactionItems, logger),
		publisher: new(MockEventPublisher),
		channels:  new(MockChannelClaimResolver),
		metrics:   observability.NewCollector("test"),
	}
	env.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	env.pubs = NewPublicationService(env.repo, env.channels, env.publisher, cfg, env.metrics, logger)
	env.tickets = NewTicketService(env.repo, env.publisher, cfg, env.metrics, logger)
	env.queries = NewQueryService(env.repo, logger)
	return env
}

func (e *testEnv) createResource(t *testing.T, description entities.EntityDescription) *entities.Resource {
	t.Helper()
	resource, err := e.pubs.CreateResource(context.Background(), owner, description)
	require.NoError(t, err)
	return resource
}

func (e *testEnv) attachPending(t *testing.T, resource *entities.Resource, name string) *entities.FileEntry {
	t.Helper()
	file, err := e.pubs.AttachFile(context.Background(), owner, resource.Identifier,
		entities.File{Name: name, Type: entities.FileTypePendingOpen})
	require.NoError(t, err)
	return file
}

func titled(title string) entities.EntityDescription {
	return entities.EntityDescription{MainTitle: title}
}

func withUser(workflow valueobjects.PublishingWorkflow) valueobjects.UserInstance {
	user := owner
	user.PublishingWorkflow = workflow
	return user
}
