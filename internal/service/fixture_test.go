package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/spec-kit/support-relay/internal/config"
	"github.com/spec-kit/support-relay/internal/directory"
	"github.com/spec-kit/support-relay/internal/domain"
	"github.com/spec-kit/support-relay/internal/events"
	"github.com/spec-kit/support-relay/internal/repository"
	"github.com/spec-kit/support-relay/internal/transport/transporttest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var epoch = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

const (
	user      domain.Identity = "42"
	primaryA  domain.Identity = "100"
	primaryB  domain.Identity = "101"
	secondary domain.Identity = "200"
	other     domain.Identity = "201"
)

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) record(_ context.Context, e events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store        *repository.TicketStore
	dir          *directory.Directory
	rec          *transporttest.Recorder
	dispatcher   events.Dispatcher
	log          *eventLog
	submissions  *SubmissionService
	delegation   *DelegationService
	conversation *ConversationService
	reporting    *ReportingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: repository.NewTicketStore(repository.WithClock(func() time.Time { return epoch })),
		dir: directory.New(config.DirectoryConfig{
			PrimaryAdmins:   []string{"100", "101"},
			SecondaryAdmins: []string{"200", "201"},
			SuperAdmin:      "900",
			AdminNames:      map[string]string{"100": "Arman", "200": "Zahra"},
		}),
		rec:        transporttest.NewRecorder(),
		dispatcher: events.NewInMemoryDispatcher(),
		log:        &eventLog{},
	}
	for _, eventType := range events.AllEventTypes {
		f.dispatcher.Subscribe(eventType, f.log.record)
	}
	f.submissions = NewSubmissionService(SubmissionDependencies{
		Store:      f.store,
		Directory:  f.dir,
		Dispatcher: f.dispatcher,
	})
	f.delegation = NewDelegationService(DelegationDependencies{
		Store:       f.store,
		Directory:   f.dir,
		Sender:      f.rec,
		Dispatcher:  f.dispatcher,
		Concurrency: 4,
	})
	f.conversation = NewConversationService(ConversationDependencies{
		Store:       f.store,
		Directory:   f.dir,
		Sender:      f.rec,
		Dispatcher:  f.dispatcher,
		Concurrency: 4,
	})
	f.reporting = NewReportingService(f.store, f.dir)
	return f
}

// submit runs begin, append and finalize for one text item.
func (f *fixture) submit(t *testing.T, from domain.Identity, body string) *domain.Ticket {
	t.Helper()
	require.NoError(t, f.submissions.Begin(from, "Crypto", "@"+from.String()))
	_, err := f.submissions.Append(from, domain.Text{Body: body})
	require.NoError(t, err)
	ticket, err := f.submissions.Finalize(context.Background(), from)
	require.NoError(t, err)
	return ticket
}

// delegated submits a ticket and delegates it from primaryA to admin.
func (f *fixture) delegated(t *testing.T, from, admin domain.Identity) *domain.Ticket {
	t.Helper()
	ticket := f.submit(t, from, "hello")
	res, err := f.delegation.Delegate(context.Background(), ticket.ID, admin, primaryA)
	require.NoError(t, err)
	return res.Ticket
}

// active submits, delegates and first-replies.
func (f *fixture) active(t *testing.T, from, admin domain.Identity) *domain.Ticket {
	t.Helper()
	ticket := f.delegated(t, from, admin)
	activated, err := f.conversation.FirstReply(context.Background(), ticket.ID, admin, domain.Text{Body: "hi"})
	require.NoError(t, err)
	return activated
}
