package worker

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/CyberRaas/WealthWise-sub002/internal/amqp"
	"github.com/CyberRaas/WealthWise-sub002/internal/core"
	"github.com/CyberRaas/WealthWise-sub002/internal/storage"
)

var (
	alice = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	bob   = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002")
)

type capturedNotification struct {
	member  core.Member
	message string
}

type captureNotifier struct {
	sent []capturedNotification
}

func (n *captureNotifier) Notify(ctx context.Context, member core.Member, message string) error {
	n.sent = append(n.sent, capturedNotification{member: member, message: message})
	return nil
}

func seed(t *testing.T) (storage.Store, core.Settlement) {
	t.Helper()
	store := storage.NewMemoryStore()
	ctx := context.Background()

	g := core.Group{
		ID:   uuid.New(),
		Name: "road trip",
		Members: []core.Member{
			{ID: alice, Name: "alice", Status: core.MemberActive},
			{ID: bob, Name: "bob", Status: core.MemberActive},
		},
	}
	if err := store.CreateGroup(ctx, g); err != nil {
		t.Fatalf("create group: %v", err)
	}

	st := core.Settlement{
		ID:        uuid.New(),
		GroupID:   g.ID,
		From:      bob,
		To:        alice,
		Amount:    core.Money{Cents: 4200},
		SettledAt: time.Now().UTC(),
	}
	if err := store.CreateSettlement(ctx, st); err != nil {
		t.Fatalf("create settlement: %v", err)
	}
	return store, st
}

func TestHandleEventProposedNotifiesRecipient(t *testing.T) {
	store, st := seed(t)
	notifier := &captureNotifier{}
	w := NewNotifyWorker(store, notifier)

	msg := amqp.NewSettlementEventMessage(amqp.EventSettlementProposed, st.ID, st.GroupID)
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.sent))
	}
	got := notifier.sent[0]
	if got.member.ID != alice {
		t.Fatalf("proposal must notify the recipient, notified %s", got.member.Name)
	}
	if !strings.Contains(got.message, "42.00") || !strings.Contains(got.message, "bob") {
		t.Fatalf("unexpected message: %q", got.message)
	}
}

func TestHandleEventDecisionNotifiesPayer(t *testing.T) {
	cases := []struct {
		event string
		want  string
	}{
		{amqp.EventSettlementConfirmed, "confirmed"},
		{amqp.EventSettlementRejected, "rejected"},
	}
	for _, tc := range cases {
		t.Run(tc.event, func(t *testing.T) {
			store, st := seed(t)
			notifier := &captureNotifier{}
			w := NewNotifyWorker(store, notifier)

			msg := amqp.NewSettlementEventMessage(tc.event, st.ID, st.GroupID)
			if err := w.HandleEvent(context.Background(), msg); err != nil {
				t.Fatalf("handle event: %v", err)
			}

			if len(notifier.sent) != 1 || notifier.sent[0].member.ID != bob {
				t.Fatalf("decision must notify the payer, got %+v", notifier.sent)
			}
			if !strings.Contains(notifier.sent[0].message, tc.want) {
				t.Fatalf("message %q missing %q", notifier.sent[0].message, tc.want)
			}
		})
	}
}

func TestHandleEventDropsStaleMessages(t *testing.T) {
	store, st := seed(t)
	notifier := &captureNotifier{}
	w := NewNotifyWorker(store, notifier)

	// Unknown settlement is dropped without error so the queue drains.
	msg := amqp.NewSettlementEventMessage(amqp.EventSettlementProposed, uuid.New(), st.GroupID)
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("stale settlement: %v", err)
	}

	// Unknown event kinds are dropped too.
	msg = amqp.NewSettlementEventMessage("settlement.exploded", st.ID, st.GroupID)
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("unknown event: %v", err)
	}

	if len(notifier.sent) != 0 {
		t.Fatalf("stale messages must not notify anyone: %+v", notifier.sent)
	}
}
