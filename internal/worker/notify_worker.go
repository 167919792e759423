package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/CyberRaas/WealthWise-sub002/internal/amqp"
	"github.com/CyberRaas/WealthWise-sub002/internal/core"
	"github.com/CyberRaas/WealthWise-sub002/internal/storage"
)

// NotifyWorker consumes settlement events and dispatches member
// notifications. The queue only carries identifiers; the worker loads the
// settlement and roster fresh from storage so notifications never show
// stale data.
type NotifyWorker struct {
	store    storage.Store
	notifier Notifier
}

// Notifier delivers a rendered notification to a member. The default
// implementation only logs; push and email transports plug in here.
type Notifier interface {
	Notify(ctx context.Context, member core.Member, message string) error
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, member core.Member, message string) error {
	slog.InfoContext(ctx, "Notification dispatched",
		"member_id", member.ID,
		"member_name", member.Name,
		"message", message)
	return nil
}

func NewNotifyWorker(store storage.Store, notifier Notifier) *NotifyWorker {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &NotifyWorker{
		store:    store,
		notifier: notifier,
	}
}

// HandleEvent processes one settlement event message. A missing settlement
// or group is dropped rather than requeued: the event outlived its subject.
func (w *NotifyWorker) HandleEvent(ctx context.Context, msg *amqp.SettlementEventMessage) error {
	st, err := w.store.Settlement(ctx, msg.SettlementID)
	if errors.Is(err, core.ErrSettlementNotFound) {
		slog.WarnContext(ctx, "Settlement gone, dropping event",
			"event", msg.Event,
			"settlement_id", msg.SettlementID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load settlement: %w", err)
	}

	group, err := w.store.Group(ctx, st.GroupID)
	if errors.Is(err, core.ErrGroupNotFound) {
		slog.WarnContext(ctx, "Group gone, dropping event",
			"event", msg.Event,
			"group_id", st.GroupID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load group: %w", err)
	}

	recipient, message := w.render(msg.Event, st, group)
	if message == "" {
		slog.WarnContext(ctx, "Unknown settlement event", "event", msg.Event)
		return nil
	}

	member, ok := group.Member(recipient)
	if !ok {
		slog.WarnContext(ctx, "Notification recipient left the group",
			"member_id", recipient,
			"group_id", group.ID)
		return nil
	}

	if err := w.notifier.Notify(ctx, member, message); err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	return nil
}

// render picks the member to notify and the message text for an event.
// Proposals notify the recipient; decisions notify the payer.
func (w *NotifyWorker) render(event string, st core.Settlement, group core.Group) (recipientID uuid.UUID, message string) {
	payer, _ := group.Member(st.From)
	recipient, _ := group.Member(st.To)

	switch event {
	case amqp.EventSettlementProposed:
		return st.To, fmt.Sprintf("%s says they paid you %s in %q. Confirm or reject it.",
			payer.Name, st.Amount, group.Name)
	case amqp.EventSettlementConfirmed:
		return st.From, fmt.Sprintf("%s confirmed your payment of %s in %q.",
			recipient.Name, st.Amount, group.Name)
	case amqp.EventSettlementRejected:
		return st.From, fmt.Sprintf("%s rejected your claimed payment of %s in %q.",
			recipient.Name, st.Amount, group.Name)
	default:
		return st.From, ""
	}
}

// Run consumes settlement events until the context is cancelled.
func (w *NotifyWorker) Run(ctx context.Context, client *amqp.Client) error {
	return client.ConsumeSettlementEvents(ctx, func(msg *amqp.SettlementEventMessage) error {
		return w.HandleEvent(ctx, msg)
	})
}
