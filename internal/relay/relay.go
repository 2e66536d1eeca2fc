package relay

import (
	"context"
	"log/slog"
	"time"

	"tfsrelay/internal/logging"
	"tfsrelay/internal/message"
	"tfsrelay/internal/notifications"
	"tfsrelay/internal/rules"
	"tfsrelay/internal/services"
	"tfsrelay/internal/workitem"
)

// ParentFinder resolves the parent of a work item. A nil summary with a nil
// error means the item has no parent.
type ParentFinder interface {
	FetchParent(ctx context.Context, id string) (*workitem.Summary, error)
}

// Router maps a channel key to a Slack channel.
type Router interface {
	Channel(key string) string
}

// Dispatch is a fully prepared notification that has not been sent yet.
type Dispatch struct {
	Event   workitem.ChangeEvent
	Intent  rules.Intent
	Parent  *workitem.Summary
	Message message.Message
	Channel string
}

// Relay wires the pipeline stages together.
type Relay struct {
	parents  ParentFinder
	composer *message.Composer
	router   Router
	notifier notifications.Service
	logger   *slog.Logger
}

// New constructs a relay. All collaborators are required; logger may be nil.
func New(parents ParentFinder, composer *message.Composer, router Router, notifier notifications.Service, logger *slog.Logger) *Relay {
	return &Relay{
		parents:  parents,
		composer: composer,
		router:   router,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "relay"),
	}
}

// Prepare runs every stage except delivery. It returns nil when the event does
// not match a notification rule.
func (r *Relay) Prepare(ctx context.Context, raw []byte) (*Dispatch, error) {
	event, err := workitem.ParseEvent(raw)
	if err != nil {
		return nil, err
	}
	ctx = services.WithWorkItemID(ctx, event.WorkItemID)
	logger := logging.WithContext(ctx, r.logger)

	intent, ok := rules.Decide(event)
	if !ok {
		logger.Debug("event ignored",
			logging.String("work_item_type", event.WorkItemType),
			logging.String("old_state", event.OldState),
			logging.String("new_state", event.NewState),
			logging.String(logging.FieldEventType, "event_ignored"),
		)
		return nil, nil
	}

	var parent *workitem.Summary
	if intent.NeedsParent() {
		parent, err = r.parents.FetchParent(ctx, event.WorkItemID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			logger.Debug("no parent relation found")
		}
	}

	msg := r.composer.Compose(event, intent, parent)
	return &Dispatch{
		Event:   event,
		Intent:  intent,
		Parent:  parent,
		Message: msg,
		Channel: r.router.Channel(msg.ChannelKey),
	}, nil
}

// Handle processes one change notification, posting at most one message.
func (r *Relay) Handle(ctx context.Context, raw []byte) error {
	started := time.Now()
	dispatch, err := r.Prepare(ctx, raw)
	if err != nil || dispatch == nil {
		return err
	}

	ctx = services.WithWorkItemID(ctx, dispatch.Event.WorkItemID)
	if err := r.notifier.Post(ctx, notifications.Message{
		Text:    dispatch.Message.Text,
		Channel: dispatch.Channel,
	}); err != nil {
		return err
	}

	logging.WithContext(ctx, r.logger).Info("notification dispatched",
		logging.String("intent", dispatch.Intent.String()),
		logging.String("channel", dispatch.Channel),
		logging.Bool("has_parent", dispatch.Parent != nil),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}
