package relay_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tfsrelay/internal/config"
	"tfsrelay/internal/logging"
	"tfsrelay/internal/message"
	"tfsrelay/internal/notifications"
	"tfsrelay/internal/relay"
	"tfsrelay/internal/routing"
	"tfsrelay/internal/rules"
	"tfsrelay/internal/services"
	"tfsrelay/internal/services/tfs"
	"tfsrelay/internal/workitem"
)

const collection = "https://tfs.example.com/tfs/DefaultCollection"

type stubParents struct {
	mu     sync.Mutex
	parent *workitem.Summary
	err    error
	calls  []string
}

func (s *stubParents) FetchParent(_ context.Context, id string) (*workitem.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, id)
	return s.parent, s.err
}

func (s *stubParents) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notifications.Message
	err  error
}

func (r *recordingNotifier) Post(_ context.Context, msg notifications.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingNotifier) TestNotification(context.Context, string) error { return nil }

func (r *recordingNotifier) messages() []notifications.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifications.Message(nil), r.sent...)
}

func eventXML(id, itemType, area, title, changedBy, oldState, newState string) []byte {
	var oldValue string
	if oldState != "" {
		oldValue = "<OldValue>" + oldState + "</OldValue>"
	}
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="utf-16"?>
<WorkItemChangedEvent>
  <AreaPath>%[3]s</AreaPath>
  <WorkItemTitle>%[4]s</WorkItemTitle>
  <CoreFields>
    <IntegerFields>
      <Field><Name>ID</Name><ReferenceName>System.Id</ReferenceName><NewValue>%[1]s</NewValue></Field>
    </IntegerFields>
    <StringFields>
      <Field><Name>Work Item Type</Name><ReferenceName>System.WorkItemType</ReferenceName><NewValue>%[2]s</NewValue></Field>
      <Field><Name>State</Name><ReferenceName>System.State</ReferenceName>%[6]s<NewValue>%[7]s</NewValue></Field>
      <Field><Name>Changed By</Name><ReferenceName>System.ChangedBy</ReferenceName><NewValue>%[5]s</NewValue></Field>
    </StringFields>
  </CoreFields>
</WorkItemChangedEvent>`, id, itemType, area, title, changedBy, oldValue, newState))
}

func newRelay(parents relay.ParentFinder, notifier notifications.Service) *relay.Relay {
	router := routing.NewTable(config.Routing{
		Channels:       map[string]string{`channel_\Proj`: "#proj"},
		DefaultChannel: "#general",
	})
	return relay.New(parents, message.NewComposer(collection), router, notifier, logging.NewNop())
}

func TestHandleTaskCompletedWithParent(t *testing.T) {
	parents := &stubParents{parent: &workitem.Summary{ID: "9260", Title: "Parent Y", WorkItemType: "PBI"}}
	notifier := &recordingNotifier{}
	r := newRelay(parents, notifier)

	if err := r.Handle(context.Background(), eventXML("9283", "Task", `\Proj`, "Do X", "A", "Doing", "Done")); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	text := "<" + collection + "/Proj/_workitems#_a=edit&id=9260|PBI 9260: Parent Y> > " +
		"<" + collection + "/Proj/_workitems#_a=edit&id=9283|Task 9283: Do X> completed by A"
	want := []notifications.Message{{Text: text, Channel: "#proj"}}
	if diff := cmp.Diff(want, notifier.messages()); diff != "" {
		t.Fatalf("dispatch mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"9283"}, parents.calls); diff != "" {
		t.Fatalf("parent lookups mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleTaskCompletedWithoutParent(t *testing.T) {
	notifier := &recordingNotifier{}
	r := newRelay(&stubParents{}, notifier)

	if err := r.Handle(context.Background(), eventXML("9283", "Task", `\Proj`, "Do X", "A", "Doing", "Done")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	sent := notifier.messages()
	if len(sent) != 1 {
		t.Fatalf("expected one dispatch, got %d", len(sent))
	}
	if !strings.HasPrefix(sent[0].Text, "<"+collection+"/Proj/_workitems#_a=edit&id=9283|Task 9283: Do X> completed by A") {
		t.Fatalf("unexpected text %q", sent[0].Text)
	}
}

func TestHandleBugCreatedSkipsLookupAndUsesDefaultChannel(t *testing.T) {
	parents := &stubParents{err: errors.New("should not be called")}
	notifier := &recordingNotifier{}
	r := newRelay(parents, notifier)

	if err := r.Handle(context.Background(), eventXML("9301", "Bug", `\Other`, "Crash > boom", "B", "", "New")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if parents.callCount() != 0 {
		t.Fatalf("bug creation must not look up parents")
	}
	want := []notifications.Message{{
		Text:    "<" + collection + "/Other/_workitems#_a=edit&id=9301|Bug 9301: Crash _ boom> added by B",
		Channel: "#general",
	}}
	if diff := cmp.Diff(want, notifier.messages()); diff != "" {
		t.Fatalf("dispatch mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleIgnoresNonMatchingEvents(t *testing.T) {
	parents := &stubParents{}
	notifier := &recordingNotifier{}
	r := newRelay(parents, notifier)

	for _, raw := range [][]byte{
		eventXML("1", "Task", `\Proj`, "t", "A", "Done", "Done"),
		eventXML("2", "Bug", `\Proj`, "t", "A", "Active", "New"),
		eventXML("3", "Product Backlog Item", `\Proj`, "t", "A", "", "Done"),
	} {
		if err := r.Handle(context.Background(), raw); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	}
	if len(notifier.messages()) != 0 || parents.callCount() != 0 {
		t.Fatalf("ignored events must not dispatch or look up")
	}
}

func TestPrepareReturnsNilForIgnoredEvent(t *testing.T) {
	r := newRelay(&stubParents{}, &recordingNotifier{})
	dispatch, err := r.Prepare(context.Background(), eventXML("1", "Epic", `\Proj`, "t", "A", "", "New"))
	if err != nil || dispatch != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", dispatch, err)
	}
}

func TestPrepareDescribesDispatch(t *testing.T) {
	r := newRelay(&stubParents{}, &recordingNotifier{})
	dispatch, err := r.Prepare(context.Background(), eventXML("9283", "Task", `\Proj`, "Do X", "A", "Doing", "Done"))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if dispatch.Intent != rules.IntentTaskCompleted || dispatch.Channel != "#proj" || dispatch.Parent != nil {
		t.Fatalf("unexpected dispatch %+v", dispatch)
	}
	if dispatch.Message.ChannelKey != `channel_\Proj` {
		t.Fatalf("unexpected channel key %q", dispatch.Message.ChannelKey)
	}
}

func TestHandlePropagatesMalformedEvent(t *testing.T) {
	notifier := &recordingNotifier{}
	r := newRelay(&stubParents{}, notifier)

	err := r.Handle(context.Background(), []byte("<WorkItemChangedEvent>"))
	var malformed *workitem.MalformedEventError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedEventError, got %v", err)
	}
	if len(notifier.messages()) != 0 {
		t.Fatal("malformed events must not dispatch")
	}
}

func TestHandlePropagatesLookupFailure(t *testing.T) {
	lookupErr := &tfs.LookupFailedError{WorkItemID: "9283", StatusCode: 500, Err: errors.New("boom")}
	notifier := &recordingNotifier{}
	r := newRelay(&stubParents{err: lookupErr}, notifier)

	err := r.Handle(context.Background(), eventXML("9283", "Task", `\Proj`, "Do X", "A", "Doing", "Done"))
	if !errors.Is(err, services.ErrLookupFailed) {
		t.Fatalf("expected lookup failure, got %v", err)
	}
	if len(notifier.messages()) != 0 {
		t.Fatal("failed lookups must not dispatch")
	}
}

func TestHandlePropagatesDeliveryFailure(t *testing.T) {
	deliveryErr := services.Wrap(services.ErrDelivery, "slack", "post", "webhook returned 500", nil)
	r := newRelay(&stubParents{}, &recordingNotifier{err: deliveryErr})

	err := r.Handle(context.Background(), eventXML("9301", "Bug", `\Proj`, "t", "B", "", "New"))
	if !errors.Is(err, services.ErrDelivery) {
		t.Fatalf("expected delivery failure, got %v", err)
	}
}

func TestHandleConcurrentEvents(t *testing.T) {
	parents := &stubParents{parent: &workitem.Summary{ID: "1", Title: "P", WorkItemType: "PBI"}}
	notifier := &recordingNotifier{}
	r := newRelay(parents, notifier)

	const events = 32
	var wg sync.WaitGroup
	for i := range events {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("%d", 1000+i)
			if err := r.Handle(context.Background(), eventXML(id, "Task", `\Proj`, "T", "A", "Doing", "Done")); err != nil {
				t.Errorf("Handle(%s): %v", id, err)
			}
		}()
	}
	wg.Wait()

	sent := notifier.messages()
	if len(sent) != events {
		t.Fatalf("expected %d dispatches, got %d", events, len(sent))
	}
	seen := map[string]bool{}
	for _, msg := range sent {
		seen[msg.Text] = true
	}
	if len(seen) != events {
		t.Fatalf("expected %d distinct messages, got %d", events, len(seen))
	}
}
