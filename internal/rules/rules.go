// Package rules decides which work item changes are worth a chat notification.
package rules

import (
	"strings"

	"tfsrelay/internal/workitem"
)

// Intent names the reason a notification is sent.
type Intent int

const (
	// IntentNone means the change is not notifiable.
	IntentNone Intent = iota
	// IntentTaskCompleted fires when a Task moves into the Done state.
	IntentTaskCompleted
	// IntentBugCreated fires when a Bug is created in the New state.
	IntentBugCreated
)

const (
	typeTask  = "Task"
	typeBug   = "Bug"
	stateDone = "Done"
	stateNew  = "New"
)

func (i Intent) String() string {
	switch i {
	case IntentTaskCompleted:
		return "task_completed"
	case IntentBugCreated:
		return "bug_created"
	default:
		return "none"
	}
}

// NeedsParent reports whether composing this intent requires a parent lookup.
func (i Intent) NeedsParent() bool {
	return i == IntentTaskCompleted
}

// Decide evaluates the notification rules in order and returns the first
// match. The boolean is false for changes that should be ignored.
func Decide(event workitem.ChangeEvent) (Intent, bool) {
	switch {
	case event.WorkItemType == typeTask &&
		event.OldState != event.NewState &&
		event.NewState == stateDone:
		return IntentTaskCompleted, true
	case event.WorkItemType == typeBug &&
		strings.TrimSpace(event.OldState) == "" &&
		event.NewState == stateNew:
		return IntentBugCreated, true
	default:
		return IntentNone, false
	}
}
