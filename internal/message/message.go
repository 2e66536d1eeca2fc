// Package message renders Slack notification text for work item changes.
package message

import (
	"fmt"
	"strings"

	"tfsrelay/internal/config"
	"tfsrelay/internal/rules"
	"tfsrelay/internal/textutil"
	"tfsrelay/internal/workitem"
)

// Message is the composed notification. ChannelKey is resolved to a Slack
// channel by the routing table.
type Message struct {
	Text       string
	ChannelKey string
}

// Composer builds notification text and work item permalinks for one TFS
// collection.
type Composer struct {
	collectionURL string
}

// NewComposer returns a composer rooted at the given collection URL.
func NewComposer(collectionURL string) *Composer {
	return &Composer{collectionURL: strings.TrimRight(strings.TrimSpace(collectionURL), "/")}
}

// ChannelKey returns the routing key for an area path.
func ChannelKey(areaPath string) string {
	return config.ChannelKeyPrefix + areaPath
}

// WorkItemURL returns the web access permalink for a work item in the area.
func (c *Composer) WorkItemURL(areaPath, id string) string {
	path := textutil.PathToURL(areaPath)
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("%s%s/_workitems#_a=edit&id=%s", c.collectionURL, path, id)
}

// Compose renders the notification for event under intent. parent may be nil;
// it is only used for task completions.
func (c *Composer) Compose(event workitem.ChangeEvent, intent rules.Intent, parent *workitem.Summary) Message {
	var b strings.Builder
	taskURL := c.WorkItemURL(event.AreaPath, event.WorkItemID)
	title := textutil.SanitizeTitle(event.Title)

	switch intent {
	case rules.IntentTaskCompleted:
		if parent != nil {
			fmt.Fprintf(&b, "<%s|%s %s: %s> > ",
				c.WorkItemURL(event.AreaPath, parent.ID),
				parent.WorkItemType,
				parent.ID,
				textutil.SanitizeTitle(parent.Title),
			)
		}
		fmt.Fprintf(&b, "<%s|Task %s: %s> completed by %s", taskURL, event.WorkItemID, title, event.ChangedBy)
	case rules.IntentBugCreated:
		fmt.Fprintf(&b, "<%s|Bug %s: %s> added by %s", taskURL, event.WorkItemID, title, event.ChangedBy)
	default:
		fmt.Fprintf(&b, "<%s|%s %s: %s> changed by %s", taskURL, event.WorkItemType, event.WorkItemID, title, event.ChangedBy)
	}

	return Message{Text: b.String(), ChannelKey: ChannelKey(event.AreaPath)}
}
