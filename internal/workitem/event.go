package workitem

// ParentLinkType is the relation link-type code TFS uses for "is child of".
const ParentLinkType = -2

// ChangeEvent is the structured view of one work item change notification.
// OldState is empty when the notification reports item creation.
type ChangeEvent struct {
	WorkItemID   string
	WorkItemType string
	AreaPath     string
	Title        string
	ChangedBy    string
	OldState     string
	NewState     string
}

// Summary is the result of looking a work item up in TFS. WorkItemType has
// already been normalized to its short display form.
type Summary struct {
	ID           string
	Title        string
	WorkItemType string
}
