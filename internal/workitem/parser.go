package workitem

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
)

const (
	refID           = "System.Id"
	refWorkItemType = "System.WorkItemType"
	refAreaPath     = "System.AreaPath"
	refTitle        = "System.Title"
	refChangedBy    = "System.ChangedBy"
	refState        = "System.State"
)

// displayNames maps reference names to the display names older TFS servers
// emit when ReferenceName is omitted.
var displayNames = map[string]string{
	refID:           "ID",
	refWorkItemType: "Work Item Type",
	refAreaPath:     "Area Path",
	refTitle:        "Title",
	refChangedBy:    "Changed By",
	refState:        "State",
}

type changedEventDocument struct {
	XMLName       xml.Name      `xml:"WorkItemChangedEvent"`
	AreaPath      string        `xml:"AreaPath"`
	WorkItemTitle string        `xml:"WorkItemTitle"`
	CoreFields    fieldSections `xml:"CoreFields"`
	ChangedFields fieldSections `xml:"ChangedFields"`
}

type fieldSections struct {
	IntegerFields []field `xml:"IntegerFields>Field"`
	StringFields  []field `xml:"StringFields>Field"`
}

type field struct {
	Name          string  `xml:"Name"`
	ReferenceName string  `xml:"ReferenceName"`
	OldValue      *string `xml:"OldValue"`
	NewValue      *string `xml:"NewValue"`
}

// fieldIndex resolves values by reference name with a display-name fallback.
// ChangedFields entries take precedence over CoreFields.
type fieldIndex struct {
	byRef  map[string]field
	byName map[string]field
}

func newFieldIndex(doc *changedEventDocument) fieldIndex {
	idx := fieldIndex{byRef: map[string]field{}, byName: map[string]field{}}
	add := func(fields []field) {
		for _, f := range fields {
			if ref := strings.TrimSpace(f.ReferenceName); ref != "" {
				idx.byRef[ref] = f
			}
			if name := strings.TrimSpace(f.Name); name != "" {
				idx.byName[name] = f
			}
		}
	}
	add(doc.CoreFields.IntegerFields)
	add(doc.CoreFields.StringFields)
	add(doc.ChangedFields.IntegerFields)
	add(doc.ChangedFields.StringFields)
	return idx
}

func (idx fieldIndex) lookup(ref string) (field, bool) {
	if f, ok := idx.byRef[ref]; ok {
		return f, true
	}
	f, ok := idx.byName[displayNames[ref]]
	return f, ok
}

func (idx fieldIndex) newValue(ref string) string {
	f, ok := idx.lookup(ref)
	if !ok || f.NewValue == nil {
		return ""
	}
	return strings.TrimSpace(*f.NewValue)
}

func (idx fieldIndex) oldValue(ref string) string {
	f, ok := idx.lookup(ref)
	if !ok || f.OldValue == nil {
		return ""
	}
	return strings.TrimSpace(*f.OldValue)
}

// ParseEvent converts a WorkItemChangedEvent document into a ChangeEvent.
// Optional values that are absent become empty strings. A document that does
// not parse, or that lacks the work item id, type, or area path, yields
// *MalformedEventError.
func ParseEvent(raw []byte) (ChangeEvent, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ChangeEvent{}, &MalformedEventError{Err: errors.New("empty document")}
	}

	raw, err := decodeBOM(raw)
	if err != nil {
		return ChangeEvent{}, &MalformedEventError{Err: err}
	}

	var doc changedEventDocument
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	decoder.CharsetReader = charsetReader
	if err := decoder.Decode(&doc); err != nil {
		return ChangeEvent{}, &MalformedEventError{Err: err}
	}

	idx := newFieldIndex(&doc)
	event := ChangeEvent{
		WorkItemID:   idx.newValue(refID),
		WorkItemType: idx.newValue(refWorkItemType),
		AreaPath:     idx.newValue(refAreaPath),
		Title:        idx.newValue(refTitle),
		ChangedBy:    idx.newValue(refChangedBy),
		OldState:     idx.oldValue(refState),
		NewState:     idx.newValue(refState),
	}
	if event.AreaPath == "" {
		event.AreaPath = strings.TrimSpace(doc.AreaPath)
	}
	if event.Title == "" {
		event.Title = strings.TrimSpace(doc.WorkItemTitle)
	}

	switch {
	case event.WorkItemID == "":
		return ChangeEvent{}, &MalformedEventError{Field: "work item id"}
	case event.WorkItemType == "":
		return ChangeEvent{}, &MalformedEventError{Field: "work item type"}
	case event.AreaPath == "":
		return ChangeEvent{}, &MalformedEventError{Field: "area path"}
	}
	return event, nil
}
