package workitem

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/text/encoding/unicode"

	"tfsrelay/internal/services"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return data
}

func TestParseEventTaskTransition(t *testing.T) {
	event, err := ParseEvent(readFixture(t, "task_done.xml"))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	want := ChangeEvent{
		WorkItemID:   "9283",
		WorkItemType: "Task",
		AreaPath:     `\Proj`,
		Title:        "Do X",
		ChangedBy:    "A",
		OldState:     "In Progress",
		NewState:     "Done",
	}
	if diff := cmp.Diff(want, event); diff != "" {
		t.Fatalf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEventCreationUsesDisplayNamesAndFallbacks(t *testing.T) {
	event, err := ParseEvent(readFixture(t, "bug_new.xml"))
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	want := ChangeEvent{
		WorkItemID:   "9301",
		WorkItemType: "Bug",
		AreaPath:     `\Proj\Team A`,
		Title:        "Crash when x > y",
		ChangedBy:    "B",
		OldState:     "",
		NewState:     "New",
	}
	if diff := cmp.Diff(want, event); diff != "" {
		t.Fatalf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEventAcceptsUTF16WithBOM(t *testing.T) {
	raw := readFixture(t, "task_done.xml")
	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes(raw)
	if err != nil {
		t.Fatalf("encode utf-16: %v", err)
	}
	event, err := ParseEvent(encoded)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if event.WorkItemID != "9283" || event.NewState != "Done" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestParseEventMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{
			name:  "missing id",
			doc:   `<WorkItemChangedEvent><AreaPath>\P</AreaPath><CoreFields><StringFields><Field><ReferenceName>System.WorkItemType</ReferenceName><NewValue>Task</NewValue></Field></StringFields></CoreFields></WorkItemChangedEvent>`,
			field: "work item id",
		},
		{
			name:  "missing type",
			doc:   `<WorkItemChangedEvent><AreaPath>\P</AreaPath><CoreFields><IntegerFields><Field><ReferenceName>System.Id</ReferenceName><NewValue>1</NewValue></Field></IntegerFields></CoreFields></WorkItemChangedEvent>`,
			field: "work item type",
		},
		{
			name:  "missing area path",
			doc:   `<WorkItemChangedEvent><CoreFields><IntegerFields><Field><ReferenceName>System.Id</ReferenceName><NewValue>1</NewValue></Field></IntegerFields><StringFields><Field><ReferenceName>System.WorkItemType</ReferenceName><NewValue>Bug</NewValue></Field></StringFields></CoreFields></WorkItemChangedEvent>`,
			field: "area path",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvent([]byte(tt.doc))
			var malformed *MalformedEventError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedEventError, got %v", err)
			}
			if malformed.Field != tt.field {
				t.Fatalf("expected field %q, got %q", tt.field, malformed.Field)
			}
			if !errors.Is(err, services.ErrMalformedEvent) {
				t.Fatalf("expected ErrMalformedEvent marker, got %v", err)
			}
		})
	}
}

func TestParseEventRejectsInvalidDocuments(t *testing.T) {
	for _, doc := range []string{"", "   ", "<WorkItemChangedEvent>", "not xml", "<Other/>"} {
		if _, err := ParseEvent([]byte(doc)); !errors.Is(err, services.ErrMalformedEvent) {
			t.Fatalf("ParseEvent(%q) = %v, want malformed", doc, err)
		}
	}
}

func TestCharsetReaderRejectsUnknownLabels(t *testing.T) {
	doc := `<?xml version="1.0" encoding="x-made-up"?><WorkItemChangedEvent/>`
	if _, err := ParseEvent([]byte(doc)); !errors.Is(err, services.ErrMalformedEvent) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}

func TestCharsetReaderDecodesLatin1(t *testing.T) {
	doc := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><WorkItemChangedEvent><AreaPath>\\P</AreaPath><WorkItemTitle>Caf\xe9</WorkItemTitle>" +
		"<CoreFields><IntegerFields><Field><ReferenceName>System.Id</ReferenceName><NewValue>7</NewValue></Field></IntegerFields>" +
		"<StringFields><Field><ReferenceName>System.WorkItemType</ReferenceName><NewValue>Bug</NewValue></Field></StringFields></CoreFields></WorkItemChangedEvent>")
	event, err := ParseEvent(doc)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if event.Title != "Café" {
		t.Fatalf("expected decoded title, got %q", event.Title)
	}
}
