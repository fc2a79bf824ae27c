package protocol

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.Len() != 6 {
		t.Fatalf("expected 6 exams, got %d", c.Len())
	}
	exams := c.Exams()
	for i := 1; i < len(exams); i++ {
		if exams[i].WindowStartWeeks < exams[i-1].WindowStartWeeks {
			t.Errorf("exam %s starts before its predecessor", exams[i].ID)
		}
	}
	e, ok := c.Get("exam_3")
	if !ok || e.WindowStartWeeks != 20 || e.WindowEndWeeks != 24 {
		t.Errorf("unexpected exam_3: %+v", e)
	}
	if _, ok := c.Get("nope"); ok {
		t.Error("expected unknown id to be missing")
	}
}

func TestExamsReturnsCopy(t *testing.T) {
	c := Default()
	exams := c.Exams()
	exams[0].Name = "changed"
	if e, _ := c.Get(exams[0].ID); e.Name == "changed" {
		t.Error("catalog must not be mutated through Exams()")
	}
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name string
		defs []ExamDefinition
	}{
		{"empty", nil},
		{"missing id", []ExamDefinition{{Name: "x", WindowStartWeeks: 1, WindowEndWeeks: 2}}},
		{"inverted window", []ExamDefinition{{ID: "a", Name: "x", WindowStartWeeks: 5, WindowEndWeeks: 2}}},
		{"duplicate", []ExamDefinition{
			{ID: "a", Name: "x", WindowStartWeeks: 1, WindowEndWeeks: 2},
			{ID: "a", Name: "y", WindowStartWeeks: 3, WindowEndWeeks: 4},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.defs); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	doc := `exams:
  - id: nt_scan
    name: Nuchal Translucency
    preparation: Light meal beforehand.
    window_start_weeks: 11
    window_end_weeks: 13.9
    reminder_lead_weeks: 1
    required: true
  - id: morpho
    name: Morphology
    window_start_weeks: 20
    window_end_weeks: 24
`
	path := filepath.Join(t.TempDir(), "protocol.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	exams := c.Exams()
	if len(exams) != 2 || exams[0].ID != "nt_scan" || exams[1].ID != "morpho" {
		t.Fatalf("unexpected exams: %+v", exams)
	}
	if exams[0].WindowEndWeeks != 13.9 || exams[0].ReminderLeadWeeks != 1 || exams[0].Preparation != "Light meal beforehand." {
		t.Errorf("unexpected first exam: %+v", exams[0])
	}
	if exams[1].ReminderLeadWeeks != DefaultReminderLeadWeeks {
		t.Errorf("expected default lead weeks, got %d", exams[1].ReminderLeadWeeks)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("exams: [")); err == nil {
		t.Error("expected yaml error")
	}
}

func TestEncode_ParsesBack(t *testing.T) {
	var buf bytes.Buffer
	if err := Default().Encode(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	c, err := Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("parse encoded catalog: %v", err)
	}
	if c.Len() != Default().Len() {
		t.Errorf("expected %d exams, got %d", Default().Len(), c.Len())
	}
	e, _ := c.Get("exam_6")
	if e.WindowStartWeeks != 36 || e.WindowEndWeeks != 38 {
		t.Errorf("unexpected exam_6 window %v-%v", e.WindowStartWeeks, e.WindowEndWeeks)
	}
}
