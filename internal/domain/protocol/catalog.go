// Package protocol holds the ordered list of recommended ultrasound exams and
// the gestational-week window in which each should be performed.
package protocol

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultReminderLeadWeeks is the lead time used when a definition omits one.
const DefaultReminderLeadWeeks = 2

// ExamDefinition describes one exam of the protocol. Windows are inclusive
// gestational-week bounds.
type ExamDefinition struct {
	ID                string  `json:"id" yaml:"id"`
	Name              string  `json:"name" yaml:"name"`
	Description       string  `json:"description" yaml:"description"`
	Preparation       string  `json:"preparation,omitempty" yaml:"preparation,omitempty"`
	WindowStartWeeks  float64 `json:"window_start_weeks" yaml:"window_start_weeks"`
	WindowEndWeeks    float64 `json:"window_end_weeks" yaml:"window_end_weeks"`
	ReminderLeadWeeks int     `json:"reminder_lead_weeks" yaml:"reminder_lead_weeks"`
	Required          bool    `json:"required" yaml:"required"`
}

// Catalog is an immutable, ordered exam protocol.
type Catalog struct {
	exams []ExamDefinition
	byID  map[string]int
}

var defaultExams = []ExamDefinition{
	{
		ID:                "exam_1",
		Name:              "Transvaginal Ultrasound",
		Description:       "Confirms the pregnancy, checks the embryo's heartbeat and estimates gestational age.",
		Preparation:       "Empty bladder. Bring previous exams if any.",
		WindowStartWeeks:  6,
		WindowEndWeeks:    8,
		ReminderLeadWeeks: 2,
		Required:          true,
	},
	{
		ID:                "exam_2",
		Name:              "First Trimester Morphology",
		Description:       "Measures nuchal translucency and screens for chromosomal abnormalities.",
		Preparation:       "Eat a light meal beforehand. A full bladder is not needed.",
		WindowStartWeeks:  11,
		WindowEndWeeks:    13,
		ReminderLeadWeeks: 2,
		Required:          true,
	},
	{
		ID:                "exam_3",
		Name:              "Second Trimester Morphology",
		Description:       "Detailed assessment of fetal anatomy and organ development.",
		Preparation:       "No specific preparation. Avoid moisturising creams on the belly that day.",
		WindowStartWeeks:  20,
		WindowEndWeeks:    24,
		ReminderLeadWeeks: 2,
		Required:          true,
	},
	{
		ID:                "exam_4",
		Name:              "Obstetric Doppler",
		Description:       "Evaluates blood flow in the umbilical cord and uterine arteries.",
		Preparation:       "No specific preparation.",
		WindowStartWeeks:  28,
		WindowEndWeeks:    32,
		ReminderLeadWeeks: 2,
		Required:          true,
	},
	{
		ID:                "exam_5",
		Name:              "Fetal Biometry",
		Description:       "Tracks fetal growth and estimates weight.",
		Preparation:       "No specific preparation.",
		WindowStartWeeks:  32,
		WindowEndWeeks:    34,
		ReminderLeadWeeks: 2,
		Required:          true,
	},
	{
		ID:                "exam_6",
		Name:              "Fetal Biophysical Profile",
		Description:       "Assesses fetal well-being close to term.",
		Preparation:       "Eating something sweet 20 minutes before helps the baby move.",
		WindowStartWeeks:  36,
		WindowEndWeeks:    38,
		ReminderLeadWeeks: 2,
		Required:          false,
	},
}

// Default returns the built-in six-exam protocol.
func Default() *Catalog {
	c, err := New(defaultExams)
	if err != nil {
		panic(err)
	}
	return c
}

// New validates defs and builds a catalog preserving their order.
func New(defs []ExamDefinition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("catalog has no exams")
	}
	c := &Catalog{
		exams: make([]ExamDefinition, 0, len(defs)),
		byID:  make(map[string]int, len(defs)),
	}
	for i, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("exam %d: id is required", i)
		}
		if d.Name == "" {
			return nil, fmt.Errorf("exam %s: name is required", d.ID)
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("exam %s: duplicate id", d.ID)
		}
		if d.WindowStartWeeks < 0 || d.WindowEndWeeks > 42 || d.WindowStartWeeks > d.WindowEndWeeks {
			return nil, fmt.Errorf("exam %s: invalid window %.1f-%.1f", d.ID, d.WindowStartWeeks, d.WindowEndWeeks)
		}
		if d.ReminderLeadWeeks < 0 {
			return nil, fmt.Errorf("exam %s: reminder lead weeks cannot be negative", d.ID)
		}
		if d.ReminderLeadWeeks == 0 {
			d.ReminderLeadWeeks = DefaultReminderLeadWeeks
		}
		c.byID[d.ID] = len(c.exams)
		c.exams = append(c.exams, d)
	}
	return c, nil
}

type catalogFile struct {
	Exams []ExamDefinition `yaml:"exams"`
}

// LoadFile reads a clinic-specific protocol from a YAML document of the form
//
//	exams:
//	  - id: exam_1
//	    name: Transvaginal Ultrasound
//	    preparation: Empty bladder.
//	    window_start_weeks: 6
//	    window_end_weeks: 8
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a YAML protocol document.
func Parse(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(f.Exams)
}

// Exams returns a copy of the ordered definitions.
func (c *Catalog) Exams() []ExamDefinition {
	out := make([]ExamDefinition, len(c.exams))
	copy(out, c.exams)
	return out
}

// Get looks up a definition by id.
func (c *Catalog) Get(id string) (ExamDefinition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return ExamDefinition{}, false
	}
	return c.exams[i], true
}

// Len returns the number of exams in the protocol.
func (c *Catalog) Len() int { return len(c.exams) }

// Encode writes the catalog in the same YAML layout Parse accepts.
func (c *Catalog) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(catalogFile{Exams: c.exams}); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return enc.Close()
}
