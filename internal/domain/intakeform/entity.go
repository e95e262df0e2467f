package intakeform

type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

type Field struct {
	ID          string   `yaml:"id" json:"id"`
	Label       string   `yaml:"label" json:"label"`
	Type        string   `yaml:"type" json:"type"`
	Required    bool     `yaml:"required" json:"required"`
	Rows        int      `yaml:"rows,omitempty" json:"rows,omitempty"`
	Placeholder string   `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	Accept      string   `yaml:"accept,omitempty" json:"accept,omitempty"`
	Help        string   `yaml:"help,omitempty" json:"help,omitempty"`
	Options     []Option `yaml:"options,omitempty" json:"options,omitempty"`
}

type Section struct {
	Title  string  `yaml:"title" json:"title"`
	Fields []Field `yaml:"fields" json:"fields"`
}

// Form is the detailed intake questionnaire sent after a service is purchased.
type Form struct {
	Key          string    `yaml:"key" json:"key"`
	Title        string    `yaml:"title" json:"title"`
	ServicePrice int       `yaml:"service_price" json:"service_price"`
	Description  string    `yaml:"description" json:"description"`
	Sections     []Section `yaml:"sections" json:"sections"`
}

// RequiredFields returns the ids of all required fields in section order.
func (f Form) RequiredFields() []string {
	var ids []string
	for _, s := range f.Sections {
		for _, fl := range s.Fields {
			if fl.Required {
				ids = append(ids, fl.ID)
			}
		}
	}
	return ids
}
