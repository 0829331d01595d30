package models

// GlossaryResponse explains the report terms using values from one dataset.
type GlossaryResponse struct {
	Dataset    string             `json:"dataset"`
	Categories []GlossaryCategory `json:"categories"`
}

// GlossaryCategory groups related glossary terms.
type GlossaryCategory struct {
	Name  string         `json:"name"`
	Terms []GlossaryTerm `json:"terms"`
}

// GlossaryTerm defines a single term with a live example from the report.
type GlossaryTerm struct {
	Term       string      `json:"term"`
	Label      string      `json:"label"`
	Definition string      `json:"definition"`
	Formula    string      `json:"formula,omitempty"`
	Value      interface{} `json:"value"`
	Example    string      `json:"example,omitempty"`
}
