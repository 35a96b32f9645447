package components

// Component names of the default registry. Widget names resolved by
// pkg/widgets map onto these directly.
const (
	NameInput      = "input"
	NameTextarea   = "textarea"
	NameSelect     = "select"
	NameToggle     = "toggle"
	NameChips      = "chips"
	NameCodeEditor = "code-editor"
	NameJSONEditor = "json-editor"
	NameKeyValue   = "key-value"
)
