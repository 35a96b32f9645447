package vanilla

// ChromeClass names the CSS classes of the markup the renderer emits
// around controls.
type ChromeClass string

const (
	ClassForm     ChromeClass = "formbind-form"
	ClassHeader   ChromeClass = "formbind-header"
	ClassFieldset ChromeClass = "formbind-fieldset"
	ClassField    ChromeClass = "formbind-field"
	ClassList     ChromeClass = "formbind-list"
	ClassItem     ChromeClass = "formbind-item"
	ClassActions  ChromeClass = "formbind-actions"
	ClassErrors   ChromeClass = "formbind-errors"
)

// ChromeClasses overrides the chrome classes. Empty entries keep the
// defaults.
type ChromeClasses struct {
	Form     string
	Header   string
	Fieldset string
	Field    string
	List     string
	Item     string
	Actions  string
	Errors   string
}

func (c ChromeClasses) withDefaults() ChromeClasses {
	pick := func(value string, fallback ChromeClass) string {
		if value != "" {
			return value
		}
		return string(fallback)
	}
	return ChromeClasses{
		Form:     pick(c.Form, ClassForm),
		Header:   pick(c.Header, ClassHeader),
		Fieldset: pick(c.Fieldset, ClassFieldset),
		Field:    pick(c.Field, ClassField),
		List:     pick(c.List, ClassList),
		Item:     pick(c.Item, ClassItem),
		Actions:  pick(c.Actions, ClassActions),
		Errors:   pick(c.Errors, ClassErrors),
	}
}

func (c ChromeClasses) templateData() map[string]any {
	return map[string]any{
		"form":    c.Form,
		"header":  c.Header,
		"actions": c.Actions,
		"errors":  c.Errors,
	}
}
