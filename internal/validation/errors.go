package validation

import (
	"fmt"
	"sort"
	"strings"
)

// NonField collects errors that do not belong to a single input.
const NonField = "__all__"

// Errors maps an input field to the messages raised for it.
// It marshals to the {field: [messages]} shape REST clients expect.
type Errors map[string][]string

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

func (e Errors) Empty() bool {
	return len(e) == 0
}

// First returns the first message recorded for field, or "".
func (e Errors) First(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Fields lists the failing fields, non-field errors first, the rest sorted.
func (e Errors) Fields() []string {
	fields := make([]string, 0, len(e))
	for field := range e {
		if field != NonField {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	if e.Has(NonField) {
		fields = append([]string{NonField}, fields...)
	}
	return fields
}

// Summary is the banner shown above a form that failed validation.
func (e Errors) Summary() string {
	if len(e) == 1 {
		return "Please correct the error below."
	}
	return fmt.Sprintf("Please correct the %d errors below.", len(e))
}

// Err returns e as an error, or nil when nothing failed.
func (e Errors) Err() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, field := range e.Fields() {
		parts = append(parts, field+": "+strings.Join(e[field], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
