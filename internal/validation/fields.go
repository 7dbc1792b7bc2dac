package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const requiredMsg = "This field is required."

// Required records the standard message when value is blank.
func Required(errs Errors, field, value string) bool {
	if strings.TrimSpace(value) == "" {
		errs.Add(field, requiredMsg)
		return false
	}
	return true
}

// MaxLength records an error when value has more than max characters.
func MaxLength(errs Errors, field, value string, max int) bool {
	if n := utf8.RuneCountInString(value); n > max {
		errs.Add(field, maxLengthMsg(max, n))
		return false
	}
	return true
}

func maxLengthMsg(max, n int) string {
	return fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", max, n)
}

// Choice records an error unless valid reports the value as one of the allowed choices.
func Choice(errs Errors, field, value string, valid bool) bool {
	if !valid {
		errs.Add(field, `"`+value+`" is not a valid choice.`)
		return false
	}
	return true
}

// NormalizeName collapses runs of whitespace and title-cases each word.
func NormalizeName(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
