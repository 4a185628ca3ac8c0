package gesture

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// ErrEmptyName is returned when a gesture name is blank after normalization.
var ErrEmptyName = errors.New("gesture name is empty")

// CanonicalName normalizes a gesture name: NFKC form, surrounding space
// trimmed, inner runs of whitespace collapsed to one space, upper case.
func CanonicalName(name string) (string, error) {
	name = strings.Join(strings.Fields(norm.NFKC.String(name)), " ")
	if name == "" {
		return "", ErrEmptyName
	}
	return cases.Upper(language.Und).String(name), nil
}
