package record

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/Sternrassler/json-aggregator/pkg/rawjson"
)

var (
	// ErrIncompleteRecord is returned when a required field is absent or
	// cannot be coerced to its type.
	ErrIncompleteRecord = errors.New("incomplete record")

	// ErrInvalidEmail is returned when a user's email is not a syntactically
	// valid address.
	ErrInvalidEmail = errors.New("invalid email")
)

// local-part@domain, no whitespace or Unicode separators, at least one dot in
// the domain and no empty domain labels.
var emailPattern = regexp.MustCompile(`^[^\s\p{Z}@]+@[^\s\p{Z}@.]+(\.[^\s\p{Z}@.]+)+$`)

// ValidationError describes why an item could not become a record.
type ValidationError struct {
	Kind  Kind
	Field string
	Err   error // ErrIncompleteRecord or ErrInvalidEmail
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: field %q: %v", e.Kind, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidEmail reports whether s is a syntactically valid email address.
func ValidEmail(s string) bool {
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return false
	}
	return emailPattern.MatchString(s)
}

// ToUser builds a User from a raw item. Every one of id, name, email and
// username must be present.
func ToUser(raw rawjson.Value) (*User, error) {
	f := fields{kind: KindUser, raw: raw}

	u := &User{
		ID:       f.int("id"),
		Name:     f.text("name"),
		Email:    f.text("email"),
		Username: f.text("username"),
	}
	if f.err != nil {
		return nil, f.err
	}

	if !ValidEmail(u.Email) {
		return nil, &ValidationError{Kind: KindUser, Field: "email", Err: ErrInvalidEmail}
	}

	return u, nil
}

// ToPost builds a Post from a raw item. Every one of id, userId, title and
// body must be present.
func ToPost(raw rawjson.Value) (*Post, error) {
	f := fields{kind: KindPost, raw: raw}

	p := &Post{
		ID:     f.int("id"),
		UserID: f.int("userId"),
		Title:  f.text("title"),
		Body:   f.text("body"),
	}
	if f.err != nil {
		return nil, f.err
	}

	return p, nil
}

// fields extracts typed fields from an object, keeping the first failure.
type fields struct {
	kind Kind
	raw  rawjson.Value
	err  error
}

func (f *fields) get(name string) (rawjson.Value, bool) {
	if f.err != nil {
		return rawjson.Value{}, false
	}
	v, ok := f.raw.Field(name)
	if !ok {
		f.fail(name, fmt.Errorf("%w: missing", ErrIncompleteRecord))
	}
	return v, ok
}

func (f *fields) fail(name string, err error) {
	f.err = &ValidationError{Kind: f.kind, Field: name, Err: err}
}

func (f *fields) int(name string) int64 {
	v, ok := f.get(name)
	if !ok {
		return 0
	}
	i, err := v.AsInt()
	if err != nil {
		f.fail(name, fmt.Errorf("%w: %w", ErrIncompleteRecord, err))
		return 0
	}
	return i
}

func (f *fields) text(name string) string {
	v, ok := f.get(name)
	if !ok {
		return ""
	}
	s, err := v.Text()
	if err != nil {
		f.fail(name, fmt.Errorf("%w: %w", ErrIncompleteRecord, err))
		return ""
	}
	return s
}
