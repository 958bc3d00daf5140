// Package record defines the typed records produced from fetched JSON and
// the validators that build them.
//
// Construction is all-or-nothing: ToUser and ToPost either return a complete
// record or a *ValidationError and nothing else.
package record

import "github.com/Sternrassler/json-aggregator/pkg/rawjson"

// Kind names the record type.
type Kind string

const (
	KindUser Kind = "user"
	KindPost Kind = "post"
	KindRaw  Kind = "raw"
)

// Record is one processed item of a dataset: a *User, a *Post or a Raw
// pass-through item.
type Record interface {
	Kind() Kind
}

// User is a validated user record.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Kind implements Record.
func (*User) Kind() Kind { return KindUser }

// Post is a validated post record. UserID is not checked against any user.
type Post struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// Kind implements Record.
func (*Post) Kind() Kind { return KindPost }

// Raw is an untyped item passed through unchanged.
type Raw struct {
	Value rawjson.Value
}

// Kind implements Record.
func (Raw) Kind() Kind { return KindRaw }

// MarshalJSON emits the wrapped value as is.
func (r Raw) MarshalJSON() ([]byte, error) {
	return r.Value.MarshalJSON()
}
