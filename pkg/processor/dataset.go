package processor

import (
	"github.com/Sternrassler/json-aggregator/pkg/record"
)

// Dataset is the processed result of one run. Every key of the batch ends up
// in exactly one of Records, Skipped or Failed.
type Dataset struct {
	// Records holds the processed items per key. A key whose items all failed
	// validation is present with an empty slice.
	Records map[string][]record.Record

	// Skipped lists, sorted, the keys whose payload was empty.
	Skipped []string

	// Failed holds the terminal fetch error per key.
	Failed map[string]error
}

func newDataset() *Dataset {
	return &Dataset{
		Records: make(map[string][]record.Record),
		Failed:  make(map[string]error),
	}
}

// Has reports whether key has processed records.
func (d *Dataset) Has(key string) bool {
	_, ok := d.Records[key]
	return ok
}

// Users returns the users under the "users" key; ok is false when the key
// is absent.
func (d *Dataset) Users() (users []*record.User, ok bool) {
	recs, ok := d.Records[KeyUsers]
	if !ok {
		return nil, false
	}
	users = make([]*record.User, 0, len(recs))
	for _, r := range recs {
		if u, isUser := r.(*record.User); isUser {
			users = append(users, u)
		}
	}
	return users, true
}

// Posts returns the posts under the "posts" key; ok is false when the key
// is absent.
func (d *Dataset) Posts() (posts []*record.Post, ok bool) {
	recs, ok := d.Records[KeyPosts]
	if !ok {
		return nil, false
	}
	posts = make([]*record.Post, 0, len(recs))
	for _, r := range recs {
		if p, isPost := r.(*record.Post); isPost {
			posts = append(posts, p)
		}
	}
	return posts, true
}
