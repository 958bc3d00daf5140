package record

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/Sternrassler/json-aggregator/pkg/rawjson"
)

func mustDecode(t *testing.T, doc string) rawjson.Value {
	t.Helper()
	v, err := rawjson.Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode(%s) error = %v", doc, err)
	}
	return v
}

func TestToUser_Valid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want User
	}{
		{
			name: "plain record",
			doc:  `{"id": 1, "name": "Leanne Graham", "username": "Bret", "email": "Sincere@april.biz"}`,
			want: User{ID: 1, Name: "Leanne Graham", Username: "Bret", Email: "Sincere@april.biz"},
		},
		{
			name: "numeric string id",
			doc:  `{"id": " 42 ", "name": "Ervin", "username": "Antonette", "email": "Shanna@melissa.tv"}`,
			want: User{ID: 42, Name: "Ervin", Username: "Antonette", Email: "Shanna@melissa.tv"},
		},
		{
			name: "integral float id",
			doc:  `{"id": 3.0, "name": "Clementine", "username": "Samantha", "email": "Nathan@yesenia.net"}`,
			want: User{ID: 3, Name: "Clementine", Username: "Samantha", Email: "Nathan@yesenia.net"},
		},
		{
			name: "numeric username rendered as text",
			doc:  `{"id": 4, "name": "Patricia", "username": 1234, "email": "Julianne.OConner@kory.org"}`,
			want: User{ID: 4, Name: "Patricia", Username: "1234", Email: "Julianne.OConner@kory.org"},
		},
		{
			name: "extra fields ignored",
			doc:  `{"id": 5, "name": "Chelsey", "username": "Kamren", "email": "Lucio_Hettinger@annie.ca", "phone": "1-770"}`,
			want: User{ID: 5, Name: "Chelsey", Username: "Kamren", Email: "Lucio_Hettinger@annie.ca"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := mustDecode(t, tt.doc)

			got, err := ToUser(raw)
			if err != nil {
				t.Fatalf("ToUser() error = %v", err)
			}
			if *got != tt.want {
				t.Errorf("ToUser() = %+v, want %+v", *got, tt.want)
			}

			// Deterministic: same input, same record.
			again, err := ToUser(raw)
			if err != nil || *again != *got {
				t.Errorf("ToUser() second call = %+v, %v", again, err)
			}
		})
	}
}

func TestToUser_Incomplete(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"missing id", `{"name": "a", "username": "b", "email": "a@b.co"}`, "id"},
		{"missing name", `{"id": 1, "username": "b", "email": "a@b.co"}`, "name"},
		{"missing email", `{"id": 1, "name": "a", "username": "b"}`, "email"},
		{"missing username", `{"id": 1, "name": "a", "email": "a@b.co"}`, "username"},
		{"null field", `{"id": 1, "name": null, "username": "b", "email": "a@b.co"}`, "name"},
		{"non-numeric id", `{"id": "abc", "name": "a", "username": "b", "email": "a@b.co"}`, "id"},
		{"fractional id", `{"id": 1.5, "name": "a", "username": "b", "email": "a@b.co"}`, "id"},
		{"object name", `{"id": 1, "name": {"first": "a"}, "username": "b", "email": "a@b.co"}`, "name"},
		{"not an object", `"user"`, "id"},
		{"empty object", `{}`, "id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToUser(mustDecode(t, tt.doc))

			if got != nil {
				t.Errorf("ToUser() = %+v, want nil", got)
			}
			if !errors.Is(err, ErrIncompleteRecord) {
				t.Fatalf("ToUser() error = %v, want ErrIncompleteRecord", err)
			}
			if errors.Is(err, ErrInvalidEmail) {
				t.Error("incomplete record must not match ErrInvalidEmail")
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if verr.Kind != KindUser || verr.Field != tt.field {
				t.Errorf("ValidationError = {%s %s}, want {user %s}", verr.Kind, verr.Field, tt.field)
			}
		})
	}
}

func TestToUser_InvalidEmail(t *testing.T) {
	emails := []string{
		"",
		"plainaddress",
		"no-at.example.com",
		"user@localhost",
		"user@@example.com",
		"user name@example.com",
		"user@exa mple.com",
		"@example.com",
		"user@.com",
		"user@example.",
		"user@example..com",
		"a\u00a0b@example.com",
		"ab@exa\u2003mple.com",
		"a\u3000@x.io",
		"user\u0085@example.com",
	}

	for _, email := range emails {
		t.Run(email, func(t *testing.T) {
			raw := rawjson.Object(map[string]rawjson.Value{
				"id":       rawjson.Int(1),
				"name":     rawjson.String("n"),
				"username": rawjson.String("u"),
				"email":    rawjson.String(email),
			})

			_, err := ToUser(raw)
			if !errors.Is(err, ErrInvalidEmail) {
				t.Errorf("ToUser(email=%q) error = %v, want ErrInvalidEmail", email, err)
			}
		})
	}
}

func TestValidEmail(t *testing.T) {
	valid := []string{
		"Sincere@april.biz",
		"Julianne.OConner@kory.org",
		"Lucio_Hettinger@annie.ca",
		"a+tag@sub.example.co.uk",
	}
	for _, email := range valid {
		if !ValidEmail(email) {
			t.Errorf("ValidEmail(%q) = false, want true", email)
		}
	}

	invalid := []string{
		"a\u00a0b@example.com",
		"ab@exa\u2003mple.com",
		"a\u3000@x.io",
		"user@example.com\u2028",
		"tab\t@example.com",
	}
	for _, email := range invalid {
		if ValidEmail(email) {
			t.Errorf("ValidEmail(%q) = true, want false", email)
		}
	}
}

func TestToPost(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		want      Post
		wantField string
	}{
		{
			name: "valid",
			doc:  `{"userId": 1, "id": 1, "title": "sunt aut facere", "body": "quia et suscipit"}`,
			want: Post{ID: 1, UserID: 1, Title: "sunt aut facere", Body: "quia et suscipit"},
		},
		{
			name: "string ids",
			doc:  `{"userId": "7", "id": "70", "title": "t", "body": ""}`,
			want: Post{ID: 70, UserID: 7, Title: "t", Body: ""},
		},
		{name: "missing id", doc: `{"userId": 1, "title": "t", "body": "b"}`, wantField: "id"},
		{name: "missing userId", doc: `{"id": 1, "title": "t", "body": "b"}`, wantField: "userId"},
		{name: "missing title", doc: `{"id": 1, "userId": 1, "body": "b"}`, wantField: "title"},
		{name: "missing body", doc: `{"id": 1, "userId": 1, "title": "t"}`, wantField: "body"},
		{name: "bool userId", doc: `{"id": 1, "userId": true, "title": "t", "body": "b"}`, wantField: "userId"},
		{name: "array body", doc: `{"id": 1, "userId": 1, "title": "t", "body": ["b"]}`, wantField: "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToPost(mustDecode(t, tt.doc))

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ToPost() error = %v", err)
				}
				if *got != tt.want {
					t.Errorf("ToPost() = %+v, want %+v", *got, tt.want)
				}
				return
			}

			if got != nil {
				t.Errorf("ToPost() = %+v, want nil", got)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || !errors.Is(err, ErrIncompleteRecord) {
				t.Fatalf("ToPost() error = %v, want incomplete ValidationError", err)
			}
			if verr.Kind != KindPost || verr.Field != tt.wantField {
				t.Errorf("ValidationError = {%s %s}, want {post %s}", verr.Kind, verr.Field, tt.wantField)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Kind: KindUser, Field: "email", Err: ErrInvalidEmail}

	if got, want := err.Error(), `user: field "email": invalid email`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestRecord_MarshalJSON(t *testing.T) {
	records := []Record{
		&User{ID: 1, Name: "n", Email: "a@b.co", Username: "u"},
		&Post{ID: 2, UserID: 1, Title: "t", Body: "b"},
		Raw{Value: rawjson.Object(map[string]rawjson.Value{"postId": rawjson.Int(1)})},
	}

	data, err := json.Marshal(records)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `[{"id":1,"name":"n","email":"a@b.co","username":"u"},` +
		`{"id":2,"userId":1,"title":"t","body":"b"},` +
		`{"postId":1}]`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}
