package rawjson

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestDecode_Kinds(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want Kind
	}{
		{"null", `null`, KindNull},
		{"bool", `true`, KindBool},
		{"number", `42`, KindNumber},
		{"string", `"hi"`, KindString},
		{"array", `[1, 2]`, KindArray},
		{"object", `{"a": 1}`, KindObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Decode([]byte(tt.doc))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if v.Kind() != tt.want {
				t.Errorf("Kind() = %s, want %s", v.Kind(), tt.want)
			}
		})
	}
}

func TestDecode_Invalid(t *testing.T) {
	for _, doc := range []string{``, `{`, `<html>oops</html>`, `[1,]`, `{"a":1} trailing`} {
		if _, err := Decode([]byte(doc)); !errors.Is(err, ErrInvalidJSON) {
			t.Errorf("Decode(%q) error = %v, want ErrInvalidJSON", doc, err)
		}
	}
}

func TestItems(t *testing.T) {
	arr, _ := Decode([]byte(`[{"id":1},{"id":2},{"id":3}]`))
	if got := len(arr.Items()); got != 3 {
		t.Errorf("array Items() len = %d, want 3", got)
	}

	obj, _ := Decode([]byte(`{"id":1}`))
	if got := len(obj.Items()); got != 1 {
		t.Errorf("object Items() len = %d, want 1", got)
	}

	empty, _ := Decode([]byte(`[]`))
	if got := len(empty.Items()); got != 0 {
		t.Errorf("empty array Items() len = %d, want 0", got)
	}

	if got := len(Null().Items()); got != 0 {
		t.Errorf("null Items() len = %d, want 0", got)
	}
}

func TestField_NullIsAbsent(t *testing.T) {
	v, _ := Decode([]byte(`{"name":"Leanne","email":null}`))

	if _, ok := v.Field("name"); !ok {
		t.Error("Field(name) should be present")
	}
	if _, ok := v.Field("email"); ok {
		t.Error("Field(email) holding null should report absent")
	}
	if _, ok := v.Field("missing"); ok {
		t.Error("Field(missing) should report absent")
	}
	if _, ok := String("x").Field("name"); ok {
		t.Error("Field on non-object should report absent")
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		name    string
		value   Value
		want    int64
		wantErr bool
	}{
		{"integer", Number("7"), 7, false},
		{"negative", Number("-3"), -3, false},
		{"integral float", Number("3.0"), 3, false},
		{"exponent", Number("1e2"), 100, false},
		{"fractional", Number("1.5"), 0, true},
		{"numeric string", String("12"), 12, false},
		{"padded numeric string", String(" 12 "), 12, false},
		{"non-numeric string", String("abc"), 0, true},
		{"empty string", String(""), 0, true},
		{"bool", Bool(true), 0, true},
		{"null", Null(), 0, true},
		{"object", Object(nil), 0, true},
		{"max int64", Number("9223372036854775807"), math.MaxInt64, false},
		{"min int64", Number("-9223372036854775808"), math.MinInt64, false},
		{"min int64 as float", Number("-9223372036854775808.0"), math.MinInt64, false},
		{"one past max int64", Number("9223372036854775808"), 0, true},
		{"max int64 as float", Number("9223372036854775807.0"), 0, true},
		{"one past max int64 string", String("9223372036854775808"), 0, true},
		{"one below min int64", Number("-9223372036854775809"), 0, true},
		{"huge exponent", Number("1e300"), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.value.AsInt()
			if tt.wantErr {
				if !errors.Is(err, ErrNotInteger) {
					t.Errorf("AsInt() error = %v, want ErrNotInteger", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AsInt() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("AsInt() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestText(t *testing.T) {
	if s, err := String("hello").Text(); err != nil || s != "hello" {
		t.Errorf("String.Text() = %q, %v", s, err)
	}
	if s, err := Number("42").Text(); err != nil || s != "42" {
		t.Errorf("Number.Text() = %q, %v", s, err)
	}
	if s, err := Bool(false).Text(); err != nil || s != "false" {
		t.Errorf("Bool.Text() = %q, %v", s, err)
	}
	if _, err := Array().Text(); !errors.Is(err, ErrNotText) {
		t.Errorf("Array.Text() error = %v, want ErrNotText", err)
	}
}

func TestMarshalJSON_PreservesNumbers(t *testing.T) {
	doc := `{"id":12345678901234567,"tags":["a","b"],"ok":true,"none":null}`
	v, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	want := `{"id":12345678901234567,"none":null,"ok":true,"tags":["a","b"]}`
	if string(out) != want {
		t.Errorf("Marshal() = %s, want %s", out, want)
	}
}

func TestKeys(t *testing.T) {
	v := Object(map[string]Value{"b": Int(1), "a": Int(2)})
	keys := v.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Keys() = %v, want [a b]", keys)
	}
	if v.Len() != 2 {
		t.Errorf("Len() = %d, want 2", v.Len())
	}
}
