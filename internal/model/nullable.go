package model

import (
	"bytes"
	"encoding/json"
)

// Nullable distinguishes a JSON field that was omitted from one that was
// explicitly null.
//
// WHY NOT A POINTER?
// A PATCH body has three cases for folderId, and *int64 can only tell two
// apart:
//
//	{}                 → leave the folder alone   (Set=false)
//	{"folderId": null} → move out of the folder  (Set=true, Value=nil)
//	{"folderId": 4}    → move into folder 4      (Set=true, Value=&4)
//
// With a plain pointer the first two both decode to nil.
//
// HOW THE DECODING WORKS:
// encoding/json only calls UnmarshalJSON when the key is present in the
// object, so setting Set inside UnmarshalJSON is enough: a missing key
// leaves the zero value, Set=false. The literal null still reaches
// UnmarshalJSON because Nullable is not a pointer type.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// Null returns a Nullable that was sent as JSON null.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

// Some returns a Nullable holding v.
func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}
