package model

import "encoding/json"

// Optional distinguishes an omitted JSON field from an explicit null.
//
//	{}               -> Set=false
//	{"field": null}  -> Set=true, Value=nil
//	{"field": 3}     -> Set=true, Value=&3
type Optional[T any] struct {
	Set   bool
	Value *T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// Or returns the new value when set, the current one otherwise.
func (o Optional[T]) Or(current *T) *T {
	if !o.Set {
		return current
	}
	return o.Value
}
