package api

import "encoding/json"

// Optional 可区分“未传”与“显式传 null”的 JSON 字段
type Optional[T any] struct {
	Set   bool
	Value *T
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

// applyTo 已传时覆盖目标字段
func (o Optional[T]) applyTo(dst **T) {
	if o.Set {
		*dst = o.Value
	}
}

// or 未传时退回到别名字段
func (o Optional[T]) or(alias Optional[T]) Optional[T] {
	if o.Set {
		return o
	}
	return alias
}
