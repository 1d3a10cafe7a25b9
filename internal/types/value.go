package types

import (
	"encoding/json"
	"strconv"
)

// Value is a cell scalar tagged by its column type. A text value never
// carries a number and vice versa, so the persisted pair produced by Slots
// always has exactly one active slot.
type Value struct {
	kind   ColumnType
	text   string
	number float64
	valid  bool
}

// Text builds a non-null TEXT value.
func Text(s string) Value { return Value{kind: ColumnText, text: s, valid: true} }

// Number builds a non-null NUMBER value.
func Number(f float64) Value { return Value{kind: ColumnNumber, number: f, valid: true} }

// Null builds the null value of a column type.
func Null(t ColumnType) Value { return Value{kind: t} }

// FromSlots rebuilds a value from the persisted nullable pair for a column type.
// The slot that does not belong to the type is ignored.
func FromSlots(t ColumnType, text *string, number *float64) Value {
	switch t {
	case ColumnNumber:
		if number != nil {
			return Number(*number)
		}
	case ColumnText:
		if text != nil {
			return Text(*text)
		}
	}
	return Null(t)
}

func (v Value) Type() ColumnType { return v.kind }
func (v Value) IsNull() bool     { return !v.valid }

// Text returns the text and whether the value is a non-null TEXT.
func (v Value) Text() (string, bool) {
	return v.text, v.valid && v.kind == ColumnText
}

// Number returns the number and whether the value is a non-null NUMBER.
func (v Value) Number() (float64, bool) {
	return v.number, v.valid && v.kind == ColumnNumber
}

// Slots projects the value to the (textValue, numberValue) pair. The slot that
// does not match the type is always nil.
func (v Value) Slots() (text *string, number *float64) {
	if !v.valid {
		return nil, nil
	}
	switch v.kind {
	case ColumnText:
		s := v.text
		return &s, nil
	case ColumnNumber:
		f := v.number
		return nil, &f
	}
	return nil, nil
}

// Display renders the value for the grid; null renders as "".
func (v Value) Display() string {
	if !v.valid {
		return ""
	}
	if v.kind == ColumnNumber {
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	}
	return v.text
}

func (v Value) String() string { return v.Display() }

type valueJSON struct {
	Type        ColumnType `json:"type"`
	TextValue   *string    `json:"textValue"`
	NumberValue *float64   `json:"numberValue"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	text, number := v.Slots()
	return json.Marshal(valueJSON{Type: v.kind, TextValue: text, NumberValue: number})
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var raw valueJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*v = FromSlots(raw.Type, raw.TextValue, raw.NumberValue)
	return nil
}
