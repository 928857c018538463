package audit

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind discriminates the primitive types an audited attribute may hold.
type Kind string

const (
	KindAbsent Kind = "absent"
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindTime   Kind = "time"
)

// Value is a tagged variant over the primitive attribute types. Records carry
// Values rather than raw interface values so that persisted changes have an
// explicit, versionable serialization and reconstruction never needs to guess
// types from a loosely-typed blob.
type Value struct {
	kind Kind
	str  string
	i    int64
	f    float64
	b    bool
	t    time.Time
}

// Absent is the Value for a missing attribute. It is the zero Value's
// canonical form; use IsAbsent rather than comparing kinds directly.
func Absent() Value { return Value{kind: KindAbsent} }

func StringValue(s string) Value  { return Value{kind: KindString, str: s} }
func IntValue(i int64) Value      { return Value{kind: KindInt, i: i} }
func FloatValue(f float64) Value  { return Value{kind: KindFloat, f: f} }
func BoolValue(b bool) Value      { return Value{kind: KindBool, b: b} }
func TimeValue(t time.Time) Value { return Value{kind: KindTime, t: t.UTC()} }

// ValueOf converts a raw attribute value into a tagged Value. nil means the
// attribute is absent. Unrecognized types are stringified, which keeps the
// engine total over whatever the host's reflection surface yields.
func ValueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return Absent()
	case Value:
		return x
	case string:
		return StringValue(x)
	case bool:
		return BoolValue(x)
	case int:
		return IntValue(int64(x))
	case int8:
		return IntValue(int64(x))
	case int16:
		return IntValue(int64(x))
	case int32:
		return IntValue(int64(x))
	case int64:
		return IntValue(x)
	case uint:
		return IntValue(int64(x))
	case uint8:
		return IntValue(int64(x))
	case uint16:
		return IntValue(int64(x))
	case uint32:
		return IntValue(int64(x))
	case uint64:
		return IntValue(int64(x))
	case float32:
		return FloatValue(float64(x))
	case float64:
		return FloatValue(x)
	case time.Time:
		return TimeValue(x)
	default:
		return StringValue(fmt.Sprint(x))
	}
}

// Kind returns the discriminator for this value.
func (v Value) Kind() Kind {
	if v.kind == "" {
		return KindAbsent
	}
	return v.kind
}

// IsAbsent reports whether the value represents a missing attribute.
func (v Value) IsAbsent() bool { return v.Kind() == KindAbsent }

func (v Value) String() string  { return v.str }
func (v Value) Int() int64      { return v.i }
func (v Value) Float() float64  { return v.f }
func (v Value) Bool() bool      { return v.b }
func (v Value) Time() time.Time { return v.t }

// Interface returns the raw Go value, nil for absent.
func (v Value) Interface() any {
	switch v.Kind() {
	case KindString:
		return v.str
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	default:
		return nil
	}
}

// Equal compares two values by kind and payload, not identity.
func (v Value) Equal(other Value) bool {
	if v.Kind() != other.Kind() {
		return false
	}
	switch v.Kind() {
	case KindAbsent:
		return true
	case KindString:
		return v.str == other.str
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindBool:
		return v.b == other.b
	case KindTime:
		return v.t.Equal(other.t)
	}
	return false
}

// valueJSON is the persisted wire form of a Value. Ints travel as strings to
// survive JSON number round-trips without precision loss.
type valueJSON struct {
	Type  Kind   `json:"t"`
	Value string `json:"v,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	out := valueJSON{Type: v.Kind()}
	switch v.Kind() {
	case KindString:
		out.Value = v.str
	case KindInt:
		out.Value = fmt.Sprintf("%d", v.i)
	case KindFloat:
		out.Value = fmt.Sprintf("%g", v.f)
	case KindBool:
		out.Value = fmt.Sprintf("%t", v.b)
	case KindTime:
		out.Value = v.t.Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var in valueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode audit value: %w", err)
	}
	switch in.Type {
	case KindAbsent, "":
		*v = Absent()
	case KindString:
		*v = StringValue(in.Value)
	case KindInt:
		var i int64
		if _, err := fmt.Sscanf(in.Value, "%d", &i); err != nil {
			return fmt.Errorf("decode int audit value %q: %w", in.Value, err)
		}
		*v = IntValue(i)
	case KindFloat:
		var f float64
		if _, err := fmt.Sscanf(in.Value, "%g", &f); err != nil {
			return fmt.Errorf("decode float audit value %q: %w", in.Value, err)
		}
		*v = FloatValue(f)
	case KindBool:
		*v = BoolValue(in.Value == "true")
	case KindTime:
		t, err := time.Parse(time.RFC3339Nano, in.Value)
		if err != nil {
			return fmt.Errorf("decode time audit value %q: %w", in.Value, err)
		}
		*v = TimeValue(t)
	default:
		return fmt.Errorf("unknown audit value type %q", in.Type)
	}
	return nil
}

// Change is one attribute's before/after pair within a record.
type Change struct {
	Before Value `json:"before"`
	After  Value `json:"after"`
}

// Changes maps attribute names to their before/after pairs. Only attributes
// that actually differ and pass the policy filter appear here. An empty (but
// non-nil) Changes is valid: the record still documents that the action
// occurred.
type Changes map[string]Change

// Snapshot is a derived, non-persisted view of an entity's attribute state at
// a point in time. Attributes never touched by any record are simply absent.
type Snapshot map[string]Value
