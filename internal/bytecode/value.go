package bytecode

import (
	"strconv"
)

// ValueKind is serialized as an uint16, the numeric values are part of the binary format.
type ValueKind uint16

const (
	DOUBLE ValueKind = iota
	INT32
	STRING
	BOOLEAN
	UNDEFINED
	VARIABLE
	RAW_IDENTIFIER
)

var valueKindNames = [...]string{
	DOUBLE:         "Double",
	INT32:          "Int32",
	STRING:         "String",
	BOOLEAN:        "Boolean",
	UNDEFINED:      "Undefined",
	VARIABLE:       "Variable",
	RAW_IDENTIFIER: "RawIdentifier",
}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return "ValueKind(" + strconv.Itoa(int(k)) + ")"
}

func (k ValueKind) IsValid() bool {
	return k <= RAW_IDENTIFIER
}

// HasStringPayload returns true for the kinds whose payload is a string id.
func (k ValueKind) HasStringPayload() bool {
	return k == STRING || k == VARIABLE || k == RAW_IDENTIFIER
}

// Value is a registered constant. Only the payload field matching the kind is set so
// that two values are equal iff their kinds and payloads are equal.
type Value struct {
	Kind     ValueKind `json:"kind"`
	Int32    int32     `json:"int32,omitempty"`
	Double   float64   `json:"double,omitempty"`
	Bool     bool      `json:"bool,omitempty"`
	StringID uint32    `json:"stringID,omitempty"`
}

func Int32Value(i int32) Value {
	return Value{Kind: INT32, Int32: i}
}

func DoubleValue(f float64) Value {
	return Value{Kind: DOUBLE, Double: f}
}

func BoolValue(b bool) Value {
	return Value{Kind: BOOLEAN, Bool: b}
}

func UndefinedValue() Value {
	return Value{Kind: UNDEFINED}
}

func StringValue(stringID uint32) Value {
	return Value{Kind: STRING, StringID: stringID}
}

func VariableValue(nameID uint32) Value {
	return Value{Kind: VARIABLE, StringID: nameID}
}

func RawIdentifierValue(stringID uint32) Value {
	return Value{Kind: RAW_IDENTIFIER, StringID: stringID}
}

// CommandCall is an entry of the command table.
type CommandCall struct {
	NameStringID uint32   `json:"nameStringID"`
	ArgValueIDs  []uint32 `json:"argValueIDs"`
}

func (c CommandCall) key() string {
	b := make([]byte, 0, 4*(len(c.ArgValueIDs)+1))
	b = strconv.AppendUint(b, uint64(c.NameStringID), 10)
	for _, id := range c.ArgValueIDs {
		b = append(b, ',')
		b = strconv.AppendUint(b, uint64(id), 10)
	}
	return string(b)
}

func (c CommandCall) Equal(other CommandCall) bool {
	if c.NameStringID != other.NameStringID || len(c.ArgValueIDs) != len(other.ArgValueIDs) {
		return false
	}
	for i, id := range c.ArgValueIDs {
		if other.ArgValueIDs[i] != id {
			return false
		}
	}
	return true
}
