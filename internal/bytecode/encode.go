package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

var (
	ErrUnknownOpcode       = errors.New("unknown opcode")
	ErrInvalidOperandCount = errors.New("invalid operand count")
	ErrInvalidMagic        = errors.New("invalid magic: not an OPDA program")
	ErrTruncated           = errors.New("truncated program")
	ErrUnknownValueKind    = errors.New("unknown value kind")
	ErrInvalidTableEntry   = errors.New("invalid table entry")
)

// Encode serializes the program into the OPDA binary format. The encoding is purely mechanical,
// nothing is validated.
func Encode(w io.Writer, p *Program) error {
	_, err := p.WriteTo(w)
	return err
}

func (p *Program) WriteTo(w io.Writer) (int64, error) {
	buf := p.AppendBinary(nil)
	n, err := w.Write(buf)
	return int64(n), err
}

// AppendBinary appends the binary representation of the program to b.
func (p *Program) AppendBinary(b []byte) []byte {
	le := binary.LittleEndian

	b = append(b, MAGIC...)
	b = le.AppendUint32(b, FORMAT_VERSION)

	//strings
	b = le.AppendUint32(b, uint32(int32(len(p.stringOrder))))
	for _, id := range p.stringOrder {
		b = le.AppendUint32(b, id)
		b = append(b, p.strings[id]...)
		b = append(b, 0)
	}

	//values
	b = le.AppendUint32(b, uint32(int32(len(p.values))))
	for id, v := range p.values {
		b = le.AppendUint32(b, uint32(id))
		b = appendValue(b, v)
	}

	//definitions
	b = le.AppendUint32(b, uint32(int32(len(p.definitions))))
	for _, def := range p.definitions {
		b = le.AppendUint32(b, def.KeyStringID)
		b = le.AppendUint32(b, def.ValueStringID)
	}

	//commands
	b = le.AppendUint32(b, uint32(int32(len(p.commands))))
	for id, cmd := range p.commands {
		b = le.AppendUint32(b, uint32(id))
		b = le.AppendUint32(b, cmd.NameStringID)
		b = le.AppendUint32(b, uint32(int32(len(cmd.ArgValueIDs))))
		for _, arg := range cmd.ArgValueIDs {
			b = le.AppendUint32(b, arg)
		}
	}

	//scenes
	b = le.AppendUint32(b, uint32(int32(len(p.scenes))))
	for _, scene := range p.scenes {
		b = le.AppendUint32(b, scene.NameStringID)
		b = le.AppendUint32(b, scene.LabelID)
	}

	//instructions
	b = le.AppendUint32(b, uint32(int32(len(p.Instructions))))
	for _, inst := range p.Instructions {
		b = appendInstruction(b, inst)
	}

	return b
}

func appendValue(b []byte, v Value) []byte {
	le := binary.LittleEndian

	b = le.AppendUint16(b, uint16(v.Kind))
	switch v.Kind {
	case STRING, VARIABLE, RAW_IDENTIFIER:
		b = le.AppendUint32(b, v.StringID)
	case INT32:
		b = le.AppendUint32(b, uint32(v.Int32))
	case DOUBLE:
		b = le.AppendUint64(b, math.Float64bits(v.Double))
	case BOOLEAN:
		if v.Bool {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
	}
	return b
}

func appendInstruction(b []byte, inst Instruction) []byte {
	le := binary.LittleEndian

	b = append(b, byte(inst.Opcode))
	switch inst.Opcode.OperandCount() {
	case 1:
		b = le.AppendUint32(b, inst.Operand1)
	case 2:
		b = le.AppendUint32(b, inst.Operand1)
		b = le.AppendUint32(b, inst.Operand2)
	}
	return b
}

// Decode reads a program in the OPDA binary format. The ids of every table should be dense.
func Decode(r io.Reader) (*Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(data)
}

func DecodeBytes(data []byte) (*Program, error) {
	d := &decoder{data: data}

	if len(data) < len(MAGIC) || string(data[:len(MAGIC)]) != MAGIC {
		return nil, ErrInvalidMagic
	}
	d.pos = len(MAGIC)

	version, err := d.uint32()
	if err != nil {
		return nil, err
	}
	if version != FORMAT_VERSION {
		return nil, fmt.Errorf("unsupported format version %d", version)
	}

	p := NewProgram()

	//strings
	count, err := d.count()
	if err != nil {
		return nil, err
	}
	p.strings = make([]string, count)
	seen := make([]bool, count)
	for i := 0; i < count; i++ {
		id, err := d.uint32()
		if err != nil {
			return nil, err
		}
		s, err := d.cstring()
		if err != nil {
			return nil, err
		}
		if int(id) >= count || seen[id] {
			return nil, fmt.Errorf("%w: string id %d", ErrInvalidTableEntry, id)
		}
		seen[id] = true
		p.strings[id] = s
		p.stringIDs[s] = id
		p.stringOrder = append(p.stringOrder, id)
	}

	//values
	count, err = d.count()
	if err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		id, err := d.uint32()
		if err != nil {
			return nil, err
		}
		if int(id) != i {
			return nil, fmt.Errorf("%w: value id %d", ErrInvalidTableEntry, id)
		}
		v, err := d.value()
		if err != nil {
			return nil, err
		}
		p.values = append(p.values, v)
		if _, ok := p.valueIDs[v]; !ok {
			p.valueIDs[v] = id
		}
	}

	//definitions
	count, err = d.count()
	if err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		key, err := d.uint32()
		if err != nil {
			return nil, err
		}
		value, err := d.uint32()
		if err != nil {
			return nil, err
		}
		if !p.AddDefinition(key, value) {
			return nil, fmt.Errorf("%w: duplicate definition %d", ErrInvalidTableEntry, key)
		}
	}

	//commands
	count, err = d.count()
	if err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		id, err := d.uint32()
		if err != nil {
			return nil, err
		}
		if int(id) != i {
			return nil, fmt.Errorf("%w: command id %d", ErrInvalidTableEntry, id)
		}
		name, err := d.uint32()
		if err != nil {
			return nil, err
		}
		argCount, err := d.count()
		if err != nil {
			return nil, err
		}
		cmd := CommandCall{NameStringID: name, ArgValueIDs: make([]uint32, argCount)}
		for j := range cmd.ArgValueIDs {
			cmd.ArgValueIDs[j], err = d.uint32()
			if err != nil {
				return nil, err
			}
		}
		p.commands = append(p.commands, cmd)
		if _, ok := p.commandIDs[cmd.key()]; !ok {
			p.commandIDs[cmd.key()] = id
		}
	}

	//scenes
	count, err = d.count()
	if err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		name, err := d.uint32()
		if err != nil {
			return nil, err
		}
		label, err := d.uint32()
		if err != nil {
			return nil, err
		}
		if !p.AddScene(name, label) {
			return nil, fmt.Errorf("%w: duplicate scene %d", ErrInvalidTableEntry, name)
		}
	}

	//instructions
	count, err = d.count()
	if err != nil {
		return nil, err
	}
	p.Instructions = make([]Instruction, 0, count)
	for i := 0; i < count; i++ {
		inst, err := d.instruction()
		if err != nil {
			return nil, err
		}
		p.Instructions = append(p.Instructions, inst)

		if inst.Opcode == OpLabel && inst.Operand1 >= p.labelCount {
			p.labelCount = inst.Operand1 + 1
		}
	}

	if d.pos != len(d.data) {
		return nil, fmt.Errorf("%d trailing bytes after the instructions", len(d.data)-d.pos)
	}

	return p, nil
}

type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) take(n int) ([]byte, error) {
	if d.pos+n > len(d.data) {
		return nil, fmt.Errorf("%w: unexpected end at offset %d", ErrTruncated, d.pos)
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) uint32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// count reads an int32 element count.
func (d *decoder) count() (int, error) {
	n, err := d.uint32()
	if err != nil {
		return 0, err
	}
	count := int(int32(n))
	if count < 0 {
		return 0, fmt.Errorf("%w: negative count %d", ErrInvalidTableEntry, count)
	}
	return count, nil
}

func (d *decoder) cstring() (string, error) {
	for i := d.pos; i < len(d.data); i++ {
		if d.data[i] == 0 {
			s := string(d.data[d.pos:i])
			d.pos = i + 1
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unterminated string at offset %d", ErrTruncated, d.pos)
}

func (d *decoder) value() (Value, error) {
	b, err := d.take(2)
	if err != nil {
		return Value{}, err
	}
	kind := ValueKind(binary.LittleEndian.Uint16(b))

	switch kind {
	case STRING, VARIABLE, RAW_IDENTIFIER:
		id, err := d.uint32()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: kind, StringID: id}, nil
	case INT32:
		i, err := d.uint32()
		if err != nil {
			return Value{}, err
		}
		return Int32Value(int32(i)), nil
	case DOUBLE:
		b, err := d.take(8)
		if err != nil {
			return Value{}, err
		}
		return DoubleValue(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
	case BOOLEAN:
		b, err := d.take(1)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(b[0] != 0), nil
	case UNDEFINED:
		return UndefinedValue(), nil
	default:
		return Value{}, fmt.Errorf("%w: %d", ErrUnknownValueKind, kind)
	}
}

func (d *decoder) instruction() (Instruction, error) {
	b, err := d.take(1)
	if err != nil {
		return Instruction{}, err
	}
	op := Opcode(b[0])
	if !op.IsValid() {
		return Instruction{}, fmt.Errorf("%w: 0x%x at offset %d", ErrUnknownOpcode, b[0], d.pos-1)
	}

	inst := Instruction{Opcode: op}
	count := op.OperandCount()
	if count >= 1 {
		if inst.Operand1, err = d.uint32(); err != nil {
			return Instruction{}, err
		}
	}
	if count >= 2 {
		if inst.Operand2, err = d.uint32(); err != nil {
			return Instruction{}, err
		}
	}
	return inst, nil
}
