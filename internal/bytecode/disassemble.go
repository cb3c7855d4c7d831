package bytecode

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// FormatValue returns a readable representation of a value, string payloads are resolved.
func (p *Program) FormatValue(v Value) string {
	switch v.Kind {
	case INT32:
		return strconv.FormatInt(int64(v.Int32), 10)
	case DOUBLE:
		return strconv.FormatFloat(v.Double, 'g', -1, 64)
	case BOOLEAN:
		return strconv.FormatBool(v.Bool)
	case UNDEFINED:
		return "undefined"
	case STRING:
		s, _ := p.StringContent(v.StringID)
		return strconv.Quote(s)
	case VARIABLE:
		s, _ := p.StringContent(v.StringID)
		return "$" + s
	case RAW_IDENTIFIER:
		s, _ := p.StringContent(v.StringID)
		return s
	}
	return v.Kind.String()
}

// FormatInstruction returns a readable representation of an instruction.
func (p *Program) FormatInstruction(inst Instruction) string {
	switch inst.Opcode {
	case OpPush:
		v, ok := p.Value(inst.Operand1)
		if !ok {
			return fmt.Sprintf("%s <invalid value %d>", inst.Opcode, inst.Operand1)
		}
		return inst.Opcode.String() + " " + p.FormatValue(v)
	case OpTextRun, OpSetVariable, OpCallFunction:
		s, _ := p.StringContent(inst.Operand1)
		return inst.Opcode.String() + " " + strconv.Quote(s)
	case OpChoice, OpChoiceTrue:
		s, _ := p.StringContent(inst.Operand1)
		return fmt.Sprintf("%s %s %d", inst.Opcode, strconv.Quote(s), inst.Operand2)
	case OpCommandRun:
		cmd, ok := p.Command(inst.Operand1)
		if !ok {
			return fmt.Sprintf("%s <invalid command %d>", inst.Opcode, inst.Operand1)
		}
		return inst.Opcode.String() + " " + p.FormatCommand(cmd)
	case OpConvert:
		return inst.Opcode.String() + " " + ValueKind(inst.Operand1).String()
	}

	switch inst.Opcode.OperandCount() {
	case 1:
		return fmt.Sprintf("%s %d", inst.Opcode, inst.Operand1)
	case 2:
		return fmt.Sprintf("%s %d %d", inst.Opcode, inst.Operand1, inst.Operand2)
	}
	return inst.Opcode.String()
}

func (p *Program) FormatCommand(cmd CommandCall) string {
	name, _ := p.StringContent(cmd.NameStringID)
	s := name
	for _, arg := range cmd.ArgValueIDs {
		v, _ := p.Value(arg)
		s += " " + p.FormatValue(v)
	}
	return s
}

// Disassemble writes a listing of the tables and instructions of the program.
func (p *Program) Disassemble(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "strings (%d):\n", len(p.strings))
	for _, id := range p.stringOrder {
		fmt.Fprintf(bw, "\t%04d %s\n", id, strconv.Quote(p.strings[id]))
	}

	fmt.Fprintf(bw, "values (%d):\n", len(p.values))
	for id, v := range p.values {
		fmt.Fprintf(bw, "\t%04d %s %s\n", id, v.Kind, p.FormatValue(v))
	}

	fmt.Fprintf(bw, "definitions (%d):\n", len(p.definitions))
	for _, def := range p.definitions {
		key, _ := p.StringContent(def.KeyStringID)
		value, _ := p.StringContent(def.ValueStringID)
		fmt.Fprintf(bw, "\t%s = %s\n", key, strconv.Quote(value))
	}

	fmt.Fprintf(bw, "commands (%d):\n", len(p.commands))
	for id, cmd := range p.commands {
		fmt.Fprintf(bw, "\t%04d %s\n", id, p.FormatCommand(cmd))
	}

	fmt.Fprintf(bw, "scenes (%d):\n", len(p.scenes))
	for _, scene := range p.scenes {
		name, _ := p.StringContent(scene.NameStringID)
		fmt.Fprintf(bw, "\t%s -> label %d\n", name, scene.LabelID)
	}

	fmt.Fprintf(bw, "instructions (%d):\n", len(p.Instructions))
	for i, inst := range p.Instructions {
		fmt.Fprintf(bw, "\t%04d %s\n", i, p.FormatInstruction(inst))
	}

	return bw.Flush()
}
