package bytecode

import "strconv"

type Opcode byte

const (
	OpNop   Opcode = 0x00
	OpLabel Opcode = 0x01 //operand: label id

	//stack
	OpPush    Opcode = 0xA0 //operand: value id
	OpPop     Opcode = 0xA1
	OpConvert Opcode = 0xA2 //operand: value kind

	//builtin operators
	OpAdd           Opcode = 0xC0
	OpSub           Opcode = 0xC1
	OpMul           Opcode = 0xC2
	OpDiv           Opcode = 0xC3
	OpMod           Opcode = 0xC4
	OpEqual         Opcode = 0xC5
	OpNotEqual      Opcode = 0xC6
	OpGreater       Opcode = 0xC7
	OpGreaterEqual  Opcode = 0xC8
	OpLessThan      Opcode = 0xC9
	OpLessThanEqual Opcode = 0xCA
	OpNegate        Opcode = 0xCB
	OpOr            Opcode = 0xCC
	OpXor           Opcode = 0xCD
	OpAnd           Opcode = 0xCE
	OpInvert        Opcode = 0xCF

	//scene
	OpJump            Opcode = 0xB0 //operand: label id
	OpExit            Opcode = 0xB1
	OpTextRun         Opcode = 0xB2 //operand: string id
	OpCommandRun      Opcode = 0xB3 //operand: command id
	OpSetVariable     Opcode = 0xB4 //operand: variable name id, pops the value
	OpCallFunction    Opcode = 0xB5 //operand: function name id, the parameter count is on top of the stack
	OpJumpTrue        Opcode = 0xB6 //operand: label id, pops the condition
	OpJumpFalse       Opcode = 0xB7 //operand: label id, pops the condition
	OpBeginChoice     Opcode = 0xB8
	OpChoice          Opcode = 0xB9 //operands: string id, label id
	OpChoiceTrue      Opcode = 0xBA //operands: string id, label id, pops the condition
	OpChoiceSelection Opcode = 0xBB //operand: label id of the end of the choice statement

	OpDebugLine Opcode = 0xD0 //operand: source line
)

var (
	// OpcodeOperands is shared by the encoder and the decoder, the operands are not length-prefixed in the binary.
	OpcodeOperands = map[Opcode]int{
		OpNop:             0,
		OpLabel:           1,
		OpPush:            1,
		OpPop:             0,
		OpConvert:         1,
		OpAdd:             0,
		OpSub:             0,
		OpMul:             0,
		OpDiv:             0,
		OpMod:             0,
		OpEqual:           0,
		OpNotEqual:        0,
		OpGreater:         0,
		OpGreaterEqual:    0,
		OpLessThan:        0,
		OpLessThanEqual:   0,
		OpNegate:          0,
		OpOr:              0,
		OpXor:             0,
		OpAnd:             0,
		OpInvert:          0,
		OpJump:            1,
		OpExit:            0,
		OpTextRun:         1,
		OpCommandRun:      1,
		OpSetVariable:     1,
		OpCallFunction:    1,
		OpJumpTrue:        1,
		OpJumpFalse:       1,
		OpBeginChoice:     0,
		OpChoice:          2,
		OpChoiceTrue:      2,
		OpChoiceSelection: 1,
		OpDebugLine:       1,
	}

	OpcodeNames = map[Opcode]string{
		OpNop:             "Nop",
		OpLabel:           "Label",
		OpPush:            "Push",
		OpPop:             "Pop",
		OpConvert:         "Convert",
		OpAdd:             "BOAdd",
		OpSub:             "BOSub",
		OpMul:             "BOMul",
		OpDiv:             "BODiv",
		OpMod:             "BOMod",
		OpEqual:           "BOEqual",
		OpNotEqual:        "BONotEqual",
		OpGreater:         "BOGreater",
		OpGreaterEqual:    "BOGreaterEqual",
		OpLessThan:        "BOLessThan",
		OpLessThanEqual:   "BOLessThanEqual",
		OpNegate:          "BONegate",
		OpOr:              "BOOr",
		OpXor:             "BOXor",
		OpAnd:             "BOAnd",
		OpInvert:          "BOInvert",
		OpJump:            "Jump",
		OpExit:            "Exit",
		OpTextRun:         "TextRun",
		OpCommandRun:      "CommandRun",
		OpSetVariable:     "SetVariable",
		OpCallFunction:    "CallFunction",
		OpJumpTrue:        "JumpTrue",
		OpJumpFalse:       "JumpFalse",
		OpBeginChoice:     "BeginChoice",
		OpChoice:          "Choice",
		OpChoiceTrue:      "ChoiceTrue",
		OpChoiceSelection: "ChoiceSelection",
		OpDebugLine:       "DebugLine",
	}
)

func (op Opcode) String() string {
	if name, ok := OpcodeNames[op]; ok {
		return name
	}
	return "Opcode(0x" + strconv.FormatUint(uint64(op), 16) + ")"
}

func (op Opcode) IsValid() bool {
	_, ok := OpcodeOperands[op]
	return ok
}

// OperandCount returns the number of operands of the opcode, it panics if the opcode is unknown.
func (op Opcode) OperandCount() int {
	count, ok := OpcodeOperands[op]
	if !ok {
		panic(ErrUnknownOpcode)
	}
	return count
}

type Instruction struct {
	Opcode   Opcode `json:"opcode"`
	Operand1 uint32 `json:"operand1,omitempty"`
	Operand2 uint32 `json:"operand2,omitempty"`
}

// MakeInstruction creates an instruction, the number of operands should match the opcode.
func MakeInstruction(op Opcode, operands ...uint32) Instruction {
	count := op.OperandCount()
	if len(operands) != count {
		panic(ErrInvalidOperandCount)
	}

	inst := Instruction{Opcode: op}

	if count >= 1 {
		inst.Operand1 = operands[0]
	}
	if count >= 2 {
		inst.Operand2 = operands[1]
	}
	return inst
}

func (i Instruction) Operands() []uint32 {
	switch i.Opcode.OperandCount() {
	case 1:
		return []uint32{i.Operand1}
	case 2:
		return []uint32{i.Operand1, i.Operand2}
	}
	return nil
}
