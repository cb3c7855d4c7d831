package bytecode

import (
	"math/rand"
)

const (
	FORMAT_VERSION = 3
	MAGIC          = "OPDA"
)

type Definition struct {
	KeyStringID   uint32 `json:"keyStringID"`
	ValueStringID uint32 `json:"valueStringID"`
}

type Scene struct {
	NameStringID uint32 `json:"nameStringID"`
	LabelID      uint32 `json:"labelID"`
}

// Program is the output of the code generator, its tables are filled incrementally across all the
// compiled files. The ids of strings, values and commands are dense and assigned in registration order.
type Program struct {
	strings     []string //string id -> content
	stringIDs   map[string]uint32
	stringOrder []uint32 //serialization order of the string table

	values   []Value
	valueIDs map[Value]uint32

	definitions    []Definition
	definitionKeys map[uint32]struct{}

	commands   []CommandCall
	commandIDs map[string]uint32

	scenes     []Scene
	sceneNames map[uint32]struct{}

	labelCount   uint32
	Instructions []Instruction
}

func NewProgram() *Program {
	return &Program{
		stringIDs:      map[string]uint32{},
		valueIDs:       map[Value]uint32{},
		definitionKeys: map[uint32]struct{}{},
		commandIDs:     map[string]uint32{},
		sceneNames:     map[uint32]struct{}{},
	}
}

// RegisterString interns a string, the id of the first registration is always returned.
func (p *Program) RegisterString(s string) uint32 {
	if id, ok := p.stringIDs[s]; ok {
		return id
	}
	id := uint32(len(p.strings))
	p.strings = append(p.strings, s)
	p.stringIDs[s] = id
	p.stringOrder = append(p.stringOrder, id)
	return id
}

func (p *Program) LookupString(s string) (uint32, bool) {
	id, ok := p.stringIDs[s]
	return id, ok
}

// StringContent returns the content of a registered string.
func (p *Program) StringContent(id uint32) (string, bool) {
	if int(id) >= len(p.strings) {
		return "", false
	}
	return p.strings[id], true
}

// RegisterValue interns a value, structurally equal values share the same id.
func (p *Program) RegisterValue(v Value) uint32 {
	if id, ok := p.valueIDs[v]; ok {
		return id
	}
	id := uint32(len(p.values))
	p.values = append(p.values, v)
	p.valueIDs[v] = id
	return id
}

func (p *Program) Value(id uint32) (Value, bool) {
	if int(id) >= len(p.values) {
		return Value{}, false
	}
	return p.values[id], true
}

// RegisterCommand interns a command call, structurally equal calls share the same id.
func (p *Program) RegisterCommand(c CommandCall) uint32 {
	key := c.key()
	if id, ok := p.commandIDs[key]; ok {
		return id
	}
	id := uint32(len(p.commands))
	c.ArgValueIDs = append([]uint32{}, c.ArgValueIDs...)
	p.commands = append(p.commands, c)
	p.commandIDs[key] = id
	return id
}

func (p *Program) Command(id uint32) (CommandCall, bool) {
	if int(id) >= len(p.commands) {
		return CommandCall{}, false
	}
	return p.commands[id], true
}

// NextLabel allocates a new label id.
func (p *Program) NextLabel() uint32 {
	id := p.labelCount
	p.labelCount++
	return id
}

func (p *Program) LabelCount() uint32 {
	return p.labelCount
}

func (p *Program) HasDefinition(keyID uint32) bool {
	_, ok := p.definitionKeys[keyID]
	return ok
}

// AddDefinition adds a definition, it returns false if the key is already defined.
func (p *Program) AddDefinition(keyID, valueID uint32) bool {
	if p.HasDefinition(keyID) {
		return false
	}
	p.definitionKeys[keyID] = struct{}{}
	p.definitions = append(p.definitions, Definition{KeyStringID: keyID, ValueStringID: valueID})
	return true
}

func (p *Program) HasScene(nameID uint32) bool {
	_, ok := p.sceneNames[nameID]
	return ok
}

// AddScene registers the entry label of a scene, it returns false if the scene is already registered.
func (p *Program) AddScene(nameID, labelID uint32) bool {
	if p.HasScene(nameID) {
		return false
	}
	p.sceneNames[nameID] = struct{}{}
	p.scenes = append(p.scenes, Scene{NameStringID: nameID, LabelID: labelID})
	return true
}

func (p *Program) Emit(op Opcode, operands ...uint32) int {
	p.Instructions = append(p.Instructions, MakeInstruction(op, operands...))
	return len(p.Instructions) - 1
}

// ShuffleStrings randomizes the serialization order of the string table, ids are left unchanged.
func (p *Program) ShuffleStrings(r *rand.Rand) {
	r.Shuffle(len(p.stringOrder), func(i, j int) {
		p.stringOrder[i], p.stringOrder[j] = p.stringOrder[j], p.stringOrder[i]
	})
}

// StringTable returns the string ids in serialization order.
func (p *Program) StringTable() []uint32 {
	return append([]uint32(nil), p.stringOrder...)
}

func (p *Program) Strings() []string {
	return append([]string(nil), p.strings...)
}

func (p *Program) Values() []Value {
	return append([]Value(nil), p.values...)
}

func (p *Program) Definitions() []Definition {
	return append([]Definition(nil), p.definitions...)
}

func (p *Program) Commands() []CommandCall {
	return append([]CommandCall(nil), p.commands...)
}

func (p *Program) Scenes() []Scene {
	return append([]Scene(nil), p.scenes...)
}

type Stats struct {
	InstructionCount int `json:"instructionCount"`
	CommandCount     int `json:"commandCount"`
	DefinitionCount  int `json:"definitionCount"`
	SceneCount       int `json:"sceneCount"`
	StringCount      int `json:"stringCount"`
	ValueCount       int `json:"valueCount"`
}

func (p *Program) Stats() Stats {
	return Stats{
		InstructionCount: len(p.Instructions),
		CommandCount:     len(p.commands),
		DefinitionCount:  len(p.definitions),
		SceneCount:       len(p.scenes),
		StringCount:      len(p.strings),
		ValueCount:       len(p.values),
	}
}
