package main

import (
	"flag"
	"fmt"
	"io"
	"sort"

	"github.com/colinator27/open-day-dialogue-compiler/internal/bytecode"
	"github.com/goccy/go-json"
	"github.com/maruel/natural"
)

type programExport struct {
	Version      int                    `json:"version"`
	Stats        bytecode.Stats         `json:"stats"`
	Strings      []string               `json:"strings"`
	StringTable  []uint32               `json:"stringTable"`
	Values       []valueExport          `json:"values"`
	Definitions  map[string]string      `json:"definitions"`
	Commands     []string               `json:"commands"`
	Scenes       []sceneExport          `json:"scenes"`
	Instructions []bytecode.Instruction `json:"instructions"`
	Listing      []string               `json:"listing"`
}

type valueExport struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

type sceneExport struct {
	Name    string `json:"name"`
	LabelID uint32 `json:"labelID"`
}

func DumpProgram(mainSubCommand string, mainSubCommandArgs []string, outW, errW io.Writer) (exitCode int) {
	flags := flag.NewFlagSet(mainSubCommand, flag.ContinueOnError)
	flags.SetOutput(errW)

	var printJSON bool
	flags.BoolVar(&printJSON, "json", false, "print the content of the binary as JSON")

	if showHelp(flags, mainSubCommandArgs, outW) {
		return
	}

	moveFlagsStart(mainSubCommandArgs)

	if err := flags.Parse(mainSubCommandArgs); err != nil {
		return ERROR_STATUS_CODE
	}

	path := flags.Arg(0)
	if path == "" {
		fmt.Fprintln(errW, "missing binary path")
		return ERROR_STATUS_CODE
	}

	data, err := readInputFile(path)
	if err != nil {
		fmt.Fprintln(errW, err)
		return ERROR_STATUS_CODE
	}

	program, err := bytecode.DecodeBytes(data)
	if err != nil {
		fmt.Fprintf(errW, "%s: %s\n", path, err)
		return ERROR_STATUS_CODE
	}

	if !printJSON {
		if err := program.Disassemble(outW); err != nil {
			fmt.Fprintln(errW, err)
			return ERROR_STATUS_CODE
		}
		return
	}

	serialized, err := json.MarshalIndent(exportProgram(program), "", "  ")
	if err != nil {
		fmt.Fprintln(errW, err)
		return ERROR_STATUS_CODE
	}
	fmt.Fprintf(outW, "%s\n", serialized)
	return
}

func exportProgram(program *bytecode.Program) programExport {
	export := programExport{
		Version:      bytecode.FORMAT_VERSION,
		Stats:        program.Stats(),
		Strings:      program.Strings(),
		StringTable:  program.StringTable(),
		Values:       []valueExport{},
		Definitions:  map[string]string{},
		Commands:     []string{},
		Scenes:       []sceneExport{},
		Instructions: program.Instructions,
	}

	for _, v := range program.Values() {
		export.Values = append(export.Values, valueExport{Kind: v.Kind.String(), Text: program.FormatValue(v)})
	}

	for _, def := range program.Definitions() {
		key, _ := program.StringContent(def.KeyStringID)
		value, _ := program.StringContent(def.ValueStringID)
		export.Definitions[key] = value
	}

	for _, cmd := range program.Commands() {
		export.Commands = append(export.Commands, program.FormatCommand(cmd))
	}

	for _, scene := range program.Scenes() {
		name, _ := program.StringContent(scene.NameStringID)
		export.Scenes = append(export.Scenes, sceneExport{Name: name, LabelID: scene.LabelID})
	}

	sort.Slice(export.Scenes, func(i, j int) bool {
		return natural.Less(export.Scenes[i].Name, export.Scenes[j].Name)
	})

	for _, inst := range program.Instructions {
		export.Listing = append(export.Listing, program.FormatInstruction(inst))
	}

	return export
}
