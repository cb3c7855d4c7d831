package main

import (
	"os"
	"strconv"

	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

var (
	predictSourceFiles = predict.Files("*.opd")
	predictAnyFile     = predict.Files("*")

	completer = CreateCompleter(func(c *Completer) *complete.Command {
		buildFlags := map[string]complete.Predictor{
			"s":           predictSourceFiles,
			"e":           predictAnyFile,
			"t":           complete.PredictFunc(c.predictNothingAfterSwitch),
			"c":           complete.PredictFunc(c.predictNothingAfterSwitch),
			"a":           complete.PredictFunc(c.predictNothingAfterSwitch),
			"tdir":        predict.Dirs("*"),
			"ignore-hash": complete.PredictFunc(c.predictNothingAfterSwitch),
			"debug":       complete.PredictFunc(c.predictNothingAfterSwitch),
			"no-shuffle":  complete.PredictFunc(c.predictNothingAfterSwitch),
			"seed":        predict.Nothing,
			"v":           complete.PredictFunc(c.predictNothingAfterSwitch),
		}

		return &complete.Command{
			Sub: map[string]*complete.Command{
				BUILD_SUBCMD: {
					Flags: buildFlags,
				},
				WATCH_SUBCMD: {
					Flags: buildFlags,
				},
				DUMP_SUBCMD: {
					Flags: map[string]complete.Predictor{
						"json": predict.Nothing,
					},
					Args: predictAnyFile,
				},
				HELP_SUBCMD: {
					Args: predict.Set(SUBCOMMANDS),
				},
				INSTALL_COMPLETIONS_SUBCMD:   {},
				UNINSTALL_COMPLETIONS_SUBCMD: {},
			},
		}
	})
)

type Completer struct {
	*complete.Command
	currentCompLine  string
	currentCompPoint int //-1 if not retrieved
}

func CreateCompleter(create func(c *Completer) *complete.Command) *Completer {
	c := &Completer{currentCompPoint: -1}
	c.Command = create(c)
	return c
}

func (c *Completer) Complete(name string) {
	c.currentCompLine = os.Getenv("COMP_LINE")
	c.currentCompPoint, _ = strconv.Atoi(os.Getenv("COMP_POINT")) //ignore error because .Complete will also check the value

	if c.currentCompPoint > len(c.currentCompLine) {
		c.currentCompPoint = len(c.currentCompLine)
	}

	c.Command.Complete(name)
}

func (c *Completer) beforeCursorPoint() string {
	if c.currentCompPoint < 0 {
		return ""
	}
	return c.currentCompLine[:c.currentCompPoint]
}

// predictNothingAfterSwitch predicts source files after a switch flag, a switch does not
// accept any value.
func (c *Completer) predictNothingAfterSwitch(prefix string) (results []string) {
	s := c.beforeCursorPoint()
	if s == "" {
		return
	}

	switch s[len(s)-1] {
	case '=':
		return
	default:
		return predictSourceFiles.Predict(prefix)
	}
}
