//go:build unix

package config

import (
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const (
	UNIX = true
)

func targetSpecificInit() {
	// HOME

	HOME, err := os.UserHomeDir()
	if err == nil {
		if HOME[len(HOME)-1] != '/' {
			HOME += "/"
		}
		USER_HOME = HOME
	}

	// FORCE COLOR

	if s, ok := os.LookupEnv("FORCE_COLOR"); ok {
		FORCE_COLOR = len(s) != 0 && s != "false" && s != "0"
	}

	//TERMCOLOR

	TRUECOLOR_COLORTERM = os.Getenv("COLORTERM") == "truecolor"

	//NO_COLOR

	if s, ok := os.LookupEnv("NO_COLOR"); ok {
		NO_COLOR = len(s) != 0 && s != "false" && s != "0"
	}

	//TERM

	termVar := os.Getenv("TERM")
	if strings.Contains(termVar, "256color") {
		TERM_256COLOR_CAPABLE = true
	}

	STDERR_IS_TERMINAL = term.IsTerminal(int(os.Stderr.Fd()))

	//

	SHOULD_COLORIZE = !NO_COLOR && (FORCE_COLOR || (STDERR_IS_TERMINAL && (TRUECOLOR_COLORTERM || TERM_256COLOR_CAPABLE)))
}

// ColorProfile returns the color profile used to colorize the output of the CLI.
func ColorProfile() termenv.Profile {
	switch {
	case !SHOULD_COLORIZE:
		return termenv.Ascii
	case TRUECOLOR_COLORTERM:
		return termenv.TrueColor
	case TERM_256COLOR_CAPABLE:
		return termenv.ANSI256
	default:
		return termenv.ANSI
	}
}
