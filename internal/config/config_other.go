//go:build !unix

package config

import (
	"os"

	"github.com/muesli/termenv"
)

const (
	UNIX = false
)

func targetSpecificInit() {
	USER_HOME, _ = os.UserHomeDir()

	if s, ok := os.LookupEnv("NO_COLOR"); ok {
		NO_COLOR = len(s) != 0 && s != "false" && s != "0"
	}
	SHOULD_COLORIZE = false
}

func ColorProfile() termenv.Profile {
	return termenv.Ascii
}
