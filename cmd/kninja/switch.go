package main

import (
	"fmt"
	"os"
	"strings"
)

// switchMode is the value of an auto|on|off flag such as --ui or --color.
type switchMode string

const (
	switchAuto switchMode = "auto"
	switchOn   switchMode = "on"
	switchOff  switchMode = "off"
)

func parseSwitch(flag, value string) (switchMode, error) {
	switch m := switchMode(strings.TrimSpace(strings.ToLower(value))); m {
	case "":
		return switchAuto, nil
	case switchAuto, switchOn, switchOff:
		return m, nil
	default:
		return "", fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
	}
}

// resolve decides an auto switch by whether out is a terminal.
func (m switchMode) resolve(out *os.File) bool {
	switch m {
	case switchOn:
		return true
	case switchOff:
		return false
	default:
		return isTerminal(out)
	}
}

func shouldUseTUI(mode switchMode) bool {
	return mode.resolve(os.Stdout)
}

// useColor also honours NO_COLOR when the mode is auto.
func useColor(mode switchMode) bool {
	if mode == switchAuto && os.Getenv("NO_COLOR") != "" {
		return false
	}
	return mode.resolve(os.Stdout)
}
