package commands

import "github.com/fatih/color"

var (
	success = color.New(color.FgGreen)
	warning = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
	dim     = color.New(color.Faint)
	bold    = color.New(color.Bold)
)
