package data

import (
	_ "embed"
)

// ExampleSeed is a seed document creating two tables.
//
//go:embed seed/example.yaml
var ExampleSeed string
