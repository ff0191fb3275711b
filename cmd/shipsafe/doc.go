// Package shipsafe provides the command-line interface for ShipSafe. It wires
// configuration, logging and the scan pipeline into cobra subcommands (scan,
// serve, history, baseline, etc.).
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/shipsafe/shipsafe/cmd/shipsafe"
//	func main() { shipsafe.Execute() }
package shipsafe
