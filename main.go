package main

import "github.com/shipsafe/shipsafe/cmd/shipsafe"

func main() { shipsafe.Execute() }
