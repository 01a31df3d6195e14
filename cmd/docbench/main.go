// Package main is the entry point for docbench.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/docbench/cmd/docbench/app"
)

func main() {
	app.NewApp().Run()
}
