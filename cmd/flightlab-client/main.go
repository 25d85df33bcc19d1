package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/flightlab-io/flightlab/cmd/flightlab-client/app"
)

func main() {
	app.NewApp().Run()
}
