package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/flightlab-io/flightlab/cmd/flightlab-master/app"
)

func main() {
	app.NewApp().Run()
}
