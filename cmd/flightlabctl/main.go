package main

import (
	"github.com/flightlab-io/flightlab/cmd/flightlabctl/app"
)

func main() {
	app.NewApp().Run()
}
