// Package all registers every component kind with the factory.
package all

import (
	_ "github.com/flightlab-io/flightlab/internal/component/app"
	_ "github.com/flightlab-io/flightlab/internal/component/badger"
	_ "github.com/flightlab-io/flightlab/internal/component/light"
	_ "github.com/flightlab-io/flightlab/internal/component/projector"
	_ "github.com/flightlab-io/flightlab/internal/component/sound"
)
