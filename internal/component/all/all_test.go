package all

import (
	"testing"

	"github.com/stretchr/testify/assert"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/component"
)

func TestEveryKindIsRegistered(t *testing.T) {
	assert.ElementsMatch(t, []v1.Kind{
		v1.KindApp,
		v1.KindBadger,
		v1.KindCommandLine,
		v1.KindLight,
		v1.KindProjector,
		v1.KindSound,
		v1.KindWindowsApp,
	}, component.Kinds())
}
