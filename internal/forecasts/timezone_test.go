package forecasts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skysense/internal/types"
)

func TestFixedResolver(t *testing.T) {
	assert.Equal(t, time.Local, FixedResolver{}.Location(nil))

	zone := time.FixedZone("test", 3600)
	assert.Equal(t, zone, FixedResolver{Zone: zone}.Location(&types.Coordinates{Lat: 1, Lon: 2}))
}

func TestTZFResolver_FallbackWithoutCoordinates(t *testing.T) {
	r := NewTZFResolver(time.UTC, nil)
	assert.Equal(t, time.UTC, r.Location(nil))
}

func TestTZFResolver_LooksUpZone(t *testing.T) {
	if testing.Short() {
		t.Skip("loads the timezone boundary data set")
	}
	r := NewTZFResolver(time.UTC, nil)

	name, err := r.Name(51.5074, -0.1278)
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", name)

	loc := r.Location(&types.Coordinates{Lat: 40.4168, Lon: -3.7038})
	assert.Equal(t, "Europe/Madrid", loc.String())
}
