//go:build !integration

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustRegisterWith(t *testing.T) {
	t.Run("should expose the build and redemption series on a private registry", func(t *testing.T) {
		// Arrange
		reg := prometheus.NewRegistry()
		MustRegisterWith(reg)

		// Act
		SetBuildInfo("", "", time.Unix(1_800_000_000, 0))
		IncRedemption("ok")
		families, err := reg.Gather()

		// Assert
		require.NoError(t, err)
		names := make(map[string]bool, len(families))
		for _, mf := range families {
			names[mf.GetName()] = true
		}
		assert.True(t, names["discount_pin_build_info"])
		assert.True(t, names["discount_pin_start_time_seconds"])
		assert.True(t, names["pin_redemptions_total"])
	})

	t.Run("should refuse registering the same collectors twice", func(t *testing.T) {
		// Arrange
		reg := prometheus.NewRegistry()
		MustRegisterWith(reg)

		// Act & Assert
		assert.Panics(t, func() { MustRegisterWith(reg) })
	})

	t.Run("should hand out a copy of the queued collectors", func(t *testing.T) {
		// Arrange
		first := Collectors()

		// Act
		first[0] = nil

		// Assert
		assert.NotNil(t, Collectors()[0])
		assert.Len(t, Collectors(), len(first))
	})
}
