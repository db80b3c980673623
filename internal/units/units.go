// Package units provides shared constants and conversion for IMU sample
// units. The engine works in rad/s for rotation rate and g for user
// acceleration; samplers converting from other device conventions go
// through this package.
package units

import "math"

// Rotation rate unit constants.
const (
	RadiansPerSecond = "radps"
	DegreesPerSecond = "degps"
)

// Acceleration unit constants.
const (
	GravityUnits        = "g"
	MetersPerSecSquared = "mps2"
	standardGravityMps2 = 9.80665
)

// ValidRotationUnits contains all valid rotation rate unit values.
var ValidRotationUnits = []string{RadiansPerSecond, DegreesPerSecond}

// ValidAccelerationUnits contains all valid acceleration unit values.
var ValidAccelerationUnits = []string{GravityUnits, MetersPerSecSquared}

// IsValidRotationUnit checks if the given unit is a valid rotation rate unit.
func IsValidRotationUnit(unit string) bool {
	for _, v := range ValidRotationUnits {
		if unit == v {
			return true
		}
	}
	return false
}

// IsValidAccelerationUnit checks if the given unit is a valid acceleration unit.
func IsValidAccelerationUnit(unit string) bool {
	for _, v := range ValidAccelerationUnits {
		if unit == v {
			return true
		}
	}
	return false
}

// ToRadiansPerSecond converts a rotation rate in the given units to rad/s.
// Unknown units pass through unchanged.
func ToRadiansPerSecond(value float64, fromUnits string) float64 {
	switch fromUnits {
	case DegreesPerSecond:
		return value * math.Pi / 180
	default:
		return value
	}
}

// ToGravityUnits converts an acceleration in the given units to g.
// Unknown units pass through unchanged.
func ToGravityUnits(value float64, fromUnits string) float64 {
	switch fromUnits {
	case MetersPerSecSquared:
		return value / standardGravityMps2
	default:
		return value
	}
}
