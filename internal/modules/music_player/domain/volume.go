package domain

// Volume bounds in percent.
const (
	MinVolumePercent     = 0
	MaxVolumePercent     = 150
	DefaultVolumePercent = 100
)

// VolumeFromPercent converts a user-facing percentage into a playback
// multiplier, failing with ErrOutOfRange outside [0, 150].
func VolumeFromPercent(percent int) (float64, error) {
	if percent < MinVolumePercent || percent > MaxVolumePercent {
		return 0, ErrOutOfRange
	}
	return float64(percent) / 100, nil
}

// VolumePercent converts a playback multiplier back into a percentage.
func VolumePercent(volume float64) int {
	return int(volume*100 + 0.5)
}
