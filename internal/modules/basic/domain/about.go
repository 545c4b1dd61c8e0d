package domain

import (
	"fmt"
	"time"
)

// About describes the running bot.
type About struct {
	Name      string
	Version   string
	GoVersion string
	Uptime    time.Duration
}

// FormatUptime renders an uptime as "3d 4h 5m", dropping leading zero units.
func FormatUptime(d time.Duration) string {
	total := int(d.Minutes())
	days, hours, minutes := total/(24*60), (total/60)%24, total%60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
