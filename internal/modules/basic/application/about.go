package application

import (
	"runtime"
	"runtime/debug"
	"time"

	"github.com/kasseta-bot/kasseta/internal/modules/basic/domain"
)

// AboutInteractor reports what is running and for how long.
type AboutInteractor struct {
	startedAt time.Time
	now       func() time.Time
	version   string
}

// NewAboutInteractor creates an AboutInteractor that counts uptime from startedAt.
func NewAboutInteractor(startedAt time.Time, now func() time.Time) *AboutInteractor {
	if now == nil {
		now = time.Now
	}
	return &AboutInteractor{
		startedAt: startedAt,
		now:       now,
		version:   buildVersion(),
	}
}

// Execute returns the current about information.
func (a *AboutInteractor) Execute() *domain.About {
	return &domain.About{
		Name:      "kasseta",
		Version:   a.version,
		GoVersion: runtime.Version(),
		Uptime:    a.now().Sub(a.startedAt),
	}
}

func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "dev"
	}
	return info.Main.Version
}
