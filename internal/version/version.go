package version

// Set via -ldflags "-X github.com/keshon/accountability-bot/internal/version.Version=..."
var (
	AppName   = "accountability-bot"
	Version   = "dev"
	BuildDate = ""
)
