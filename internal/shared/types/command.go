package types

// Channel method names. These must match the UI layer byte-for-byte.
const (
	MethodIsAppInstalled = "isAppInstalled"
	MethodOpenApp        = "openApp"
)

// ArgPackageName is the only argument key the bridge reads
const ArgPackageName = "packageName"

// CommandKind discriminates Command variants
type CommandKind string

const (
	CommandCheckInstalled CommandKind = "check_installed"
	CommandLaunchApp      CommandKind = "launch_app"
)

// Command is a decoded channel request. AppID may be empty; the registry
// answers false for an id it cannot resolve.
type Command struct {
	Kind  CommandKind `json:"kind"`
	AppID string      `json:"app_id"`
}

// Method returns the channel method name this command was decoded from
func (c Command) Method() string {
	switch c.Kind {
	case CommandCheckInstalled:
		return MethodIsAppInstalled
	case CommandLaunchApp:
		return MethodOpenApp
	default:
		return string(c.Kind)
	}
}

// CheckInstalled builds a presence query command
func CheckInstalled(appID string) Command {
	return Command{Kind: CommandCheckInstalled, AppID: appID}
}

// LaunchApp builds a foreground request command
func LaunchApp(appID string) Command {
	return Command{Kind: CommandLaunchApp, AppID: appID}
}
