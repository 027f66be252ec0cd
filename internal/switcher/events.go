package switcher

import "github.com/j-veylop/antigravity-switcher/internal/models"

// Stage is a step of a switch.
type Stage int

const (
	StageIdle Stage = iota
	StageStopping
	StageSwapping
	StageStarting
	StageRefreshing
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageStopping:
		return "stopping"
	case StageSwapping:
		return "swapping"
	case StageStarting:
		return "starting"
	case StageRefreshing:
		return "refreshing"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// EventType defines the type of coordinator event.
type EventType int

const (
	// EventSwitchStarted is sent before the app is stopped.
	EventSwitchStarted EventType = iota
	// EventAccountSwitched is sent after the refresh stage. AccountID is the
	// new active account; Err holds a refresh failure, if any.
	EventAccountSwitched
	// EventSwitchFailed carries the failed stage and its error.
	EventSwitchFailed
	// EventStageChanged is sent as each stage begins.
	EventStageChanged
	EventRefreshRequested
	EventQuotaRefreshed
	EventQuotaFailed
	EventAppStarted
	EventAppStopped
	// EventAppFailed means a StartApp or StopApp command failed.
	EventAppFailed
)

// Event is emitted on the coordinator's event channel.
type Event struct {
	Err       error
	Quota     *models.Quota
	AccountID string
	Type      EventType
	Stage     Stage
}

// CommandType selects what a Command does.
type CommandType int

const (
	CmdSwitchNext CommandType = iota
	CmdSwitchTo
	CmdRefreshCurrent
	CmdStartApp
	CmdStopApp
)

func (c CommandType) String() string {
	switch c {
	case CmdSwitchNext:
		return "switch-next"
	case CmdSwitchTo:
		return "switch-to"
	case CmdRefreshCurrent:
		return "refresh-current"
	case CmdStartApp:
		return "start-app"
	case CmdStopApp:
		return "stop-app"
	default:
		return "unknown"
	}
}

// Command is a request queued by a presentation layer.
type Command struct {
	// AccountID is the target of CmdSwitchTo.
	AccountID string
	Type      CommandType
}
