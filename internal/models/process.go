package models

// ProcessInfo is a snapshot of one live OS process. It is never cached:
// the target app can be restarted behind our back.
type ProcessInfo struct {
	Name string
	Exe  string
	PID  int32
}
