package ports

import "time"

// Policy holds the scheduling and recovery knobs of the processing context.
type Policy struct {
	// IdleSleep is the poll interval of the processing loop between cadence
	// checks.
	IdleSleep time.Duration `yaml:"idle_sleep"`

	// StageRecovery selects how a stage is recovered after a failure:
	// "reset" reinitializes it via Reset, "keep" retains its last good state.
	StageRecovery string `yaml:"stage_recovery"`
}
