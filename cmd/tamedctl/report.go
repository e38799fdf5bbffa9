package main

import "time"

// TaskReport captures one scheduled task's outcome for a scenario run.
type TaskReport struct {
	Name     string        `msgpack:"name" toml:"name"`
	Duration time.Duration `msgpack:"duration_ns" toml:"duration_ns"`
	Error    string        `msgpack:"error,omitempty" toml:"error,omitempty"`
	Cancelled bool         `msgpack:"cancelled" toml:"cancelled"`
}

// ScenarioReport is a scenario run's full result, rendered as text by the
// run subcommand or encoded as msgpack by run --format msgpack.
type ScenarioReport struct {
	Scenario string        `msgpack:"scenario"`
	Elapsed  time.Duration `msgpack:"elapsed_ns"`
	Tasks    []TaskReport  `msgpack:"tasks"`
	Error    string        `msgpack:"error,omitempty"`
}
