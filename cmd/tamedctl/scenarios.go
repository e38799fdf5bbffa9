package main

import (
	"context"
	"errors"
	"time"

	"github.com/tamed-go/tamed"
)

// scenarioFunc runs one named demonstration scenario under the settings
// decoded from the scenario config file, returning a report of what each
// scheduled task did.
type scenarioFunc func(ctx context.Context, settings ScenarioSettings) ScenarioReport

var scenarios = map[string]scenarioFunc{
	"basic":    runBasicScenario,
	"zombie":   runZombieScenario,
	"policies": runPoliciesScenario,
}

func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for n := range scenarios {
		names = append(names, n)
	}
	return names
}

func scopeOptions(settings ScenarioSettings) []tamed.Option {
	var opts []tamed.Option
	if settings.ErrorMode == "ignore" {
		opts = append(opts, tamed.WithErrorMode(tamed.ErrorIgnore))
	} else {
		opts = append(opts, tamed.WithErrorMode(tamed.ErrorCancel))
	}
	if settings.ExitMode == "cancel" {
		opts = append(opts, tamed.WithExitMode(tamed.ExitCancel))
	}
	if settings.MaxConcurrency > 0 {
		opts = append(opts, tamed.WithMaxConcurrency(settings.MaxConcurrency))
	}
	if settings.TimeoutMS > 0 {
		opts = append(opts, tamed.WithTimeout(time.Duration(settings.TimeoutMS)*time.Millisecond))
	}
	return opts
}

func runBasicScenario(ctx context.Context, settings ScenarioSettings) ScenarioReport {
	start := time.Now()
	s := tamed.Enter(ctx, scopeOptions(settings)...)

	greet := tamed.New(func(ctx context.Context) (string, error) {
		select {
		case <-time.After(40 * time.Millisecond):
			return "hello", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	res := tamed.Schedule(s, greet, nil)

	rep := ScenarioReport{Scenario: "basic"}
	scopeErr := s.Close(context.Background())
	_, taskErr := res.Value()
	rep.Tasks = append(rep.Tasks, taskReportFrom("greeting", res, taskErr))
	if scopeErr != nil {
		rep.Error = scopeErr.Error()
	}
	rep.Elapsed = time.Since(start)
	return rep
}

func runZombieScenario(ctx context.Context, settings ScenarioSettings) ScenarioReport {
	start := time.Now()
	settings.ExitMode = "cancel"
	s := tamed.Enter(ctx, scopeOptions(settings)...)

	loop := tamed.New(func(ctx context.Context) (struct{}, error) {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return struct{}{}, ctx.Err()
			}
		}
	})
	res := tamed.Schedule(s, loop, nil)
	time.Sleep(20 * time.Millisecond)

	scopeErr := s.Close(context.Background())
	rep := ScenarioReport{Scenario: "zombie", Elapsed: time.Since(start)}
	_, taskErr := res.Value()
	rep.Tasks = append(rep.Tasks, taskReportFrom("runaway-loop", res, taskErr))
	if scopeErr != nil {
		rep.Error = scopeErr.Error()
	}
	return rep
}

func runPoliciesScenario(ctx context.Context, settings ScenarioSettings) ScenarioReport {
	start := time.Now()
	s := tamed.Enter(ctx, scopeOptions(settings)...)

	failing := tamed.New(func(context.Context) (struct{}, error) {
		time.Sleep(15 * time.Millisecond)
		return struct{}{}, errors.New("boom")
	})
	slow := tamed.New(func(ctx context.Context) (struct{}, error) {
		select {
		case <-time.After(100 * time.Millisecond):
			return struct{}{}, nil
		case <-ctx.Done():
			return struct{}{}, ctx.Err()
		}
	})
	failRes := tamed.Schedule(s, failing, nil)
	slowRes := tamed.Schedule(s, slow, nil)

	scopeErr := s.Close(context.Background())
	rep := ScenarioReport{Scenario: "policies", Elapsed: time.Since(start)}
	_, ferr := failRes.Value()
	_, serr := slowRes.Value()
	rep.Tasks = append(rep.Tasks, taskReportFrom("failing", failRes, ferr))
	rep.Tasks = append(rep.Tasks, taskReportFrom("slow", slowRes, serr))
	if scopeErr != nil {
		rep.Error = scopeErr.Error()
	}
	return rep
}

func taskReportFrom(name string, cancelled interface{ Cancelled() bool }, err error) TaskReport {
	rep := TaskReport{Name: name, Cancelled: cancelled.Cancelled()}
	if err != nil {
		rep.Error = err.Error()
	}
	return rep
}
