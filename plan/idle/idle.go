// Copyright 2018 Brian Starkey <stark3y@gmail.com>

// Package idle is the do-nothing fallback. On the ground it parks the
// vehicle: simple control mode, throttle off. In the air it means the
// planner ran out of things to do, so it asks for a circle hold over the
// current position.
package idle

import (
	"github.com/rs/zerolog"

	"github.com/usedbytes/mission/plan"
	"github.com/usedbytes/mission/props"
)

const TaskType = "idle"

const (
	SafeMode = "basic"
	DefaultCircleTask = "circle"
)

type Task struct {
	plan.Base

	task *props.Node
	ap *props.Node
	engine *props.Node

	sched plan.Scheduler
	circle string
	savedMode string

	log zerolog.Logger
}

func NewTask(cfg plan.Config, tree *props.Tree, sched plan.Scheduler, log zerolog.Logger) (*Task, error) {
	base, err := plan.NewBase(cfg)
	if err != nil {
		return nil, err
	}

	circle := cfg.GetString("circle_task")
	if circle == "" {
		circle = DefaultCircleTask
	}

	return &Task{
		Base: base,
		task: tree.Node("/task"),
		ap: tree.Node("/autopilot"),
		engine: tree.Node("/controls/engine"),
		sched: sched,
		circle: circle,
		log: log.With().Str("task", base.Name()).Logger(),
	}, nil
}

func (t *Task) Activate() {
	t.SetActive(true)

	t.savedMode = t.ap.GetString("mode")

	// On the ground use a mode that leaves the throttle alone, and idle
	// the engine.
	if !t.task.GetBool("is_airborne") {
		t.ap.SetString("mode", SafeMode)
		t.engine.SetFloat("throttle", 0.0)
	}
}

func (t *Task) Update(dt float64) bool {
	if !t.Active() {
		return false
	}

	if t.task.GetBool("is_airborne") {
		if err := t.sched.RequestPriorityTask(t.circle); err != nil {
			t.log.Warn().Err(err).Str("circle_task", t.circle).Msg("circle hold request failed")
		}
	}

	return true
}

func (t *Task) IsComplete() bool {
	return false
}

func (t *Task) Close() {
	t.ap.SetString("mode", t.savedMode)
	t.SetActive(false)
}

// CircleTask is the name of the task requested when airborne.
func (t *Task) CircleTask() string {
	return t.circle
}

// SavedMode is the autopilot mode captured by the last Activate.
func (t *Task) SavedMode() string {
	return t.savedMode
}
