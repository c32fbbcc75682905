// Copyright 2018 Brian Starkey <stark3y@gmail.com>
package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/usedbytes/mission/config"
	"github.com/usedbytes/mission/events"
	"github.com/usedbytes/mission/plan"
	"github.com/usedbytes/mission/plan/circle"
	"github.com/usedbytes/mission/plan/home"
	"github.com/usedbytes/mission/plan/idle"
	"github.com/usedbytes/mission/plan/waypoint"
	"github.com/usedbytes/mission/props"
)

var ErrUnknownType = errors.New("unknown task type")

func newTask(node config.TaskNode, p *plan.Planner, tree *props.Tree, ev *events.Log, log zerolog.Logger) (plan.Task, error) {
	switch node.Type() {
	case home.TaskType:
		return home.NewTask(node, tree, ev, log)
	case idle.TaskType:
		return idle.NewTask(node, tree, p, log)
	case circle.TaskType:
		return circle.NewTask(node, tree, log)
	case waypoint.TaskType:
		return waypoint.NewTask(node, tree, ev, log)
	}

	return nil, fmt.Errorf("%w '%s'", ErrUnknownType, node.Type())
}

// buildPlanner constructs every task in the mission and schedules them.
func buildPlanner(m *config.Mission, tree *props.Tree, ev *events.Log, log zerolog.Logger) (*plan.Planner, error) {
	p := plan.NewPlanner(tree, log)
	p.SetEventLog(ev)

	for _, node := range m.Tasks {
		task, err := newTask(node, p, tree, ev, log)
		if err != nil {
			return nil, fmt.Errorf("task '%s': %w", node.Name(), err)
		}

		if err := p.AddTask(task); err != nil {
			return nil, err
		}
	}

	if m.Idle == "" {
		return nil, plan.ErrNoIdleTask
	}
	if err := p.SetIdleTask(m.Idle); err != nil {
		return nil, err
	}

	for _, name := range m.Global {
		if err := p.AddGlobalTask(name); err != nil {
			return nil, err
		}
	}

	// The idle task's circle hold must exist before anything flies.
	if it, ok := p.IdleTask().(*idle.Task); ok {
		if err := p.CheckSchedulable(it.CircleTask()); err != nil {
			return nil, fmt.Errorf("idle '%s' circle_task: %w", m.Idle, err)
		}
	}

	for _, name := range m.Sequential {
		if err := p.Enqueue(name); err != nil {
			return nil, err
		}
	}

	return p, nil
}
