// Copyright 2018 Brian Starkey <stark3y@gmail.com>
package plan

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTask = errors.New("unknown task")
	ErrDuplicateTask = errors.New("duplicate task name")
	ErrMissingField = errors.New("missing required config field")
	ErrInvalidField = errors.New("invalid config field")
	ErrTaskFault = errors.New("task fault")
	ErrNoIdleTask = errors.New("no idle task")
)

// Task is one schedulable behaviour.
//
// Activate is called once each time the task becomes current and must save
// whatever Close needs to restore. Update is called once per control tick
// with the elapsed seconds and must not block; its return value is only a
// hint. IsComplete reports whether the task has permanently finished. Close
// is always called before a task stops being current.
//
// Tasks report problems through the state store, never by panicking. The
// Planner recovers if they do anyway.
type Task interface {
	Name() string
	Nickname() string

	Activate()
	Update(dt float64) bool
	IsComplete() bool
	Close()
}

// Scheduler is the handle tasks get for asking the Planner to run another
// task.
type Scheduler interface {
	RequestPriorityTask(name string) error
}

// Config is the configuration node a task is built from.
type Config interface {
	GetString(key string) string
}

// Base holds the identity and active flag every task carries.
type Base struct {
	name string
	nickname string
	active bool
}

// NewBase reads name and nickname from cfg. A missing name is a
// configuration fault, a missing nickname defaults to the name.
func NewBase(cfg Config) (Base, error) {
	name := cfg.GetString("name")
	if name == "" {
		return Base{}, fmt.Errorf("%w: name", ErrMissingField)
	}

	nickname := cfg.GetString("nickname")
	if nickname == "" {
		nickname = name
	}

	return Base{name: name, nickname: nickname}, nil
}

func (b *Base) Name() string {
	return b.name
}

func (b *Base) Nickname() string {
	return b.nickname
}

func (b *Base) Active() bool {
	return b.active
}

func (b *Base) SetActive(active bool) {
	b.active = active
}

// StaticConfig is a Config backed by a plain map, handy for tasks built in
// code.
type StaticConfig map[string]string

func (c StaticConfig) GetString(key string) string {
	return c[key]
}
