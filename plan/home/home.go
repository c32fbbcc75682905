// Copyright 2018 Brian Starkey <stark3y@gmail.com>

// Package home establishes the home position from the first settled GPS fix
// and keeps the course and distance back to it up to date.
package home

import (
	"github.com/rs/zerolog"

	"github.com/usedbytes/mission/events"
	"github.com/usedbytes/mission/model"
	"github.com/usedbytes/mission/plan"
	"github.com/usedbytes/mission/props"
)

const TaskType = "home_mgr"

// A GPS fix older than this (seconds) can't set home.
const MaxGPSAge = 1.0

type Task struct {
	plan.Base

	pos *props.Node
	home *props.Node
	startup *props.Node
	gps *props.Node

	events *events.Log
	log zerolog.Logger
}

func NewTask(cfg plan.Config, tree *props.Tree, ev *events.Log, log zerolog.Logger) (*Task, error) {
	base, err := plan.NewBase(cfg)
	if err != nil {
		return nil, err
	}

	t := &Task{
		Base: base,
		pos: tree.Node("/position"),
		home: tree.Node("/task/home"),
		startup: tree.Node("/task/startup"),
		gps: tree.Node("/sensors/gps"),
		events: ev,
		log: log.With().Str("task", base.Name()).Logger(),
	}
	t.home.SetBool("valid", false)

	return t, nil
}

func (t *Task) Activate() {
	t.SetActive(true)
}

func (t *Task) Update(dt float64) bool {
	if !t.Active() {
		return false
	}

	if !t.home.GetBool("valid") {
		if t.gps.GetFloat("gps_age") < MaxGPSAge && t.gps.GetBool("settle") {
			t.setHome(model.FixAt(t.gps))
		}
		return true
	}

	here := model.CoordAt(t.pos)
	course, dist := here.CourseTo(model.CoordAt(t.home))
	t.home.SetFloat("course_deg", course)
	t.home.SetFloat("dist_m", dist)

	return true
}

// setHome latches fix as both the startup and the home position.
func (t *Task) setHome(fix model.Fix) {
	fix.Store(t.startup)
	t.startup.SetBool("valid", true)

	fix.Store(t.home)
	t.home.SetFloat("azimuth_deg", 0.0)
	t.home.SetBool("valid", true)

	t.log.Info().
		Float64("lat", fix.Lat).
		Float64("lon", fix.Lon).
		Float64("alt", fix.Alt).
		Int("satellites", t.gps.GetInt("satellites")).
		Msg("home position set")
	t.events.Log("mission", "home position set")
}

func (t *Task) IsComplete() bool {
	return false
}

func (t *Task) Close() {
	t.SetActive(false)
}
