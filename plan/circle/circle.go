// Copyright 2018 Brian Starkey <stark3y@gmail.com>

// Package circle loiters over the position the vehicle was at when the task
// was activated.
package circle

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"

	"github.com/usedbytes/mission/model"
	"github.com/usedbytes/mission/plan"
	"github.com/usedbytes/mission/props"
)

const TaskType = "circle"

const (
	Mode = "circle"
	DefaultRadius = 100.0
)

type Task struct {
	plan.Base

	pos *props.Node
	ap *props.Node
	circle *props.Node

	radius float64
	center model.Coord
	savedMode string

	log zerolog.Logger
}

func NewTask(cfg plan.Config, tree *props.Tree, log zerolog.Logger) (*Task, error) {
	base, err := plan.NewBase(cfg)
	if err != nil {
		return nil, err
	}

	radius := DefaultRadius
	if s := cfg.GetString("radius_m"); s != "" {
		radius, err = cast.ToFloat64E(s)
		if err != nil || radius <= 0 {
			return nil, fmt.Errorf("%w: radius_m '%s'", plan.ErrInvalidField, s)
		}
	}

	return &Task{
		Base: base,
		pos: tree.Node("/position"),
		ap: tree.Node("/autopilot"),
		circle: tree.Node("/task/circle"),
		radius: radius,
		log: log.With().Str("task", base.Name()).Logger(),
	}, nil
}

func (t *Task) Activate() {
	t.SetActive(true)

	t.savedMode = t.ap.GetString("mode")
	t.ap.SetString("mode", Mode)

	t.center = model.CoordAt(t.pos)
	t.circle.SetFloat("latitude_deg", t.center.Lat)
	t.circle.SetFloat("longitude_deg", t.center.Lon)
	t.circle.SetFloat("radius_m", t.radius)

	t.log.Info().
		Float64("lat", t.center.Lat).
		Float64("lon", t.center.Lon).
		Float64("radius_m", t.radius).
		Msg("circle hold")
}

func (t *Task) Update(dt float64) bool {
	if !t.Active() {
		return false
	}

	course, dist := model.CoordAt(t.pos).CourseTo(t.center)
	t.circle.SetFloat("course_deg", course)
	t.circle.SetFloat("dist_m", dist)

	return true
}

func (t *Task) IsComplete() bool {
	return false
}

func (t *Task) Close() {
	t.ap.SetString("mode", t.savedMode)
	t.SetActive(false)
}

func (t *Task) Center() model.Coord {
	return t.center
}

func (t *Task) Radius() float64 {
	return t.radius
}
