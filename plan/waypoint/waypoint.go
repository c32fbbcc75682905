// Copyright 2018 Brian Starkey <stark3y@gmail.com>
package waypoint

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"

	"github.com/usedbytes/mission/events"
	"github.com/usedbytes/mission/model"
	"github.com/usedbytes/mission/plan"
	"github.com/usedbytes/mission/props"
)

const TaskType = "waypoint"

const (
	Mode = "route"
	DefaultArrive = 30.0

	// Below this groundspeed (m/s) there's no useful ETA.
	minETASpeed = 0.5
)

// Task flies direct to one point and completes on arrival.
type Task struct {
	plan.Base

	pos *props.Node
	vel *props.Node
	ap *props.Node
	route *props.Node

	waypoint model.Coord
	arrive float64
	arrived bool
	savedMode string

	events *events.Log
	log zerolog.Logger
}

func floatField(cfg plan.Config, key string, required bool, def float64) (float64, error) {
	s := cfg.GetString(key)
	if s == "" {
		if required {
			return 0, fmt.Errorf("%w: %s", plan.ErrMissingField, key)
		}
		return def, nil
	}

	v, err := cast.ToFloat64E(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s '%s'", plan.ErrInvalidField, key, s)
	}

	return v, nil
}

func NewTask(cfg plan.Config, tree *props.Tree, ev *events.Log, log zerolog.Logger) (*Task, error) {
	base, err := plan.NewBase(cfg)
	if err != nil {
		return nil, err
	}

	t := &Task{
		Base: base,
		pos: tree.Node("/position"),
		vel: tree.Node("/velocity"),
		ap: tree.Node("/autopilot"),
		route: tree.Node("/task/route"),
		events: ev,
		log: log.With().Str("task", base.Name()).Logger(),
	}

	if t.waypoint.Lat, err = floatField(cfg, "lat_deg", true, 0); err != nil {
		return nil, err
	}
	if t.waypoint.Lon, err = floatField(cfg, "lon_deg", true, 0); err != nil {
		return nil, err
	}
	if t.arrive, err = floatField(cfg, "arrive_m", false, DefaultArrive); err != nil {
		return nil, err
	}

	if t.waypoint.Lat < -90 || t.waypoint.Lat > 90 {
		return nil, fmt.Errorf("%w: lat_deg %v", plan.ErrInvalidField, t.waypoint.Lat)
	}
	if t.arrive <= 0 {
		return nil, fmt.Errorf("%w: arrive_m %v", plan.ErrInvalidField, t.arrive)
	}

	return t, nil
}

func (t *Task) Activate() {
	t.SetActive(true)

	t.savedMode = t.ap.GetString("mode")
	t.ap.SetString("mode", Mode)

	t.route.SetString("target", t.Name())
	t.route.SetFloat("latitude_deg", t.waypoint.Lat)
	t.route.SetFloat("longitude_deg", t.waypoint.Lon)

	t.log.Info().
		Float64("lat", t.waypoint.Lat).
		Float64("lon", t.waypoint.Lon).
		Msg("direct to waypoint")
}

func (t *Task) Update(dt float64) bool {
	if !t.Active() || t.arrived {
		return false
	}

	course, dist := model.CoordAt(t.pos).CourseTo(t.waypoint)
	t.route.SetFloat("course_deg", course)
	t.route.SetFloat("dist_m", dist)

	eta := 0.0
	if gs := t.vel.GetFloat("groundspeed_ms"); gs > minETASpeed {
		eta = dist / gs
	}
	t.route.SetFloat("eta_sec", eta)

	if dist <= t.arrive {
		t.arrived = true
		t.log.Info().Float64("dist_m", dist).Msg("arrived")
		t.events.Log("mission", fmt.Sprintf("waypoint %s reached", t.Name()))
		return false
	}

	return true
}

func (t *Task) IsComplete() bool {
	return t.arrived
}

func (t *Task) Close() {
	t.ap.SetString("mode", t.savedMode)
	t.SetActive(false)
}

func (t *Task) Waypoint() model.Coord {
	return t.waypoint
}
