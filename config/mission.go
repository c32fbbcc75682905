// Copyright 2018 Brian Starkey <stark3y@gmail.com>
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cast"
)

var (
	ErrInvalidMission = errors.New("invalid mission")
	ErrUnknownKey = errors.New("unknown mission key")
)

// TaskNode is one [[task]] table. Every key is available to the task as a
// string.
type TaskNode map[string]interface{}

func (n TaskNode) GetString(key string) string {
	return cast.ToString(n[key])
}

func (n TaskNode) Type() string {
	return n.GetString("type")
}

func (n TaskNode) Name() string {
	return n.GetString("name")
}

// Mission describes the tasks to build and how to schedule them:
//
//	idle = "idle"
//	global = ["home"]
//	sequential = ["climb", "survey"]
//
//	[[task]]
//	type = "home_mgr"
//	name = "home"
type Mission struct {
	Idle string `toml:"idle"`
	Global []string `toml:"global"`
	Sequential []string `toml:"sequential"`
	Tasks []TaskNode `toml:"task"`
}

func LoadMission(path string) (*Mission, error) {
	var m Mission
	md, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("mission '%s': %w", path, err)
	}

	return checkDecoded(&m, md)
}

func ParseMission(data string) (*Mission, error) {
	var m Mission
	md, err := toml.Decode(data, &m)
	if err != nil {
		return nil, fmt.Errorf("mission: %w", err)
	}

	return checkDecoded(&m, md)
}

func checkDecoded(m *Mission, md toml.MetaData) (*Mission, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(keys, ", "))
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

// Task returns the node for the named task, or nil.
func (m *Mission) Task(name string) TaskNode {
	for _, n := range m.Tasks {
		if n.Name() == name {
			return n
		}
	}
	return nil
}

// Validate checks the mission is self-consistent. It doesn't know about task
// types, so an unknown type is only caught when the tasks are built.
func (m *Mission) Validate() error {
	names := make(map[string]bool)
	for i, n := range m.Tasks {
		if n.Type() == "" {
			return fmt.Errorf("%w: task %d has no type", ErrInvalidMission, i)
		}
		if n.Name() == "" {
			return fmt.Errorf("%w: task %d has no name", ErrInvalidMission, i)
		}
		if names[n.Name()] {
			return fmt.Errorf("%w: duplicate task name '%s'", ErrInvalidMission, n.Name())
		}
		names[n.Name()] = true
	}

	if m.Idle == "" {
		return fmt.Errorf("%w: no idle task", ErrInvalidMission)
	}

	var missing []string
	for _, name := range append(append([]string{m.Idle}, m.Global...), m.Sequential...) {
		if !names[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: undefined tasks %s", ErrInvalidMission, strings.Join(missing, ", "))
	}

	return nil
}
