// Copyright 2018 Brian Starkey <stark3y@gmail.com>
package plan

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/usedbytes/mission/events"
	"github.com/usedbytes/mission/props"
)

var ErrNotSchedulable = errors.New("global tasks can't be scheduled")

type globalTask struct {
	task Task
	active bool
}

// Planner runs the global tasks every tick, plus exactly one sequential
// task taken from a FIFO queue. Priority requests jump the queue and take
// effect on the next tick boundary. When nothing is runnable the idle task
// runs.
type Planner struct {
	log zerolog.Logger
	events *events.Log

	tasks map[string]Task
	global []*globalTask

	current Task
	queue []Task
	pending []Task
	idleTask Task

	taskNode *props.Node
	health *props.Node
	faults int
}

func NewPlanner(tree *props.Tree, log zerolog.Logger) *Planner {
	p := &Planner{
		log: log.With().Str("component", "planner").Logger(),
		tasks: make(map[string]Task),
		taskNode: tree.Node("/task"),
		health: tree.Node("/task/health"),
	}

	p.health.SetInt("fault_count", 0)
	p.health.SetString("last_fault", "")
	p.health.SetBool("ok", true)
	p.publish()

	return p
}

// SetEventLog records schedule changes and faults to ev as "task" and
// "fault" events.
func (p *Planner) SetEventLog(ev *events.Log) {
	p.events = ev
}

// AddTask registers a task under its name. Registered tasks can be used as
// the idle task, as global tasks, queued, or requested by name.
func (p *Planner) AddTask(task Task) error {
	name := task.Name()
	if _, ok := p.tasks[name]; ok {
		return fmt.Errorf("%w: '%s'", ErrDuplicateTask, name)
	}

	p.tasks[name] = task
	return nil
}

func (p *Planner) lookup(name string) (Task, error) {
	t, ok := p.tasks[name]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownTask, name)
	}
	return t, nil
}

func (p *Planner) isGlobal(t Task) bool {
	for _, g := range p.global {
		if g.task == t {
			return true
		}
	}
	return false
}

// Task returns the registered task called name.
func (p *Planner) Task(name string) (Task, bool) {
	t, ok := p.tasks[name]
	return t, ok
}

func (p *Planner) SetIdleTask(name string) error {
	t, err := p.lookup(name)
	if err != nil {
		return err
	}
	if p.isGlobal(t) {
		return fmt.Errorf("%w: '%s'", ErrNotSchedulable, name)
	}

	p.idleTask = t
	return nil
}

func (p *Planner) IdleTask() Task {
	return p.idleTask
}

// AddGlobalTask marks a registered task as global: it is activated on the
// next tick and updated every tick after that, alongside the current task.
func (p *Planner) AddGlobalTask(name string) error {
	t, err := p.lookup(name)
	if err != nil {
		return err
	}
	if p.isGlobal(t) {
		return fmt.Errorf("%w: '%s' is already global", ErrDuplicateTask, name)
	}
	if t == p.idleTask {
		return fmt.Errorf("%w: '%s' is the idle task", ErrNotSchedulable, name)
	}

	p.global = append(p.global, &globalTask{task: t})
	return nil
}

func (p *Planner) schedulable(name string) (Task, error) {
	t, err := p.lookup(name)
	if err != nil {
		return nil, err
	}
	if p.isGlobal(t) {
		return nil, fmt.Errorf("%w: '%s'", ErrNotSchedulable, name)
	}
	return t, nil
}

// CheckSchedulable reports whether name could be queued or requested.
func (p *Planner) CheckSchedulable(name string) error {
	_, err := p.schedulable(name)
	return err
}

// Enqueue appends a task to the back of the sequential queue.
func (p *Planner) Enqueue(name string) error {
	t, err := p.schedulable(name)
	if err != nil {
		return err
	}

	p.queue = append(p.queue, t)
	p.publish()
	return nil
}

// RequestPriorityTask asks for a task to run ahead of everything queued.
// The current task is closed and put back behind it at the next tick
// boundary. Asking for the current task, or one already requested, does
// nothing.
func (p *Planner) RequestPriorityTask(name string) error {
	t, err := p.schedulable(name)
	if err != nil {
		return err
	}

	if t == p.current || contains(p.pending, t) {
		return nil
	}

	p.log.Debug().Str("task", name).Msg("priority request")
	p.pending = append(p.pending, t)
	return nil
}

func contains(list []Task, t Task) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}

func names(list []Task) []string {
	ret := make([]string, 0, len(list))
	for _, t := range list {
		ret = append(ret, t.Name())
	}
	return ret
}

func (p *Planner) Current() Task {
	return p.current
}

// Queue returns the names of the queued tasks, head first.
func (p *Planner) Queue() []string {
	return names(p.queue)
}

// Pending returns the names of priority requests not yet applied.
func (p *Planner) Pending() []string {
	return names(p.pending)
}

func (p *Planner) Faults() int {
	return p.faults
}

// Tick runs one control cycle.
func (p *Planner) Tick(dt float64) {
	p.applyPending()
	p.tickGlobal(dt)

	if p.current != nil && p.current == p.idleTask && len(p.queue) > 0 {
		p.retire(p.current)
	}

	if p.current == nil {
		p.advance()
	} else {
		p.update(dt)
	}

	p.publish()
}

func (p *Planner) applyPending() {
	block := make([]Task, 0, len(p.pending))
	for _, t := range p.pending {
		if t != p.current {
			block = append(block, t)
		}
	}
	p.pending = nil

	if len(block) == 0 {
		return
	}

	rest := make([]Task, 0, len(p.queue))
	for _, t := range p.queue {
		if !contains(block, t) {
			rest = append(rest, t)
		}
	}

	var back []Task
	if displaced := p.current; displaced != nil {
		resume := displaced != p.idleTask

		var done bool
		if err := p.call(displaced, "is_complete", func() { done = displaced.IsComplete() }); err != nil {
			p.recordFault(err)
			resume = false
		} else if done {
			resume = false
		}

		p.log.Info().
			Str("task", displaced.Name()).
			Str("by", block[0].Name()).
			Bool("resume", resume).
			Msg("preempted")
		p.events.Log("task", fmt.Sprintf("%s preempted by %s", displaced.Name(), block[0].Name()))

		p.retire(displaced)
		if resume {
			back = append(back, displaced)
		}
	}

	queue := make([]Task, 0, len(block) + len(back) + len(rest))
	queue = append(queue, block...)
	queue = append(queue, back...)
	p.queue = append(queue, rest...)
}

func (p *Planner) tickGlobal(dt float64) {
	for _, g := range p.global {
		t := g.task
		if !g.active {
			if err := p.call(t, "activate", t.Activate); err != nil {
				p.recordFault(err)
				continue
			}
			g.active = true
			p.log.Info().Str("task", t.Name()).Msg("global task active")
		}

		if err := p.call(t, "update", func() { t.Update(dt) }); err != nil {
			p.recordFault(err)
			if err := p.call(t, "close", t.Close); err != nil {
				p.recordFault(err)
			}
			g.active = false
		}
	}
}

func (p *Planner) advance() {
	next := p.idleTask
	if len(p.queue) > 0 {
		next = p.queue[0]
		p.queue = p.queue[1:]
	}

	if next == nil {
		return
	}

	if next == p.idleTask {
		p.log.Debug().Str("task", next.Name()).Msg("nothing queued, idling")
	}
	p.activate(next)
}

func (p *Planner) activate(t Task) {
	p.log.Info().Str("task", t.Name()).Str("nickname", t.Nickname()).Msg("activate")

	p.current = t
	p.events.Log("task", fmt.Sprintf("%s activated", t.Name()))
	if err := p.call(t, "activate", t.Activate); err != nil {
		p.fault(t, err)
	}
}

func (p *Planner) update(dt float64) {
	t := p.current

	var cont bool
	if err := p.call(t, "update", func() { cont = t.Update(dt) }); err != nil {
		p.fault(t, err)
		return
	}
	if !cont {
		p.log.Debug().Str("task", t.Name()).Msg("update returned false")
	}

	var done bool
	if err := p.call(t, "is_complete", func() { done = t.IsComplete() }); err != nil {
		p.fault(t, err)
		return
	}

	if done {
		p.log.Info().Str("task", t.Name()).Msg("complete")
		p.events.Log("task", fmt.Sprintf("%s complete", t.Name()))
		p.retire(t)
		p.advance()
	}
}

// retire closes t and clears it from current.
func (p *Planner) retire(t Task) {
	if err := p.call(t, "close", t.Close); err != nil {
		p.recordFault(err)
	}
	if p.current == t {
		p.current = nil
	}
}

// fault drops the current task and falls back to idle. A faulting idle task
// is closed and retried on the next tick.
func (p *Planner) fault(t Task, err error) {
	p.recordFault(err)
	p.retire(t)

	if t == p.idleTask || p.idleTask == nil {
		return
	}
	p.activate(p.idleTask)
}

func (p *Planner) recordFault(err error) {
	p.faults++

	p.health.SetInt("fault_count", p.faults)
	p.health.SetString("last_fault", err.Error())
	p.health.SetBool("ok", false)

	p.log.Error().Err(err).Int("faults", p.faults).Msg("task fault")
	p.events.Log("fault", err.Error())
}

func (p *Planner) publish() {
	name := ""
	if p.current != nil {
		name = p.current.Name()
	}
	p.taskNode.SetString("current_task", name)
	p.taskNode.SetInt("queue_len", len(p.queue))
	p.taskNode.SetBool("idle", p.current != nil && p.current == p.idleTask)
}

// call runs one lifecycle method of t, turning a panic into an error.
func (p *Planner) call(t Task, op string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s %s: %v", ErrTaskFault, t.Name(), op, r)
		}
	}()

	fn()
	return nil
}

// Close shuts everything down, closing the current task and any active
// global tasks.
func (p *Planner) Close() {
	if p.current != nil {
		p.retire(p.current)
	}

	for _, g := range p.global {
		if !g.active {
			continue
		}
		if err := p.call(g.task, "close", g.task.Close); err != nil {
			p.recordFault(err)
		}
		g.active = false
	}

	p.publish()
}
