// Package tracing provides the task-based tracing facility. Components
// mark the start and end of the work they carry out; tracers hook onto the
// components and aggregate or record the resulting tasks.
package tracing

import (
	"fmt"
	"reflect"

	"github.com/chat2snack/snacksim/sim"
)

// Hook positions for task lifetime updates.
var (
	HookPosTaskStart = &sim.HookPos{Name: "TaskStart"}
	HookPosTaskStep  = &sim.HookPos{Name: "TaskStep"}
	HookPosTaskEnd   = &sim.HookPos{Name: "TaskEnd"}
)

func invoke(domain sim.NamedHookable, pos *sim.HookPos, task Task) {
	domain.InvokeHook(sim.HookCtx{Domain: domain, Pos: pos, Item: task})
}

func startMustBeValid(id string, domain sim.NamedHookable, kind, what string) {
	switch {
	case id == "":
		panic("task id must not be empty")
	case domain == nil:
		panic("task domain must not be nil")
	case kind == "":
		panic("task kind must not be empty")
	case what == "":
		panic("task what must not be empty")
	case domain.Name() == "":
		panic("task domain must have a name")
	}
}

// StartTask notifies the hooks that hook to the domain about the start of a
// task.
func StartTask(
	id, parentID string,
	domain sim.NamedHookable,
	kind, what, where string,
	detail any,
) {
	if domain.NumHooks() == 0 {
		return
	}

	startMustBeValid(id, domain, kind, what)

	invoke(domain, HookPosTaskStart, Task{
		ID:       id,
		ParentID: parentID,
		Kind:     kind,
		What:     what,
		Where:    where,
		Detail:   detail,
	})
}

// AddTaskStep marks that a milestone has been reached when processing a
// task.
func AddTaskStep(id string, domain sim.NamedHookable, what string) {
	if domain.NumHooks() == 0 {
		return
	}

	invoke(domain, HookPosTaskStep, Task{
		ID:    id,
		Steps: []TaskStep{{What: what}},
	})
}

// EndTask notifies the hooks about the end of a task.
func EndTask(id string, domain sim.NamedHookable) {
	if domain.NumHooks() == 0 {
		return
	}

	invoke(domain, HookPosTaskEnd, Task{ID: id})
}

// MsgIDAtSender generates a standard ID for the message task at the message
// sender.
func MsgIDAtSender(msg sim.Msg) string {
	return msg.Meta().ID + "_req_out"
}

// MsgIDAtReceiver generates a standard ID for the message task at the
// message receiver.
func MsgIDAtReceiver(msg sim.Msg, domain sim.NamedHookable) string {
	return fmt.Sprintf("%s@%s", msg.Meta().ID, domain.Name())
}

// TraceReqInitiate generates a new task with Kind="req_out" and What=[the
// type name of the message]. This function is to be called by the sender of
// the message.
func TraceReqInitiate(msg sim.Msg, domain sim.NamedHookable, parentID string) {
	StartTask(MsgIDAtSender(msg), parentID, domain,
		"req_out", reflect.TypeOf(msg).String(), domain.Name(), msg)
}

// TraceReqReceive generates a new task for the message handling. The kind of
// the task is always "req_in".
func TraceReqReceive(msg sim.Msg, domain sim.NamedHookable) {
	StartTask(MsgIDAtReceiver(msg, domain), MsgIDAtSender(msg), domain,
		"req_in", reflect.TypeOf(msg).String(), domain.Name(), msg)
}

// TraceReqComplete terminates the message handling task.
func TraceReqComplete(msg sim.Msg, domain sim.NamedHookable) {
	EndTask(MsgIDAtReceiver(msg, domain), domain)
}

// TraceReqFinalize terminates the message task. This function should be
// called when the sender observes that the request has been served.
func TraceReqFinalize(msg sim.Msg, domain sim.NamedHookable) {
	EndTask(MsgIDAtSender(msg), domain)
}
