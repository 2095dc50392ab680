// Package actions holds the per-type turn action handlers. The room's
// state machine stays generic; everything an action type does to the
// game state lives behind domain.ActionHandler so new action types
// plug in without touching the turn logic.
package actions

import (
	"table-lab/domain"
)

type Registry struct {
	handlers map[domain.ActionType]domain.ActionHandler
}

// NewRegistry returns a registry with every built-in action wired.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[domain.ActionType]domain.ActionHandler)}
	r.Register(domain.ActionMove, moveHandler{})
	r.Register(domain.ActionAttack, attackHandler{})
	r.Register(domain.ActionUseItem, useItemHandler{})
	r.Register(domain.ActionCast, castHandler{})
	r.Register(domain.ActionInteract, interactHandler{})
	r.Register(domain.ActionEnd, endHandler{})
	return r
}

func (r *Registry) Register(t domain.ActionType, h domain.ActionHandler) {
	r.handlers[t] = h
}

func (r *Registry) Handler(t domain.ActionType) (domain.ActionHandler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}
