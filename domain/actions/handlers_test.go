package actions

import (
	"testing"

	"table-lab/domain"

	"github.com/stretchr/testify/require"
)

func stateWith(entities ...string) *domain.GameState {
	st := domain.NewGameState()
	for i, id := range entities {
		p := domain.NewParticipantState(id, 100)
		p.Position = domain.Position{X: i * 10, Y: i * 10}
		st.Participants[id] = p
	}
	return &st
}

func handlerFor(t *testing.T, action domain.ActionType) domain.ActionHandler {
	t.Helper()
	h, ok := NewRegistry().Handler(action)
	require.True(t, ok)
	return h
}

func TestMove_RejectsOutOfBoundsAndOccupiedTiles(t *testing.T) {
	req := require.New(t)
	st := stateWith("char-a", "char-b")
	move := handlerFor(t, domain.ActionMove)

	rej := move.Validate(st, domain.TurnAction{
		Type: domain.ActionMove, EntityID: "char-a",
		TargetPosition: &domain.Position{X: 120, Y: 3},
	})
	req.NotNil(rej)
	req.Equal(domain.RejectOutOfBounds, rej.Code)

	// char-b stands on (10,10)
	rej = move.Validate(st, domain.TurnAction{
		Type: domain.ActionMove, EntityID: "char-a",
		TargetPosition: &domain.Position{X: 10, Y: 10},
	})
	req.NotNil(rej)
	req.Equal(domain.RejectTileOccupied, rej.Code)

	action := domain.TurnAction{
		Type: domain.ActionMove, EntityID: "char-a",
		TargetPosition: &domain.Position{X: 5, Y: 7},
	}
	req.Nil(move.Validate(st, action))
	move.Apply(st, action)
	req.Equal(domain.Position{X: 5, Y: 7}, st.Participants["char-a"].Position)
}

func TestAttack_DealsBaseDamage(t *testing.T) {
	req := require.New(t)
	st := stateWith("char-a", "char-b")
	attack := handlerFor(t, domain.ActionAttack)

	action := domain.TurnAction{
		Type: domain.ActionAttack, EntityID: "char-a", TargetID: "char-b",
	}
	req.Nil(attack.Validate(st, action))
	attack.Apply(st, action)
	req.Equal(88, st.Participants["char-b"].HP)
}

func TestAttack_ZeroHPFloorsAndKnocksOut(t *testing.T) {
	req := require.New(t)
	st := stateWith("char-a", "char-b")
	st.Participants["char-b"].HP = 5
	attack := handlerFor(t, domain.ActionAttack)

	attack.Apply(st, domain.TurnAction{
		Type: domain.ActionAttack, EntityID: "char-a", TargetID: "char-b",
	})

	target := st.Participants["char-b"]
	req.Equal(0, target.HP)
	req.True(target.HasCondition("unconscious"))

	// A downed target is no longer attackable
	rej := attack.Validate(st, domain.TurnAction{
		Type: domain.ActionAttack, EntityID: "char-a", TargetID: "char-b",
	})
	req.NotNil(rej)
	req.Equal(domain.RejectNoTarget, rej.Code)
}

func TestAttack_RejectsUnknownTarget(t *testing.T) {
	req := require.New(t)
	st := stateWith("char-a")
	attack := handlerFor(t, domain.ActionAttack)

	rej := attack.Validate(st, domain.TurnAction{
		Type: domain.ActionAttack, EntityID: "char-a", TargetID: "ghost",
	})
	req.NotNil(rej)
	req.Equal(domain.RejectUnknownEntity, rej.Code)
}

func TestUseItem_ConsumesAndHeals(t *testing.T) {
	req := require.New(t)
	st := stateWith("char-a")
	actor := st.Participants["char-a"]
	actor.HP = 60
	actor.Inventory.Items = []domain.Item{{ID: "potion", Name: "Healing potion", Quantity: 1}}
	use := handlerFor(t, domain.ActionUseItem)

	action := domain.TurnAction{
		Type: domain.ActionUseItem, EntityID: "char-a", ItemID: "potion",
		Params: map[string]any{"heal": 25},
	}
	req.Nil(use.Validate(st, action))
	use.Apply(st, action)

	req.Equal(85, actor.HP)
	req.Empty(actor.Inventory.Items)

	// The potion is gone, a second use is refused
	rej := use.Validate(st, action)
	req.NotNil(rej)
	req.Equal(domain.RejectNoSuchItem, rej.Code)
}

func TestUseItem_HealNeverExceedsMaxHP(t *testing.T) {
	req := require.New(t)
	st := stateWith("char-a")
	actor := st.Participants["char-a"]
	actor.HP = 95
	actor.Inventory.Items = []domain.Item{{ID: "potion", Quantity: 2}}
	use := handlerFor(t, domain.ActionUseItem)

	use.Apply(st, domain.TurnAction{
		Type: domain.ActionUseItem, EntityID: "char-a", ItemID: "potion",
		Params: map[string]any{"heal": 25},
	})

	req.Equal(100, actor.HP)
	req.Equal(1, actor.Inventory.Items[0].Quantity)
}

func TestCast_AppliesDamageAndCondition(t *testing.T) {
	req := require.New(t)
	st := stateWith("char-a", "char-b")
	cast := handlerFor(t, domain.ActionCast)

	rej := cast.Validate(st, domain.TurnAction{Type: domain.ActionCast, EntityID: "char-a"})
	req.NotNil(rej)
	req.Equal(domain.RejectBadAction, rej.Code)

	action := domain.TurnAction{
		Type: domain.ActionCast, EntityID: "char-a", SpellID: "hold-person", TargetID: "char-b",
		Params: map[string]any{"damage": 7, "condition": "paralyzed"},
	}
	req.Nil(cast.Validate(st, action))
	cast.Apply(st, action)

	target := st.Participants["char-b"]
	req.Equal(93, target.HP)
	req.True(target.HasCondition("paralyzed"))
}

func TestEnd_HasNoEntityEffects(t *testing.T) {
	req := require.New(t)
	st := stateWith("char-a")
	before := st.Clone()
	end := handlerFor(t, domain.ActionEnd)

	action := domain.TurnAction{Type: domain.ActionEnd, EntityID: "char-a"}
	req.Nil(end.Validate(st, action))
	end.Apply(st, action)
	req.Equal(before, st.Clone())
}

func TestRegistry_CoversEveryActionType(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	for _, action := range []domain.ActionType{
		domain.ActionMove, domain.ActionAttack, domain.ActionUseItem,
		domain.ActionCast, domain.ActionInteract, domain.ActionEnd,
	} {
		_, ok := registry.Handler(action)
		req.True(ok, "missing handler for %s", action)
	}

	_, ok := registry.Handler(domain.ActionType("dance"))
	req.False(ok)
}
