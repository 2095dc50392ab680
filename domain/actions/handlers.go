package actions

import (
	"fmt"

	"table-lab/domain"
)

// Board bounds and melee parameters. Deep rule validation (spell
// legality, line of sight) belongs to the rules collaborator, not
// here; these checks are structural only.
const (
	boardMin         = 0
	boardMax         = 99
	baseAttackDamage = 12
)

type moveHandler struct{}

func (moveHandler) Validate(st *domain.GameState, a domain.TurnAction) *domain.Rejection {
	if a.TargetPosition == nil {
		return domain.NewRejection(domain.RejectBadAction, "Move needs a target position")
	}
	p := *a.TargetPosition
	if p.X < boardMin || p.X > boardMax || p.Y < boardMin || p.Y > boardMax {
		return domain.NewRejection(domain.RejectOutOfBounds, "Target tile is outside the map")
	}
	for id, other := range st.Participants {
		if id != a.EntityID && other.HP > 0 && other.Position == p {
			return domain.NewRejection(domain.RejectTileOccupied, "Tile occupied")
		}
	}
	return nil
}

func (moveHandler) Apply(st *domain.GameState, a domain.TurnAction) {
	st.Participants[a.EntityID].Position = *a.TargetPosition
}

type attackHandler struct{}

func (attackHandler) Validate(st *domain.GameState, a domain.TurnAction) *domain.Rejection {
	if a.TargetID == "" {
		return domain.NewRejection(domain.RejectNoTarget, "Attack needs a target")
	}
	target, ok := st.Participants[a.TargetID]
	if !ok {
		return domain.NewRejection(domain.RejectUnknownEntity, "No such target in this encounter")
	}
	if target.HP <= 0 {
		return domain.NewRejection(domain.RejectNoTarget, "Target is already down")
	}
	return nil
}

func (attackHandler) Apply(st *domain.GameState, a domain.TurnAction) {
	target := st.Participants[a.TargetID]
	damage := baseAttackDamage
	if v, ok := a.Params["damage"].(int); ok && v > 0 {
		damage = v
	}
	target.HP -= damage
	if target.HP <= 0 {
		target.HP = 0
		target.AddCondition("unconscious")
	}
}

type useItemHandler struct{}

func (useItemHandler) Validate(st *domain.GameState, a domain.TurnAction) *domain.Rejection {
	if a.ItemID == "" {
		return domain.NewRejection(domain.RejectNoSuchItem, "Use needs an item")
	}
	actor := st.Participants[a.EntityID]
	for _, item := range actor.Inventory.Items {
		if item.ID == a.ItemID && item.Quantity > 0 {
			return nil
		}
	}
	return domain.NewRejection(domain.RejectNoSuchItem, fmt.Sprintf("You do not carry %s", a.ItemID))
}

func (useItemHandler) Apply(st *domain.GameState, a domain.TurnAction) {
	actor := st.Participants[a.EntityID]
	for i := range actor.Inventory.Items {
		item := &actor.Inventory.Items[i]
		if item.ID != a.ItemID {
			continue
		}
		item.Quantity--
		// Healing potions are the one consumable the core resolves
		// itself; anything else just burns the charge.
		if heal, ok := a.Params["heal"].(int); ok && heal > 0 {
			actor.HP += heal
			if actor.HP > actor.MaxHP {
				actor.HP = actor.MaxHP
			}
			actor.RemoveCondition("unconscious")
		}
		if item.Quantity <= 0 {
			actor.Inventory.Items = append(actor.Inventory.Items[:i], actor.Inventory.Items[i+1:]...)
		}
		return
	}
}

type castHandler struct{}

func (castHandler) Validate(st *domain.GameState, a domain.TurnAction) *domain.Rejection {
	if a.SpellID == "" {
		return domain.NewRejection(domain.RejectBadAction, "Cast needs a spell")
	}
	if a.TargetID != "" {
		if _, ok := st.Participants[a.TargetID]; !ok {
			return domain.NewRejection(domain.RejectUnknownEntity, "No such target in this encounter")
		}
	}
	return nil
}

func (castHandler) Apply(st *domain.GameState, a domain.TurnAction) {
	if a.TargetID == "" {
		return
	}
	target := st.Participants[a.TargetID]
	if damage, ok := a.Params["damage"].(int); ok && damage > 0 {
		target.HP -= damage
		if target.HP <= 0 {
			target.HP = 0
			target.AddCondition("unconscious")
		}
	}
	if condition, ok := a.Params["condition"].(string); ok && condition != "" {
		target.AddCondition(condition)
	}
}

type interactHandler struct{}

func (interactHandler) Validate(st *domain.GameState, a domain.TurnAction) *domain.Rejection {
	if a.TargetID == "" && a.TargetPosition == nil {
		return domain.NewRejection(domain.RejectNoTarget, "Interact needs a target or a tile")
	}
	return nil
}

// Apply is a no-op: interaction outcomes (doors, levers, loot) are
// resolved by the rules collaborator from the turn record.
func (interactHandler) Apply(_ *domain.GameState, _ domain.TurnAction) {}

type endHandler struct{}

func (endHandler) Validate(_ *domain.GameState, _ domain.TurnAction) *domain.Rejection {
	return nil
}

// Apply does nothing; ending a turn carries no entity effects. The
// room manager performs the explicit AdvanceTurn afterwards.
func (endHandler) Apply(_ *domain.GameState, _ domain.TurnAction) {}
