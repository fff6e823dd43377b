// Commissary goods: buying them and lifting them from other crews.
package engine

import (
	"fmt"
	"maps"
	"slices"

	"github.com/talgya/cellblock/internal/gang"
)

// TheftDetection is the chance an item theft is noticed.
const TheftDetection = 0.7

// PurchaseOutcome describes an item purchase.
type PurchaseOutcome struct {
	Item        gang.ItemType `json:"item"`
	Cost        int           `json:"cost"`
	RecipientID string        `json:"recipient_id,omitempty"`
}

// TheftOutcome describes an item theft. Violence is set when the theft was
// noticed and turned into a fight.
type TheftOutcome struct {
	Item     gang.ItemType    `json:"item"`
	Detected bool             `json:"detected"`
	Success  bool             `json:"success"`
	Violence *ViolenceOutcome `json:"violence,omitempty"`
}

// PurchasePrisonItem buys an item with gang money. With a recipient the
// payoff lands immediately; otherwise the item goes into the gang's stock.
func (e *Engine) PurchasePrisonItem(s *gang.State, gangID string, item gang.ItemType, recipientID string) Result[PurchaseOutcome] {
	const opName = "purchase"
	spec, ok := gang.Items[item]
	if !ok {
		return failed[PurchaseOutcome](s, validationf(opName, "unknown item %q", item))
	}
	o, err := e.begin(opName, s)
	if err != nil {
		return failed[PurchaseOutcome](s, err)
	}
	g, ok := o.s.Gangs[gangID]
	if !ok {
		return failed[PurchaseOutcome](s, validationf(opName, "unknown gang %q", gangID))
	}
	if g.Collapsed {
		return failed[PurchaseOutcome](s, conflictf(opName, "%s has collapsed", g.Name))
	}

	var r *gang.Member
	if recipientID != "" {
		r, ok = o.s.Members[recipientID]
		if !ok {
			return failed[PurchaseOutcome](s, validationf(opName, "unknown member %q", recipientID))
		}
		if r.GangID != g.ID || r.Killed {
			return failed[PurchaseOutcome](s, conflictf(opName, "%s is not with %s", o.Name(recipientID), g.Name))
		}
	}
	if g.Money < spec.Cost {
		return failed[PurchaseOutcome](s, resourceErr(opName, g.Name+" can't afford "+spec.Name, spec.Cost, g.Money))
	}

	g.Money -= spec.Cost
	out := PurchaseOutcome{Item: item, Cost: spec.Cost, RecipientID: recipientID}
	msg := fmt.Sprintf("%s bought %s for %s", g.Name, spec.Name, money(spec.Cost))
	if r != nil {
		r.AddLoyalty(spec.Loyalty)
		r.AddRespect(spec.Respect)
		msg = fmt.Sprintf("%s got %s for %s", g.Name, spec.Name, o.Name(r.ID))
	} else {
		g.Items[item]++
	}
	o.emit(Event{Category: CatPurchase, GangID: g.ID, TargetID: recipientID, Description: msg})
	return done(o, out, msg)
}

// AttemptItemTheft has thiefID lift an item from another gang's stock. An
// empty item picks one the target has.
func (e *Engine) AttemptItemTheft(s *gang.State, thiefID, targetGangID string, item gang.ItemType) Result[TheftOutcome] {
	o, err := e.begin("item theft", s)
	if err != nil {
		return failed[TheftOutcome](s, err)
	}
	out, err := o.itemTheft(thiefID, targetGangID, item)
	if err != nil {
		return failed[TheftOutcome](s, err)
	}
	switch {
	case out.Violence != nil:
		return done(o, out, o.describeViolence(*out.Violence))
	case out.Success:
		return done(o, out, fmt.Sprintf("%s walked off with %s from %s", o.Name(thiefID), gang.Items[out.Item].Name, o.gangName(targetGangID)))
	default:
		return done(o, out, o.Name(thiefID)+" was spotted and backed off")
	}
}

func (o *op) itemTheft(thiefID, targetGangID string, item gang.ItemType) (TheftOutcome, error) {
	var out TheftOutcome
	thief, own, err := o.activeGangMember(thiefID)
	if err != nil {
		return out, err
	}
	target, ok := o.s.Gangs[targetGangID]
	if !ok {
		return out, validationf(o.name, "unknown gang %q", targetGangID)
	}
	if target.ID == own.ID {
		return out, conflictf(o.name, "%s would be stealing from their own gang", o.Name(thiefID))
	}
	if item == "" {
		var stocked []string
		for _, it := range slices.Sorted(maps.Keys(target.Items)) {
			if target.Items[it] > 0 {
				stocked = append(stocked, string(it))
			}
		}
		item = gang.ItemType(o.pick(stocked))
	}
	if _, ok := gang.Items[item]; !ok && item != "" {
		return out, validationf(o.name, "unknown item %q", item)
	}
	if item == "" || target.Items[item] <= 0 {
		return out, conflictf(o.name, "%s has nothing like that to take", target.Name)
	}
	out.Item = item

	if o.roll(TheftDetection) {
		var defenders []string
		for _, m := range o.s.LivingMembers(target) {
			if m.Active() {
				defenders = append(defenders, m.ID)
			}
		}
		if id := o.pick(defenders); id != "" {
			out.Detected = true
			v := o.violence(thief, o.s.Members[id])
			out.Violence = &v
			return out, nil
		}
	}

	target.Items[item]--
	own.Items[item]++
	thief.AddRespect(10)
	thief.Thefts++
	thief.LastTheftAt = o.now
	out.Success = true
	o.emit(Event{
		Category:    CatTheft,
		ActorID:     thief.ID,
		GangID:      own.ID,
		TargetID:    target.ID,
		Description: fmt.Sprintf("%s lifted %s from %s", o.Name(thief.ID), gang.Items[item].Name, target.Name),
	})
	return out, nil
}
