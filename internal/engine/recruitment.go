// Recruitment and forced mergers.
package engine

import (
	"fmt"

	"github.com/talgya/cellblock/internal/gang"
)

// RecruitOutcome describes a recruitment attempt.
type RecruitOutcome struct {
	Success      bool    `json:"success"`
	Chance       float64 `json:"chance"`
	Merged       bool    `json:"merged"`
	AbsorbedGang string  `json:"absorbed_gang,omitempty"`
}

// RecruitmentChance is the probability that a gang with the given
// reputation wins over a target. Affinity is the leader-target relationship
// in [-1, 1] and intensity the yard's environment intensity in [0, 1].
func RecruitmentChance(reputation, affinity, intensity float64, rivalLeader bool) float64 {
	p := 0.4 +
		0.2*(reputation-50)/50 +
		0.15*gang.Clamp(affinity, -1, 1) +
		0.15*gang.Prob(intensity)
	if rivalLeader {
		p *= 0.2
		if reputation < 60 || intensity < 0.5 {
			p *= 0.5
		}
	}
	return gang.Prob(p)
}

// AttemptRecruitment tries to bring targetID into gangID. Winning over the
// leader of another gang absorbs that whole gang.
func (e *Engine) AttemptRecruitment(s *gang.State, gangID, targetID string) Result[RecruitOutcome] {
	o, err := e.begin("recruit", s)
	if err != nil {
		return failed[RecruitOutcome](s, err)
	}
	out, msg, err := o.recruit(gangID, targetID)
	if err != nil {
		return failed[RecruitOutcome](s, err)
	}
	return done(o, out, msg)
}

func (o *op) recruit(gangID, targetID string) (RecruitOutcome, string, error) {
	var out RecruitOutcome
	if targetID == "" {
		return out, "", validationf(o.name, "target id is required")
	}
	g, ok := o.s.Gangs[gangID]
	if !ok {
		return out, "", validationf(o.name, "unknown gang %q", gangID)
	}
	if g.Collapsed {
		return out, "", conflictf(o.name, "%s has collapsed", g.Name)
	}
	t := o.s.Member(targetID)
	switch {
	case t.Killed:
		return out, "", conflictf(o.name, "%s is dead", o.Name(targetID))
	case t.Imprisoned:
		return out, "", conflictf(o.name, "%s is in solitary", o.Name(targetID))
	case t.GangID == gangID:
		return out, "", conflictf(o.name, "%s is already in %s", o.Name(targetID), g.Name)
	}

	rival := o.s.GangOf(t)
	rivalLeader := rival != nil && rival.LeaderID == t.ID
	out.Chance = RecruitmentChance(g.Reputation, o.affinityOf(g.LeaderID, t.ID), o.s.EnvironmentIntensity, rivalLeader)
	out.Success = o.roll(out.Chance)

	if !out.Success {
		if rival != nil {
			t.AddLoyalty(5)
		}
		o.emit(Event{
			Category:    CatRecruitment,
			TargetID:    t.ID,
			GangID:      g.ID,
			Description: fmt.Sprintf("%s turned down %s", o.Name(t.ID), g.Name),
		})
		return out, o.Name(t.ID) + " isn't interested in " + g.Name, nil
	}

	if rivalLeader {
		out.Merged = true
		out.AbsorbedGang = rival.ID
		name := rival.Name
		o.merge(g, rival)
		return out, fmt.Sprintf("%s flipped %s; %s is absorbed into %s", g.Name, o.Name(t.ID), name, g.Name), nil
	}

	if err := o.assign(t.ID, g.ID, false); err != nil {
		return out, "", err
	}
	o.emit(Event{
		Category:    CatRecruitment,
		ActorID:     g.LeaderID,
		TargetID:    t.ID,
		GangID:      g.ID,
		Description: fmt.Sprintf("%s recruited %s", g.Name, o.Name(t.ID)),
	})
	return out, o.Name(t.ID) + " joined " + g.Name, nil
}

// merge folds every living member and asset of b into a and deletes b.
func (o *op) merge(a, b *gang.Gang) {
	moved := o.s.LivingMembers(b)
	for _, m := range moved {
		b.RemoveMember(m.ID)
		m.FormerGangID = b.ID
		m.GangID = a.ID
		m.Rank = gang.RankSoldier
		m.Loyalty = 60
		a.AddMember(m.ID)
	}

	a.AddReputation(b.Reputation * 0.25)
	a.AddResources(b.Resources * 0.5)
	a.TerritoryControl += b.TerritoryControl
	a.Money += b.Money
	a.TotalEarnings += b.TotalEarnings
	a.DrugsStash += b.DrugsStash
	a.Weapons = append(a.Weapons, b.Weapons...)
	for item, n := range b.Items {
		a.Items[item] += n
	}

	delete(o.s.Gangs, b.ID)
	o.s.NormalizeTerritory()

	o.emit(Event{
		Category:    CatMerger,
		GangID:      a.ID,
		TargetID:    b.ID,
		Description: fmt.Sprintf("%s absorbed %s and %s", a.Name, b.Name, plural(len(moved), "member")),
		Meta:        map[string]any{"absorbed": b.ID, "members": len(moved)},
	})
	o.log.Info("gang merged", "into", a.ID, "absorbed", b.ID, "members", len(moved))
}
