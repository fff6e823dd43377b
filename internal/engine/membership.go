// Membership lifecycle: joining, leaving, succession and collapse.
package engine

import (
	"cmp"
	"slices"

	"github.com/talgya/cellblock/internal/gang"
)

// SystemKiller is recorded as the killer of leaders executed on collapse.
const SystemKiller = "system"

// InitializeGangs creates gangs from seeds, assigns their members, splits
// territory evenly across the gangs still standing and fills the guard pool if it is empty.
// The value is the list of created gang IDs.
func (e *Engine) InitializeGangs(s *gang.State, seeds []gang.Seed) Result[[]string] {
	const opName = "initialize gangs"
	if len(seeds) == 0 {
		return failed[[]string](s, validationf(opName, "no gangs to create"))
	}
	o, err := e.begin(opName, s)
	if err != nil {
		return failed[[]string](s, err)
	}

	var created []string
	for _, sd := range seeds {
		if sd.ID == "" || sd.Name == "" {
			return failed[[]string](s, validationf(opName, "gang seed needs an id and a name"))
		}
		if _, ok := o.s.Gangs[sd.ID]; ok {
			return failed[[]string](s, conflictf(opName, "gang %q already exists", sd.ID))
		}
		o.s.Gangs[sd.ID] = gang.NewGang(sd.ID, sd.Name, sd.Color)
		created = append(created, sd.ID)

		if sd.LeaderID != "" {
			if err := o.assign(sd.LeaderID, sd.ID, true); err != nil {
				return failed[[]string](s, err)
			}
		}
		for _, mid := range sd.MemberIDs {
			if mid == sd.LeaderID {
				continue
			}
			if err := o.assign(mid, sd.ID, false); err != nil {
				return failed[[]string](s, err)
			}
		}
	}

	standing := 0
	for _, g := range o.s.Gangs {
		if !g.Collapsed {
			standing++
		}
	}
	share := 1.0 / float64(standing)
	for _, g := range o.s.Gangs {
		if g.Collapsed {
			g.TerritoryControl = 0
			continue
		}
		g.TerritoryControl = share
	}
	if len(o.s.Guards) == 0 {
		for _, g := range gang.DefaultGuards() {
			o.s.Guards[g.ID] = g
		}
	}

	o.log.Info("gangs initialized", "count", len(created), "members", len(o.s.Members))
	return done(o, created, plural(len(created), "gang")+" formed in the yard")
}

// AssignToGang moves a member into a gang. Unknown members get a fresh
// status record. Leaving a previous gang runs succession and the collapse
// check there.
func (e *Engine) AssignToGang(s *gang.State, memberID, gangID string, isLeader bool) Result[*gang.Member] {
	const opName = "assign to gang"
	if memberID == "" || gangID == "" {
		return failed[*gang.Member](s, validationf(opName, "member and gang ids are required"))
	}
	o, err := e.begin(opName, s)
	if err != nil {
		return failed[*gang.Member](s, err)
	}
	if err := o.assign(memberID, gangID, isLeader); err != nil {
		return failed[*gang.Member](s, err)
	}
	m := o.s.Members[memberID]
	g := o.s.Gangs[gangID]
	return done(o, m, o.Name(memberID)+" joined "+g.Name+" as "+string(m.Rank))
}

// RemoveFromGang makes a member independent.
func (e *Engine) RemoveFromGang(s *gang.State, memberID string) Result[*gang.Member] {
	const opName = "remove from gang"
	o, err := e.begin(opName, s)
	if err != nil {
		return failed[*gang.Member](s, err)
	}
	m, ok := o.s.Members[memberID]
	if !ok {
		return failed[*gang.Member](s, validationf(opName, "unknown member %q", memberID))
	}
	if m.GangID == "" {
		return failed[*gang.Member](s, conflictf(opName, "%s is not in a gang", o.Name(memberID)))
	}
	gname := o.gangName(m.GangID)
	o.leave(m)
	return done(o, m, o.Name(memberID)+" left "+gname)
}

// PromoteNewGangLeader fills a vacant leadership. The value is the new
// leader's ID, empty if nobody was eligible.
func (e *Engine) PromoteNewGangLeader(s *gang.State, gangID string) Result[string] {
	const opName = "promote leader"
	o, err := e.begin(opName, s)
	if err != nil {
		return failed[string](s, err)
	}
	g, ok := o.s.Gangs[gangID]
	if !ok {
		return failed[string](s, validationf(opName, "unknown gang %q", gangID))
	}
	if g.LeaderID != "" {
		return failed[string](s, conflictf(opName, "%s is already led by %s", g.Name, o.Name(g.LeaderID)))
	}
	id := o.succeed(g)
	if id == "" {
		return done(o, "", "nobody in "+g.Name+" can take over")
	}
	return done(o, id, o.Name(id)+" now leads "+g.Name)
}

func (o *op) assign(memberID, gangID string, leader bool) error {
	g, ok := o.s.Gangs[gangID]
	if !ok {
		return validationf(o.name, "unknown gang %q", gangID)
	}
	if g.Collapsed {
		return conflictf(o.name, "%s has collapsed", g.Name)
	}
	m := o.s.Member(memberID)
	if m.Killed {
		return conflictf(o.name, "%s is dead", o.Name(memberID))
	}

	if m.GangID == gangID {
		if !leader || g.LeaderID == memberID {
			return conflictf(o.name, "%s is already in %s", o.Name(memberID), g.Name)
		}
	} else if m.GangID != "" {
		o.leave(m)
	}

	wasLeader := g.LeaderID == memberID
	switch {
	case leader:
		if g.LeaderID != "" && g.LeaderID != memberID {
			if old, ok := o.s.Members[g.LeaderID]; ok {
				old.Rank = gang.RankLieutenant
			}
		}
		g.LeaderID = memberID
		m.Rank = gang.RankLeader
		if !wasLeader {
			m.AddRisk(0.5)
		}
	case g.LeaderID != "":
		m.Rank = gang.RankSoldier
	default:
		m.Rank = gang.RankRecruit
	}

	m.GangID = gangID
	g.AddMember(memberID)
	o.emit(Event{
		Category:    CatMembership,
		ActorID:     memberID,
		GangID:      gangID,
		Description: o.Name(memberID) + " joined " + g.Name + " as " + string(m.Rank),
	})
	return nil
}

// leave detaches a living member from their gang, then fills any leadership
// vacancy and checks whether the gang still stands.
func (o *op) leave(m *gang.Member) {
	g := o.s.Gangs[m.GangID]
	m.FormerGangID = m.GangID
	m.GangID = ""
	m.Rank = gang.RankIndependent
	if g == nil {
		return
	}
	wasLeader := g.RemoveMember(m.ID)
	o.emit(Event{
		Category:    CatMembership,
		ActorID:     m.ID,
		GangID:      g.ID,
		Description: o.Name(m.ID) + " left " + g.Name,
	})
	o.afterLoss(g, wasLeader)
}

// kill marks a member dead and removes them from their gang. Rank is kept
// so death penalties can tell whether a leader fell.
func (o *op) kill(m *gang.Member, killer string) {
	m.Killed = true
	m.KilledBy = killer
	m.KilledAt = o.now
	m.Imprisoned = false
	if m.GangID == "" {
		return
	}
	g := o.s.Gangs[m.GangID]
	m.FormerGangID = m.GangID
	m.GangID = ""
	if g == nil {
		return
	}
	wasLeader := g.RemoveMember(m.ID)
	o.afterLoss(g, wasLeader)
}

func (o *op) afterLoss(g *gang.Gang, wasLeader bool) {
	if wasLeader {
		o.succeed(g)
	}
	o.collapseIfHollow(g)
}

// succeed promotes the strongest eligible member and returns their ID.
func (o *op) succeed(g *gang.Gang) string {
	var candidates []*gang.Member
	for _, m := range o.s.LivingMembers(g) {
		if !m.Imprisoned {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		o.log.Debug("no successor available", "gang", g.ID)
		return ""
	}
	slices.SortFunc(candidates, func(a, b *gang.Member) int {
		if c := cmp.Compare(b.Rank.SuccessionPriority(), a.Rank.SuccessionPriority()); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Respect, a.Respect); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	heir := candidates[0]
	heir.Rank = gang.RankLeader
	heir.AddRespect(10)
	heir.AddRisk(0.5)
	g.LeaderID = heir.ID

	o.emit(Event{
		Category:    CatSuccession,
		ActorID:     heir.ID,
		GangID:      g.ID,
		Description: o.Name(heir.ID) + " took over " + g.Name,
	})
	o.log.Info("leader succeeded", "gang", g.ID, "leader", heir.ID)
	return heir.ID
}

// collapseIfHollow executes the leader of a gang that has no living members
// besides the leader. It returns the executed leader's ID, if any, and
// whether the gang collapsed.
func (o *op) collapseIfHollow(g *gang.Gang) (string, bool) {
	if g.Collapsed {
		return "", false
	}
	for _, m := range o.s.LivingMembers(g) {
		if m.ID != g.LeaderID {
			return "", false
		}
	}

	executed := ""
	if leader, ok := o.s.Members[g.LeaderID]; ok && leader.Alive() {
		executed = leader.ID
		leader.Killed = true
		leader.KilledBy = SystemKiller
		leader.KilledAt = o.now
		leader.Imprisoned = false
		leader.FormerGangID = g.ID
		leader.GangID = ""
		g.RemoveMember(leader.ID)
		o.emit(Event{
			Category:    CatDeath,
			TargetID:    leader.ID,
			GangID:      g.ID,
			Description: o.Name(leader.ID) + " was executed as " + g.Name + " fell apart",
		})
	}

	g.Resources = 0
	g.Reputation = 0
	g.TerritoryControl = 0
	g.Collapsed = true
	o.emit(Event{Category: CatCollapse, GangID: g.ID, Description: g.Name + " collapsed"})
	o.log.Info("gang collapsed", "gang", g.ID, "executed", executed)
	return executed, true
}

func (o *op) gangName(id string) string {
	if g, ok := o.s.Gangs[id]; ok {
		return g.Name
	}
	return id
}
