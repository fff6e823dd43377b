package engine

import (
	"fmt"

	"github.com/talgya/cellblock/internal/gang"
)

// Interaction kinds.
const (
	InteractionNone        = "none"
	InteractionViolence    = "violence"
	InteractionRecruitment = "recruitment"
	InteractionLoyalty     = "loyalty"
)

// InteractionOutcome describes what a conversation turn set off.
type InteractionOutcome struct {
	Kind        string           `json:"kind"`
	Violence    *ViolenceOutcome `json:"violence,omitempty"`
	Recruitment *RecruitOutcome  `json:"recruitment,omitempty"`
}

// ProcessGangInteraction is called once per conversational turn between two
// personalities. Rivals may come to blows, ranked members may pitch
// outsiders, and members of the same gang bond.
func (e *Engine) ProcessGangInteraction(s *gang.State, speakerID, listenerID string) Result[InteractionOutcome] {
	const opName = "interaction"
	if speakerID == "" || listenerID == "" || speakerID == listenerID {
		return failed[InteractionOutcome](s, validationf(opName, "need two distinct personalities"))
	}
	o, err := e.begin(opName, s)
	if err != nil {
		return failed[InteractionOutcome](s, err)
	}
	out := InteractionOutcome{Kind: InteractionNone}
	sp, ok1 := o.s.Members[speakerID]
	ls, ok2 := o.s.Members[listenerID]
	if !ok1 || !ok2 || !sp.Active() || !ls.Active() {
		return done(o, out, "")
	}
	cfg := o.s.Config

	switch {
	case AreRivals(o.s, speakerID, listenerID):
		if !o.roll(cfg.ViolenceFrequency) {
			return done(o, out, "")
		}
		v := o.violence(sp, ls)
		out.Kind = InteractionViolence
		out.Violence = &v
		return done(o, out, o.describeViolence(v))

	case sp.GangID != "" && sp.GangID == ls.GangID:
		sp.AddLoyalty(2)
		ls.AddLoyalty(2)
		out.Kind = InteractionLoyalty
		o.emit(Event{Category: CatLoyalty, ActorID: sp.ID, TargetID: ls.ID, GangID: sp.GangID,
			Description: fmt.Sprintf("%s and %s closed ranks", o.Name(sp.ID), o.Name(ls.ID))})
		return done(o, out, "")

	case ranked(sp) && ls.GangID != sp.GangID:
		if !o.roll(cfg.RecruitmentFrequency) {
			return done(o, out, "")
		}
		rec, msg, err := o.recruit(sp.GangID, ls.ID)
		if err != nil {
			return failed[InteractionOutcome](s, err)
		}
		out.Kind = InteractionRecruitment
		out.Recruitment = &rec
		return done(o, out, msg)
	}
	return done(o, out, "")
}

func ranked(m *gang.Member) bool {
	return m.GangID != "" && (m.Rank == gang.RankLeader || m.Rank == gang.RankLieutenant)
}
