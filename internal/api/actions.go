package api

import (
	"encoding/json"
	"net/http"

	"github.com/talgya/cellblock/internal/engine"
	"github.com/talgya/cellblock/internal/gang"
)

// actionRequest is the body of POST /api/v1/action. Which fields matter
// depends on Type.
type actionRequest struct {
	Type     string          `json:"type"`
	MemberID string          `json:"member_id"`
	TargetID string          `json:"target_id"`
	GangID   string          `json:"gang_id"`
	GuardID  string          `json:"guard_id"`
	Weapon   gang.WeaponType `json:"weapon"`
	Item     gang.ItemType   `json:"item"`
	Leader   bool            `json:"leader"`
}

// handleAction lets an operator or a chat layer invoke any engine mutator.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	st := s.Store

	switch req.Type {
	case "assign":
		writeResult(w, Do(st, func(e *engine.Engine, g *gang.State) engine.Result[*gang.Member] {
			return e.AssignToGang(g, req.MemberID, req.GangID, req.Leader)
		}))
	case "remove":
		writeResult(w, Do(st, func(e *engine.Engine, g *gang.State) engine.Result[*gang.Member] {
			return e.RemoveFromGang(g, req.MemberID)
		}))
	case "promote":
		writeResult(w, Do(st, func(e *engine.Engine, g *gang.State) engine.Result[string] {
			return e.PromoteNewGangLeader(g, req.GangID)
		}))
	case "recruit":
		writeResult(w, Do(st, func(e *engine.Engine, g *gang.State) engine.Result[engine.RecruitOutcome] {
			return e.AttemptRecruitment(g, req.GangID, req.TargetID)
		}))
	case "violence":
		writeResult(w, Do(st, func(e *engine.Engine, g *gang.State) engine.Result[engine.ViolenceOutcome] {
			return e.SimulateViolence(g, req.MemberID, req.TargetID)
		}))
	case "steal":
		writeResult(w, Do(st, func(e *engine.Engine, g *gang.State) engine.Result[gang.Weapon] {
			return e.StealWeapon(g, req.MemberID, req.TargetID)
		}))
	case "bribe":
		writeResult(w, Do(st, func(e *engine.Engine, g *gang.State) engine.Result[engine.BribeOutcome] {
			return e.AttemptGuardBribe(g, req.MemberID, req.Weapon, req.GuardID)
		}))
	case "craft":
		writeResult(w, Do(st, func(e *engine.Engine, g *gang.State) engine.Result[engine.CraftOutcome] {
			return e.CraftWeapon(g, req.MemberID, req.Weapon)
		}))
	case "release_bribe":
		writeResult(w, Do(st, func(e *engine.Engine, g *gang.State) engine.Result[engine.ReleaseOutcome] {
			return e.AttemptPrisonReleaseBribe(g, req.MemberID)
		}))
	case "smuggle":
		writeResult(w, Do(st, func(e *engine.Engine, g *gang.State) engine.Result[engine.SmuggleOutcome] {
			return e.AttemptDrugSmuggling(g, req.MemberID)
		}))
	case "deal":
		writeResult(w, Do(st, func(e *engine.Engine, g *gang.State) engine.Result[engine.DealOutcome] {
			return e.AttemptDrugDealing(g, req.MemberID)
		}))
	case "purchase":
		writeResult(w, Do(st, func(e *engine.Engine, g *gang.State) engine.Result[engine.PurchaseOutcome] {
			return e.PurchasePrisonItem(g, req.GangID, req.Item, req.MemberID)
		}))
	case "item_theft":
		writeResult(w, Do(st, func(e *engine.Engine, g *gang.State) engine.Result[engine.TheftOutcome] {
			return e.AttemptItemTheft(g, req.MemberID, req.GangID, req.Item)
		}))
	case "interaction":
		writeResult(w, Do(st, func(e *engine.Engine, g *gang.State) engine.Result[engine.InteractionOutcome] {
			return e.ProcessGangInteraction(g, req.MemberID, req.TargetID)
		}))
	default:
		http.Error(w, "unknown action type", http.StatusBadRequest)
	}
}
