// Gang context: plain-language summaries of a member's situation, injected
// into character prompts so dialogue reflects life on the block.
package llm

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/cellblock/internal/engine"
	"github.com/talgya/cellblock/internal/gang"
)

// Names resolves a personality ID to a display name. A nil Names, or an
// empty result, falls back to the ID.
type Names func(id string) string

func (n Names) of(id string) string {
	if n != nil {
		if s := n(id); s != "" {
			return s
		}
	}
	return id
}

// GangContext renders what memberID knows about their own standing, their
// crew and the rival crews. It returns "" for personalities that have never
// been part of gang life.
func GangContext(s *gang.State, memberID string, names Names) string {
	info, ok := engine.GetPersonalityGangInfo(s, memberID)
	if !ok {
		return ""
	}
	var b strings.Builder

	if info.Killed {
		fmt.Fprintf(&b, "%s is dead", names.of(memberID))
		if info.KilledBy != "" && info.KilledBy != engine.SystemKiller {
			fmt.Fprintf(&b, ", killed by %s", names.of(info.KilledBy))
		}
		b.WriteString(".\n")
		return b.String()
	}

	if info.GangID == "" {
		b.WriteString("You run with no crew. Every gang on the block is watching to see who you side with.\n")
	} else {
		writeCrew(&b, s, info, names)
	}
	writePersonal(&b, info)
	writeRivals(&b, s, info.GangID)
	return b.String()
}

func writeCrew(b *strings.Builder, s *gang.State, info engine.MemberInfo, names Names) {
	st, _ := engine.GetGangStats(s, info.GangID)
	switch {
	case info.IsLeader:
		fmt.Fprintf(b, "You lead the %s (%s).", info.GangName, info.GangColor)
	case st.LeaderID != "":
		fmt.Fprintf(b, "You are a %s in the %s (%s), answering to %s.", info.Rank, info.GangName, info.GangColor, names.of(st.LeaderID))
	default:
		fmt.Fprintf(b, "You are a %s in the %s (%s). The crew has no leader right now.", info.Rank, info.GangName, info.GangColor)
	}
	if !info.IsLeader {
		for i, m := range engine.GetGangMembers(s, info.GangID) {
			if m.ID != info.ID {
				continue
			}
			pos := i
			if st.LeaderID == "" {
				pos++
			}
			fmt.Fprintf(b, " You are %s in line to take over.", humanize.Ordinal(pos))
		}
	}
	b.WriteString("\n")
	fmt.Fprintf(b, "The crew is %s strong, holds %.0f%% of the yard and has %s in the kitty.",
		humanize.Comma(int64(st.Members)), st.Territory*100, "$"+humanize.Comma(int64(st.Money)))
	if st.DrugsStash > 0 {
		fmt.Fprintf(b, " There is %dg of product in the stash.", st.DrugsStash)
	}
	b.WriteString("\n")
}

func writePersonal(b *strings.Builder, info engine.MemberInfo) {
	var notes []string
	if info.Imprisoned {
		notes = append(notes, "you are locked in solitary")
	}
	if len(info.Weapons) > 0 {
		var ws []string
		for _, w := range info.Weapons {
			ws = append(ws, w.Name)
		}
		notes = append(notes, "you carry "+strings.Join(ws, " and "))
	}
	if info.Hits > 0 {
		notes = append(notes, fmt.Sprintf("you have been in %d %s", info.Hits, plural(info.Hits, "fight")))
	}
	switch {
	case info.Respect >= 75:
		notes = append(notes, "the block fears you")
	case info.Respect <= 10:
		notes = append(notes, "nobody takes you seriously yet")
	}
	if info.DeathRisk >= 2 {
		notes = append(notes, "there is a target on your back")
	}
	if info.Earnings > 0 {
		notes = append(notes, "you have moved $"+humanize.Comma(int64(info.Earnings))+" of product")
	}
	if len(info.Trophies) > 0 {
		notes = append(notes, "you wear your "+string(info.Trophies[len(info.Trophies)-1]))
	}
	if len(notes) == 0 {
		return
	}
	s := strings.Join(notes, "; ")
	b.WriteString(strings.ToUpper(s[:1]) + s[1:] + ".\n")
}

func writeRivals(b *strings.Builder, s *gang.State, own string) {
	var rivals []string
	for _, st := range engine.AllGangStats(s) {
		if st.ID == own || st.Collapsed {
			continue
		}
		rivals = append(rivals, fmt.Sprintf("%s (%.0f%% of the yard)", st.Name, st.Territory*100))
	}
	if len(rivals) == 0 {
		return
	}
	fmt.Fprintf(b, "Rival crews: %s.\n", strings.Join(rivals, ", "))
}

// ModifyPromptForGang frames prompt with the member's gang context. Prompts
// for personalities outside gang life are returned unchanged.
func ModifyPromptForGang(s *gang.State, memberID, prompt string, names Names) string {
	ctx := GangContext(s, memberID, names)
	if ctx == "" {
		return prompt
	}
	return "[Life on the block]\n" + ctx +
		"Let this shape your tone and loyalties, but do not recite it.\n\n" + prompt
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
