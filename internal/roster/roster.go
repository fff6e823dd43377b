// Package roster names the inmates and gives each one a fixed temperament.
// Everything is derived from the yard seed and the inmate id, so a reloaded
// yard keeps the same names and grudges without storing them.
package roster

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/talgya/cellblock/internal/gang"
)

// Temper is the broad personality class of an inmate.
type Temper uint8

const (
	Quiet      Temper = iota // low grit, low drive: keeps their head down
	Hothead                  // low grit, high drive: volatile
	Heavy                    // high grit, low drive: feared, patient
	ShotCaller               // high grit, high drive
)

var temperNames = [...]string{"quiet", "hothead", "heavy", "shot-caller"}

func (t Temper) String() string {
	if int(t) < len(temperNames) {
		return temperNames[t]
	}
	return "unknown"
}

// Temperament is the fixed disposition of one inmate.
type Temperament struct {
	Grit  float64 `json:"grit"`  // 0–1, standing and toughness
	Drive float64 `json:"drive"` // 0–1, ambition and aggression
}

// Class buckets the temperament.
func (t Temperament) Class() Temper {
	switch hiGrit, hiDrive := t.Grit > 0.5, t.Drive > 0.5; {
	case !hiGrit && !hiDrive:
		return Quiet
	case !hiGrit && hiDrive:
		return Hothead
	case hiGrit && !hiDrive:
		return Heavy
	default:
		return ShotCaller
	}
}

// Roster derives inmate identities from a seed.
type Roster struct {
	seed int64
}

// New returns a roster for the given yard seed.
func New(seed int64) *Roster {
	return &Roster{seed: seed}
}

// ID returns the canonical id of the nth inmate (zero-based).
func ID(n int) string {
	return fmt.Sprintf("inmate-%03d", n+1)
}

func (r *Roster) rng(id string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(id))
	return rand.New(rand.NewSource(r.seed ^ int64(h.Sum64())))
}

// Name returns the display name of id, with a yard nickname.
func (r *Roster) Name(id string) string {
	rng := r.rng(id)
	first := firstNames[rng.Intn(len(firstNames))]
	last := lastNames[rng.Intn(len(lastNames))]
	nick := nicknames[rng.Intn(len(nicknames))]
	return fmt.Sprintf("%s %q %s", first, nick, last)
}

// Temperament returns the fixed temperament of id.
func (r *Roster) Temperament(id string) Temperament {
	rng := r.rng(id)
	// skip the name draws
	rng.Intn(len(firstNames))
	rng.Intn(len(lastNames))
	rng.Intn(len(nicknames))
	return Temperament{
		Grit:  clamp(rng.NormFloat64()*0.2+0.4, 0, 1),
		Drive: clamp(rng.NormFloat64()*0.2+0.45, 0, 1),
	}
}

// Affinity scores how well a and b get on, in [-1, 1]. Similar tempers pull
// together; two shot-callers grate on each other.
func (r *Roster) Affinity(a, b string) float64 {
	if a == b {
		return 1
	}
	ta, tb := r.Temperament(a), r.Temperament(b)
	v := 1 - 2*(math.Abs(ta.Grit-tb.Grit)+math.Abs(ta.Drive-tb.Drive))
	if ta.Class() == ShotCaller && tb.Class() == ShotCaller {
		v -= 0.5
	}
	return clamp(v, -1, 1)
}

// Populate fills the default crews with perGang inmates each and adds
// independents who start outside any gang. The inmate with the most grit in
// each crew leads it.
func (r *Roster) Populate(s *gang.State, perGang, independents int) []gang.Seed {
	seeds := gang.DefaultSeeds()
	n := 0
	for i := range seeds {
		best := -1.0
		for range perGang {
			id := ID(n)
			n++
			seeds[i].MemberIDs = append(seeds[i].MemberIDs, id)
			if g := r.Temperament(id).Grit; g > best {
				best = g
				seeds[i].LeaderID = id
			}
		}
	}
	for range independents {
		id := ID(n)
		n++
		s.Members[id] = gang.NewMember(id)
	}
	return seeds
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

var firstNames = []string{
	"Marcus", "Dante", "Luis", "Terrell", "Victor", "Ray", "Andre", "Hector",
	"Curtis", "Manny", "Dwayne", "Felix", "Omar", "Rico", "Calvin", "Jerome",
	"Tomas", "Nico", "Darnell", "Ivan", "Leon", "Frank", "Eddie", "Sal",
}

var lastNames = []string{
	"Alvarez", "Brooks", "Castillo", "Dawson", "Ellis", "Fuentes", "Grant",
	"Hayes", "Ibarra", "Jenkins", "Keller", "Lozano", "Mercer", "Navarro",
	"Ortega", "Pryor", "Quinn", "Reyes", "Sutton", "Tate", "Vance", "Whitaker",
}

var nicknames = []string{
	"Smiles", "Ghost", "Tank", "Preacher", "Lucky", "Bones", "Slim", "Doc",
	"Spider", "Cuervo", "Moose", "Books", "Shadow", "Junior", "Sleepy", "Chino",
}
