// Package gang provides the entity model for the cell block: gangs, member
// status, weapons, guards and the bribe log, plus the aggregate State that
// every engine operation consumes and returns.
package gang

import "time"

// Rank is a member's position inside a gang.
type Rank string

const (
	RankLeader      Rank = "leader"
	RankLieutenant  Rank = "lieutenant"
	RankSoldier     Rank = "soldier"
	RankRecruit     Rank = "recruit"
	RankIndependent Rank = "independent"
)

// SuccessionPriority orders candidates for leadership. Higher wins.
func (r Rank) SuccessionPriority() int {
	switch r {
	case RankLieutenant:
		return 4
	case RankSoldier:
		return 3
	case RankRecruit:
		return 2
	case RankIndependent:
		return 1
	default:
		return 0 // leaders never compete for their own seat
	}
}

// Weight is the standing a rank carries in fights and territory disputes (0–1).
func (r Rank) Weight() float64 {
	switch r {
	case RankLeader:
		return 1.0
	case RankLieutenant:
		return 0.6
	case RankSoldier:
		return 0.3
	case RankRecruit:
		return 0.1
	default:
		return 0
	}
}

// WeaponType enumerates the contraband weapons in circulation.
type WeaponType string

const (
	WeaponGun   WeaponType = "gun"
	WeaponShank WeaponType = "shank"
	WeaponChain WeaponType = "chain"
)

// Craftable reports whether a weapon can be made inside the walls.
func (t WeaponType) Craftable() bool {
	return t == WeaponShank || t == WeaponChain
}

// Valid reports whether t is a known weapon type.
func (t WeaponType) Valid() bool {
	switch t {
	case WeaponGun, WeaponShank, WeaponChain:
		return true
	}
	return false
}

// WeaponSource records how a weapon entered a member's inventory.
type WeaponSource string

const (
	FromGuard   WeaponSource = "guard"
	FromStolen  WeaponSource = "stolen"
	FromCrafted WeaponSource = "crafted"
)

// Weapon is a single owned weapon. Durability drops with use; at zero it is gone.
type Weapon struct {
	ID           string       `json:"id"`
	Type         WeaponType   `json:"type"`
	Name         string       `json:"name"`
	Damage       int          `json:"damage"`      // 0–100
	Concealment  float64      `json:"concealment"` // 0–1
	Durability   int          `json:"durability"`
	AcquiredFrom WeaponSource `json:"acquired_from"`
}

// WeaponSpec is the template a new weapon is stamped from.
type WeaponSpec struct {
	Damage      int
	Concealment float64
	Durability  int
	BribeCost   int // base cost before guard corruptibility
	Names       []string
}

// Weapons holds the template for each weapon type.
var Weapons = map[WeaponType]WeaponSpec{
	WeaponGun: {
		Damage:      90,
		Concealment: 0.3,
		Durability:  100,
		BribeCost:   500,
		Names:       []string{"Smuggled .38", "Zip gun", "Snub-nose revolver"},
	},
	WeaponShank: {
		Damage:      35,
		Concealment: 0.9,
		Durability:  60,
		BribeCost:   100,
		Names:       []string{"Toothbrush shank", "Sharpened spoon", "Razor in a handle"},
	},
	WeaponChain: {
		Damage:      50,
		Concealment: 0.6,
		Durability:  80,
		BribeCost:   150,
		Names:       []string{"Padlock in a sock", "Bike chain", "Weighted belt"},
	},
}

// Guard is a corrections officer. The guard pool is shared by every gang.
type Guard struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Corruptibility float64 `json:"corruptibility"` // 0–1
	Alertness      float64 `json:"alertness"`      // 0–1
}

// ReputationTier is how the yard talks about a guard.
func (g Guard) ReputationTier() string {
	switch {
	case g.Corruptibility >= 0.7:
		return "on the take"
	case g.Corruptibility >= 0.45:
		return "negotiable"
	case g.Corruptibility >= 0.2:
		return "by the book"
	default:
		return "incorruptible"
	}
}

// BribeAttempt is an append-only log entry. Never mutated after creation.
type BribeAttempt struct {
	ID         string     `json:"id"`
	MemberID   string     `json:"member_id"`
	WeaponType WeaponType `json:"weapon_type,omitempty"` // empty for release bribes
	Cost       int        `json:"cost"`
	Success    bool       `json:"success"`
	GuardID    string     `json:"guard_id"`
	At         time.Time  `json:"at"`
}

// ItemType enumerates commissary and contraband goods a gang can buy.
type ItemType string

const (
	ItemProstitution ItemType = "prostitution"
	ItemBeer         ItemType = "beer"
	ItemCigarettes   ItemType = "cigarettes"
	ItemPhone        ItemType = "phone"
	ItemLuxuryFood   ItemType = "luxury_food"
)

// ItemSpec is the price and morale payoff of an item.
type ItemSpec struct {
	Name    string
	Cost    int
	Loyalty float64
	Respect float64
}

// Items is the price list.
var Items = map[ItemType]ItemSpec{
	ItemProstitution: {Name: "a conjugal visit", Cost: 300, Loyalty: 15, Respect: 10},
	ItemBeer:         {Name: "pruno beer", Cost: 50, Loyalty: 5, Respect: 2},
	ItemCigarettes:   {Name: "a carton of cigarettes", Cost: 20, Loyalty: 3, Respect: 1},
	ItemPhone:        {Name: "a contraband phone", Cost: 500, Loyalty: 10, Respect: 15},
	ItemLuxuryFood:   {Name: "outside food", Cost: 100, Loyalty: 8, Respect: 5},
}

// Trophy is an unlocked drug-economy achievement.
type Trophy string

const (
	TrophyMedal     Trophy = "medal"
	TrophyCup       Trophy = "trophy"
	TrophyGoldChain Trophy = "gold_chain"
	TrophyCrown     Trophy = "crown"
	TrophyKingpin   Trophy = "kingpin"
)

// TrophyThreshold pairs a trophy with the drug earnings that unlock it.
type TrophyThreshold struct {
	Trophy   Trophy
	Earnings int
}

// TrophyThresholds is ordered by ascending earnings.
var TrophyThresholds = []TrophyThreshold{
	{TrophyMedal, 3500},
	{TrophyCup, 5000},
	{TrophyGoldChain, 10000},
	{TrophyCrown, 20000},
	{TrophyKingpin, 50000},
}
