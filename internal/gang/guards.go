package gang

// DefaultGuards returns the starting shift roster.
func DefaultGuards() []*Guard {
	return []*Guard{
		{ID: "g-okafor", Name: "Officer Okafor", Corruptibility: 0.15, Alertness: 0.85},
		{ID: "g-reyes", Name: "Officer Reyes", Corruptibility: 0.55, Alertness: 0.40},
		{ID: "g-halloran", Name: "Sergeant Halloran", Corruptibility: 0.75, Alertness: 0.30},
		{ID: "g-birch", Name: "Officer Birch", Corruptibility: 0.35, Alertness: 0.60},
		{ID: "g-vance", Name: "Officer Vance", Corruptibility: 0.65, Alertness: 0.55},
	}
}
