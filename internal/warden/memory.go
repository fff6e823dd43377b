package warden

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const (
	maxRecords    = 10
	promptRecords = 5 // how many recent records go into the prompt
)

// CycleRecord captures what happened in a single warden cycle.
type CycleRecord struct {
	Tick        uint64  `json:"tick"`
	Action      string  `json:"action"`
	CrisisLevel string  `json:"crisis_level"`
	TopShare    float64 `json:"top_share"`
	Deaths      int     `json:"deaths"`
	Rationale   string  `json:"rationale,omitempty"`
}

// CycleMemory is a ring of recent cycle records kept in a JSON file.
type CycleMemory struct {
	Records []CycleRecord `json:"records"`

	path string
}

// LoadMemory reads the memory file at path. Returns empty memory if it is
// missing or unreadable.
func LoadMemory(path string) *CycleMemory {
	data, err := os.ReadFile(path)
	if err != nil {
		return &CycleMemory{path: path}
	}
	var mem CycleMemory
	if err := json.Unmarshal(data, &mem); err != nil {
		slog.Warn("warden memory corrupted, starting fresh", "error", err)
		return &CycleMemory{path: path}
	}
	mem.path = path
	return &mem
}

// Save writes the memory back to its file.
func (m *CycleMemory) Save() error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal warden memory: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("write warden memory: %w", err)
	}
	return nil
}

// Record adds a cycle record, trimming to maxRecords.
func (m *CycleMemory) Record(r CycleRecord) {
	m.Records = append(m.Records, r)
	if len(m.Records) > maxRecords {
		m.Records = m.Records[len(m.Records)-maxRecords:]
	}
}

// FormatForPrompt summarizes the last few cycles.
func (m *CycleMemory) FormatForPrompt() string {
	if m == nil || len(m.Records) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Recent Warden Cycles\n")
	start := max(len(m.Records)-promptRecords, 0)
	for _, r := range m.Records[start:] {
		fmt.Fprintf(&b, "- Tick %d: action=%s, crisis=%s, top share=%.2f, deaths=%d\n",
			r.Tick, r.Action, r.CrisisLevel, r.TopShare, r.Deaths)
	}
	return b.String()
}
