package campaign

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Snapshot is the serializable form of a campaign: the turn records so far
// plus the mutable state needed to resume.
type Snapshot struct {
	Version int            `json:"version"`
	SimData []TurnRecord   `json:"sim_data"`
	State   SnapshotState  `json:"state"`
	Logs    []LogEntry     `json:"logs,omitempty"`
}

type SnapshotState struct {
	Resources   Resources             `json:"resources"`
	Units       map[string]int64      `json:"units"`
	Competitors []SnapshotCompetitor  `json:"competitors"`
	Sentiment   float64               `json:"sentiment"`
	Stress      float64               `json:"stress"`
	Liquidity   float64               `json:"liquidity"`
	Leadership  float64               `json:"leadership_quality"`
	Market      string                `json:"current_market"`
	Economy     string                `json:"current_economy"`
	Quarter     string                `json:"current_quarter"`
	Turn        int                   `json:"turn"`
	TurnLimit   int                   `json:"turn_limit"`
	InvestDist  []int                 `json:"invest_dist"`
	Verdict     Verdict               `json:"verdict"`
	Seed        int64                 `json:"seed"`
}

type SnapshotCompetitor struct {
	Name        string           `json:"name"`
	Units       map[string]int64 `json:"units"`
	Sentiment   float64          `json:"sentiment"`
	Personality Personality      `json:"competitor_ai"`
	Memory      []Outcome        `json:"memory,omitempty"`
}

const snapshotVersion = 1

// Snapshot captures the engine's current position.
func (e *Engine) Snapshot() Snapshot {
	st := e.state
	snap := Snapshot{
		Version: snapshotVersion,
		SimData: append([]TurnRecord(nil), e.history...),
		Logs:    append([]LogEntry(nil), e.logs...),
		State: SnapshotState{
			Resources:  st.Resources,
			Units:      budgetsByKey(st.Units),
			Sentiment:  st.Sentiment,
			Stress:     st.Stress,
			Liquidity:  st.Liquidity,
			Leadership: st.Leadership,
			Market:     st.Market,
			Economy:    st.Economy,
			Quarter:    st.Quarter,
			Turn:       e.turn,
			TurnLimit:  e.turnLimit,
			InvestDist: append([]int(nil), e.investDist...),
			Verdict:    e.verdict,
			Seed:       e.seed,
		},
	}
	for _, comp := range st.Competitors {
		snap.State.Competitors = append(snap.State.Competitors, SnapshotCompetitor{
			Name:        comp.Name,
			Units:       budgetsByKey(comp.Units),
			Sentiment:   comp.Sentiment,
			Personality: comp.AI.Personality(),
			Memory:      append([]Outcome(nil), comp.AI.memory...),
		})
	}
	return snap
}

// Restore rebuilds an engine from a snapshot. The random stream restarts
// from the given seed, so a restored campaign is reproducible but not a
// bitwise continuation of the saved one.
func Restore(snap Snapshot, seed int64, opts Options) (*Engine, error) {
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSnapshotVersion, snap.Version, snapshotVersion)
	}
	if len(snap.State.Competitors) == 0 {
		return nil, ErrNoCompetitors
	}
	opts.Seed = seed
	opts.TurnLimit = snap.State.TurnLimit
	if opts.TurnLimit <= 0 {
		opts.TurnLimit = snap.State.Turn + 1
	}
	if len(snap.State.InvestDist) == len(UnitKeys) {
		opts.InvestDist = snap.State.InvestDist
	}
	var names []string
	for _, c := range snap.State.Competitors {
		names = append(names, c.Name)
	}
	opts.Competitors = names

	e, err := New(opts)
	if err != nil {
		return nil, err
	}
	st := snap.State
	e.turn = st.Turn
	e.verdict = st.Verdict
	if e.verdict == "" {
		e.verdict = VerdictRunning
	}
	e.history = append([]TurnRecord(nil), snap.SimData...)
	e.logs = append([]LogEntry(nil), snap.Logs...)

	e.state.Resources = st.Resources
	e.state.Sentiment = st.Sentiment
	e.state.Stress = st.Stress
	e.state.Liquidity = st.Liquidity
	if st.Leadership > 0 {
		e.state.Leadership = st.Leadership
	}
	e.state.Market = st.Market
	e.state.Economy = st.Economy
	e.state.Quarter = st.Quarter
	restoreBudgets(e.state.Units, st.Units)

	for i, sc := range st.Competitors {
		comp := e.state.Competitors[i]
		comp.Sentiment = sc.Sentiment
		restoreBudgets(comp.Units, sc.Units)
		if sc.Personality != "" {
			comp.AI.SetPersonality(sc.Personality)
		}
		for _, m := range sc.Memory {
			comp.AI.Observe(m)
		}
	}
	return e, nil
}

// SaveFile writes the snapshot as indented JSON.
func (s Snapshot) SaveFile(path string) error {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return os.WriteFile(path, raw, 0o600)
}

// LoadFile reads a snapshot written by SaveFile.
func LoadFile(path string) (Snapshot, error) {
	var snap Snapshot
	raw, err := os.ReadFile(path)
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return snap, fmt.Errorf("decode campaign snapshot: %w", err)
	}
	return snap, nil
}

func budgetsByKey(units []*Unit) map[string]int64 {
	out := make(map[string]int64, len(units))
	for _, u := range units {
		out[u.Key] = u.Budget
	}
	return out
}

func restoreBudgets(units []*Unit, budgets map[string]int64) {
	for _, u := range units {
		if b, ok := budgets[u.Key]; ok {
			u.Budget = b
		}
	}
}
