// Package session persists and restores a dashboard layout: which curves
// were plotted in which chart, so a user's workspace survives a restart.
package session

import (
	"encoding/json"
	"fmt"
	"os"
)

// Session is the full saved workspace: an ordered list of dashboard slots,
// each either a graph naming the curves it plotted or an empty slot.
type Session struct {
	Dashboard []DashboardItem `json:"dashboard"`
}

// New returns an empty session.
func New() *Session {
	return &Session{}
}

// AddItem appends one dashboard slot.
func (s *Session) AddItem(item DashboardItem) {
	s.Dashboard = append(s.Dashboard, item)
}

// DashboardItemKind discriminates the DashboardItem variants.
type DashboardItemKind string

const (
	DashboardGraph DashboardItemKind = "graph"
	DashboardEmpty DashboardItemKind = "empty"
)

// DashboardItem is one slot in the dashboard layout: either a graph
// listing the names of the curves it plotted, or an empty placeholder.
type DashboardItem struct {
	Kind   DashboardItemKind
	Curves []string
}

// NewGraphItem returns a dashboard slot plotting the named curves.
func NewGraphItem(curves []string) DashboardItem {
	return DashboardItem{Kind: DashboardGraph, Curves: curves}
}

// NewEmptyItem returns an empty dashboard slot.
func NewEmptyItem() DashboardItem {
	return DashboardItem{Kind: DashboardEmpty}
}

type dashboardItemWire struct {
	Type   DashboardItemKind `json:"type"`
	Curves []string          `json:"curves,omitempty"`
}

func (d DashboardItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(dashboardItemWire{Type: d.Kind, Curves: d.Curves})
}

func (d *DashboardItem) UnmarshalJSON(data []byte) error {
	var wire dashboardItemWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("session: decode dashboard item: %w", err)
	}
	switch wire.Type {
	case DashboardGraph:
		*d = DashboardItem{Kind: DashboardGraph, Curves: wire.Curves}
	case DashboardEmpty:
		*d = DashboardItem{Kind: DashboardEmpty}
	default:
		return fmt.Errorf("session: unknown dashboard item type %q", wire.Type)
	}
	return nil
}

// Save writes the session as indented JSON to path.
func Save(path string, s *Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("session: write %s: %w", path, err)
	}
	return nil
}

// Load reads and decodes a session previously written by Save.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("session: read %s: %w", path, err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", path, err)
	}
	return &s, nil
}
