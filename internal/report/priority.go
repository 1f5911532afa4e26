package report

import (
	"fmt"
	"strings"
)

type Level string

const (
	LevelHigh Level = "High"
	LevelLow  Level = "Low"
)

type Quadrant string

const (
	QuadrantQuickWins      Quadrant = "QuickWins"
	QuadrantMajorProjects  Quadrant = "MajorProjects"
	QuadrantFillIns        Quadrant = "FillIns"
	QuadrantThanklessTasks Quadrant = "ThanklessTasks"
)

type MatrixItem struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Impact    Level    `json:"impact"`
	Effort    Level    `json:"effort"`
	Quadrant  Quadrant `json:"quadrant"`
	Reasoning string   `json:"reasoning"`
	IsTop20   bool     `json:"isTop20"`
}

type Prioritization struct {
	Items   []MatrixItem `json:"items"`
	Summary string       `json:"summary"`
}

// MaxPlanIssues caps how many prioritised issues feed the workplan.
const MaxPlanIssues = 5

// PriorityLabels picks the labels that go into the workplan: items flagged
// as top 20% or sitting in Quick Wins, in list order, first MaxPlanIssues.
// Duplicated labels are kept.
func PriorityLabels(items []MatrixItem) []string {
	out := make([]string, 0, MaxPlanIssues)
	for _, it := range items {
		if len(out) == MaxPlanIssues {
			break
		}
		if it.IsTop20 || it.Quadrant == QuadrantQuickWins {
			out = append(out, it.Label)
		}
	}
	return out
}

// ParseQuadrant accepts the spellings models tend to produce, e.g.
// "Quick Wins", "quick-wins", "QuickWins".
func ParseQuadrant(raw string) (Quadrant, error) {
	key := strings.ToLower(raw)
	key = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key)
	key = strings.TrimSuffix(key, "s")
	switch key {
	case "quickwin":
		return QuadrantQuickWins, nil
	case "majorproject":
		return QuadrantMajorProjects, nil
	case "fillin":
		return QuadrantFillIns, nil
	case "thanklesstask":
		return QuadrantThanklessTasks, nil
	}
	return "", fmt.Errorf("unknown quadrant %q", raw)
}

func ParseLevel(raw string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return LevelHigh, nil
	case "low":
		return LevelLow, nil
	}
	return "", fmt.Errorf("unknown level %q", raw)
}

// QuadrantFor derives the quadrant from impact and effort.
func QuadrantFor(impact, effort Level) Quadrant {
	switch {
	case impact == LevelHigh && effort == LevelLow:
		return QuadrantQuickWins
	case impact == LevelHigh:
		return QuadrantMajorProjects
	case effort == LevelLow:
		return QuadrantFillIns
	default:
		return QuadrantThanklessTasks
	}
}
