package quest

import (
	"slices"
	"sort"

	"github.com/kasuganosora/textadventure/server/game/item"
)

// Status is the lifecycle stage of a quest. The record itself enforces no
// transitions; game/session decides when a quest moves between stages.
type Status string

const (
	StatusAvailable Status = "available"
	StatusAccepted  Status = "accepted"
	StatusCompleted Status = "completed"
	StatusTurnedIn  Status = "turned_in"
)

// ObjectiveType categorizes a quest objective.
type ObjectiveType string

const (
	ObjectiveKill    ObjectiveType = "kill"
	ObjectiveCollect ObjectiveType = "collect"
	ObjectiveTalk    ObjectiveType = "talk"
	ObjectiveExplore ObjectiveType = "explore"
)

// Objective describes one requirement within a quest.
type Objective struct {
	ID       string        `json:"id" yaml:"id"`
	Type     ObjectiveType `json:"type" yaml:"type"`
	Target   string        `json:"target,omitempty" yaml:"target"`
	Label    string        `json:"label,omitempty" yaml:"label"`
	Required int           `json:"required" yaml:"required"`
	Current  int           `json:"current" yaml:"current"`
}

// Done reports whether the objective has reached its required count.
func (o Objective) Done() bool {
	return o.Current >= o.Required
}

// Rewards is what turning in a quest grants.
type Rewards struct {
	Experience int         `json:"experience" yaml:"experience"`
	Gold       int         `json:"gold" yaml:"gold"`
	Items      []item.Item `json:"items" yaml:"items"`
}

// Quest is a quest definition together with one character's progress.
type Quest struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description" yaml:"description"`
	Type        ObjectiveType `json:"type,omitempty" yaml:"type"`
	Level       int           `json:"level,omitempty" yaml:"level"`
	Objectives  []Objective   `json:"objectives" yaml:"objectives"`
	Rewards     Rewards       `json:"rewards" yaml:"rewards"`
	Status      Status        `json:"status" yaml:"status"`
}

// Clone returns a copy with its own objective and reward slices.
func (q Quest) Clone() Quest {
	q.Objectives = slices.Clone(q.Objectives)
	items := make([]item.Item, len(q.Rewards.Items))
	for i, it := range q.Rewards.Items {
		items[i] = it.Clone()
	}
	q.Rewards.Items = items
	if q.Status == "" {
		q.Status = StatusAvailable
	}
	return q
}

// CanAccept reports whether the quest may be accepted.
func (q Quest) CanAccept() bool { return q.Status == StatusAvailable }

// CanTurnIn reports whether the quest may be turned in.
func (q Quest) CanTurnIn() bool { return q.Status == StatusCompleted }

// IsCompleted reports whether all objectives were met, turned in or not.
func (q Quest) IsCompleted() bool {
	return q.Status == StatusCompleted || q.Status == StatusTurnedIn
}

// ObjectivesMet reports whether every objective is done. A quest without
// objectives is met immediately.
func (q Quest) ObjectivesMet() bool {
	for _, o := range q.Objectives {
		if !o.Done() {
			return false
		}
	}
	return true
}

// UpdateProgress sets the progress of one objective, clamped to its
// required count. An accepted quest whose objectives are all met becomes
// completed. It reports false when the objective does not exist.
func (q *Quest) UpdateProgress(objectiveID string, progress int) bool {
	idx := slices.IndexFunc(q.Objectives, func(o Objective) bool { return o.ID == objectiveID })
	if idx < 0 {
		return false
	}
	obj := &q.Objectives[idx]
	obj.Current = max(0, min(progress, obj.Required))
	if q.Status == StatusAccepted && q.ObjectivesMet() {
		q.Status = StatusCompleted
	}
	return true
}

// ProgressPercentage is the share of summed objective progress, 0–100.
func (q Quest) ProgressPercentage() int {
	if len(q.Objectives) == 0 {
		return 0
	}
	var required, current int
	for _, o := range q.Objectives {
		required += o.Required
		current += o.Current
	}
	if required == 0 {
		return 100
	}
	return min(current*100/required, 100)
}

// ToView projects the quest to a plain map.
func (q Quest) ToView() map[string]any {
	objectives := make([]map[string]any, len(q.Objectives))
	for i, o := range q.Objectives {
		objectives[i] = map[string]any{
			"id":       o.ID,
			"type":     string(o.Type),
			"target":   o.Target,
			"label":    o.Label,
			"required": o.Required,
			"current":  o.Current,
		}
	}
	return map[string]any{
		"id":          q.ID,
		"name":        q.Name,
		"description": q.Description,
		"objectives":  objectives,
		"rewards": map[string]any{
			"experience": q.Rewards.Experience,
			"gold":       q.Rewards.Gold,
			"items":      item.ViewAll(q.Rewards.Items),
		},
		"status": string(q.Status),
	}
}

// ViewAll converts a slice of quests to views.
func ViewAll(quests []Quest) []map[string]any {
	out := make([]map[string]any, len(quests))
	for i, q := range quests {
		out[i] = q.ToView()
	}
	return out
}

var statusOrder = []Status{StatusCompleted, StatusAccepted, StatusAvailable, StatusTurnedIn}

// Sort orders quests by status (completed first, turned in last) and then
// by level ascending.
func Sort(quests []Quest) {
	sort.SliceStable(quests, func(i, j int) bool {
		si := slices.Index(statusOrder, quests[i].Status)
		sj := slices.Index(statusOrder, quests[j].Status)
		if si != sj {
			return si < sj
		}
		return quests[i].Level < quests[j].Level
	})
}

// Filter selects quests. Zero-valued fields do not filter.
type Filter struct {
	Status   Status
	Type     ObjectiveType
	MinLevel int
	MaxLevel int
}

// Apply returns the quests matching f, preserving order.
func (f Filter) Apply(quests []Quest) []Quest {
	out := make([]Quest, 0, len(quests))
	for _, q := range quests {
		if f.Status != "" && q.Status != f.Status {
			continue
		}
		if f.Type != "" && q.Type != f.Type {
			continue
		}
		if f.MinLevel != 0 && q.Level < f.MinLevel {
			continue
		}
		if f.MaxLevel != 0 && q.Level > f.MaxLevel {
			continue
		}
		out = append(out, q)
	}
	return out
}
