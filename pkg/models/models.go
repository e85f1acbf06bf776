// Package models defines the record containers shared by all storage tiers.
package models

import "strconv"

// Collection names. Each one maps to a table in the durable store and to a
// path segment on the remote store.
const (
	CollectionGroups  = "groups"
	CollectionTeams   = "teams"
	CollectionPlayers = "players"
)

// Collections lists every known collection.
func Collections() []string {
	return []string{CollectionGroups, CollectionTeams, CollectionPlayers}
}

// KnownCollection reports whether name is one of the fixed collections.
func KnownCollection(name string) bool {
	switch name {
	case CollectionGroups, CollectionTeams, CollectionPlayers:
		return true
	}
	return false
}

// Record is the generic unit of storage: an id, a write stamp and an opaque
// field map. Synced is local bookkeeping and is never sent to the remote
// store (omitempty keeps it off the wire once cleared).
type Record struct {
	ID        string            `json:"id"`
	UpdatedAt int64             `json:"updatedAt"`
	Synced    bool              `json:"synced,omitempty"`
	Fields    map[string]string `json:"fields"`
}

// Clone returns a deep copy so tiers never alias a caller's field map.
func (r Record) Clone() Record {
	out := r
	out.Fields = make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	return out
}

// Operation is the kind of a queued mutation.
type Operation string

const (
	OpSave   Operation = "save"
	OpDelete Operation = "delete"
)

// QueueEntry is one pending mutation in the sync queue. Entries are ordered
// by their auto-assigned id, which follows EnqueuedAt.
type QueueEntry struct {
	ID         int64
	Collection string
	RecordID   string
	Operation  Operation
	Payload    Record
	EnqueuedAt int64
}

// Key identifies the record a queue entry belongs to.
func (e QueueEntry) Key() string {
	return e.Collection + "/" + e.RecordID
}

// Group is a division of teams, e.g. an age bracket.
type Group struct {
	ID        string
	Name      string
	Season    string
	UpdatedAt int64
}

func (g *Group) ToRecord() Record {
	return Record{
		ID:        g.ID,
		UpdatedAt: g.UpdatedAt,
		Fields: map[string]string{
			"name":   g.Name,
			"season": g.Season,
		},
	}
}

func GroupFromRecord(r Record) Group {
	return Group{
		ID:        r.ID,
		Name:      r.Fields["name"],
		Season:    r.Fields["season"],
		UpdatedAt: r.UpdatedAt,
	}
}

// Team belongs to a group and owns a roster of players.
type Team struct {
	ID        string
	GroupID   string
	Name      string
	City      string
	UpdatedAt int64
}

func (t *Team) ToRecord() Record {
	return Record{
		ID:        t.ID,
		UpdatedAt: t.UpdatedAt,
		Fields: map[string]string{
			"group_id": t.GroupID,
			"name":     t.Name,
			"city":     t.City,
		},
	}
}

func TeamFromRecord(r Record) Team {
	return Team{
		ID:        r.ID,
		GroupID:   r.Fields["group_id"],
		Name:      r.Fields["name"],
		City:      r.Fields["city"],
		UpdatedAt: r.UpdatedAt,
	}
}

// Player carries the raw skill marks the rating engine works from.
type Player struct {
	ID        string
	TeamID    string
	Name      string
	Position  string
	Scoring   int
	Defense   int
	Passing   int
	Stamina   int
	UpdatedAt int64
}

func (p *Player) ToRecord() Record {
	return Record{
		ID:        p.ID,
		UpdatedAt: p.UpdatedAt,
		Fields: map[string]string{
			"team_id":  p.TeamID,
			"name":     p.Name,
			"position": p.Position,
			"scoring":  strconv.Itoa(p.Scoring),
			"defense":  strconv.Itoa(p.Defense),
			"passing":  strconv.Itoa(p.Passing),
			"stamina":  strconv.Itoa(p.Stamina),
		},
	}
}

func PlayerFromRecord(r Record) Player {
	atoi := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}
	return Player{
		ID:        r.ID,
		TeamID:    r.Fields["team_id"],
		Name:      r.Fields["name"],
		Position:  r.Fields["position"],
		Scoring:   atoi(r.Fields["scoring"]),
		Defense:   atoi(r.Fields["defense"]),
		Passing:   atoi(r.Fields["passing"]),
		Stamina:   atoi(r.Fields["stamina"]),
		UpdatedAt: r.UpdatedAt,
	}
}
