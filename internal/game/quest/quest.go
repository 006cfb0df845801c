// Package quest tracks per-profile quest progress and hands out completion
// rewards. Definitions are read-only catalog data; only Progress is profile
// state.
package quest

import (
	"time"

	"jetgo.dev/internal/content"
	"jetgo.dev/internal/game/gameerr"
	"jetgo.dev/internal/game/item"
)

type Status string

const (
	StatusLocked            Status = "Locked"
	StatusAvailableForStart Status = "AvailableForStart"
	StatusStarted           Status = "Started"
	StatusSuccess           Status = "Success"
	StatusFail              Status = "Fail"
)

// Progress is one profile's state for one quest.
type Progress struct {
	QuestID   string `json:"qid"`
	Status    Status `json:"status"`
	StartedAt int64  `json:"started_at,omitempty"`
}

// Log is a profile's quest progress list. Order is acceptance order.
type Log struct {
	Entries []Progress `json:"entries,omitempty"`
}

func (l *Log) find(questID string) *Progress {
	for n := range l.Entries {
		if l.Entries[n].QuestID == questID {
			return &l.Entries[n]
		}
	}
	return nil
}

// StatusOf reports the tracked status, StatusLocked when untracked.
func (l *Log) StatusOf(questID string) Status {
	if p := l.find(questID); p != nil {
		return p.Status
	}
	return StatusLocked
}

// SuccessSet collects the ids of completed quests, the shape trader
// assortment gating consumes.
func (l *Log) SuccessSet() map[string]bool {
	out := make(map[string]bool, len(l.Entries))
	for _, p := range l.Entries {
		if p.Status == StatusSuccess {
			out[p.QuestID] = true
		}
	}
	return out
}

// Service applies quest transitions against a profile's Log.
type Service struct {
	content *content.Content
	factory *item.Factory

	// Now stamps quest acceptance; replaced in tests.
	Now func() time.Time
}

func NewService(c *content.Content, f *item.Factory) *Service {
	return &Service{content: c, factory: f, Now: time.Now}
}

func (s *Service) def(questID string) (content.QuestDef, error) {
	d, ok := s.content.Quests.Defs[questID]
	if !ok {
		return content.QuestDef{}, gameerr.NotFound("quest %s", questID)
	}
	return d, nil
}

// Accept moves a quest to Started. Already-running or finished quests are
// rejected.
func (s *Service) Accept(log *Log, questID string) error {
	if _, err := s.def(questID); err != nil {
		return err
	}
	switch log.StatusOf(questID) {
	case StatusStarted:
		return gameerr.InvalidOperation("quest %s already started", questID)
	case StatusSuccess, StatusFail:
		return gameerr.InvalidOperation("quest %s already finished", questID)
	}
	if p := log.find(questID); p != nil {
		p.Status = StatusStarted
		p.StartedAt = s.Now().Unix()
		return nil
	}
	log.Entries = append(log.Entries, Progress{
		QuestID:   questID,
		Status:    StatusStarted,
		StartedAt: s.Now().Unix(),
	})
	return nil
}

// Complete moves a Started quest to Success and mints its reward stacks.
// The caller places the stacks; a placement failure upstream discards the
// whole profile mutation, so minting before placement is safe.
func (s *Service) Complete(log *Log, questID string) ([]item.ItemWithChildren, error) {
	d, err := s.def(questID)
	if err != nil {
		return nil, err
	}
	p := log.find(questID)
	if p == nil || p.Status != StatusStarted {
		return nil, gameerr.InvalidOperation("quest %s is not started", questID)
	}

	var rewards []item.ItemWithChildren
	for _, r := range d.Rewards {
		count := r.Count
		if count <= 0 {
			count = 1
		}
		stacks, err := s.factory.CreateItems(r.Tpl, count)
		if err != nil {
			return nil, err
		}
		rewards = append(rewards, stacks...)
	}

	p.Status = StatusSuccess
	return rewards, nil
}
