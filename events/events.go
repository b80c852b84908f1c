// Package events publishes tournament changes to consumers outside the process.
package events

import (
	"context"
	"time"

	"github.com/Dosada05/tournament-manager/models"
)

type Type string

const (
	TypeCreated       Type = "tournament.created"
	TypeActionApplied Type = "tournament.action_applied"
	TypeFinished      Type = "tournament.finished"
	TypeArchived      Type = "tournament.archived"
	TypeDeleted       Type = "tournament.deleted"
)

type Event struct {
	Type         Type                    `json:"type"`
	TournamentID string                  `json:"tournament_id"`
	Version      int                     `json:"version"`
	Status       models.TournamentStatus `json:"status,omitempty"`
	ActionType   string                  `json:"action_type,omitempty"`
	ChampionID   *int                    `json:"champion_id,omitempty"`
	OccurredAt   time.Time               `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event. Used when Redis is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
