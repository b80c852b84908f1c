package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ошибки валидации и бизнес-правил
	ErrValidationFailed       = errors.New("validation failed")
	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrGroupStageIncomplete   = errors.New("every group match must be played before generating playoffs")

	// Ошибки конфликтов
	ErrConcurrentModification = errors.New("tournament was changed by another request, reload and retry")
	ErrTournamentBusy         = errors.New("tournament is being updated, try again")

	ErrTournamentNotFound = errors.New("tournament not found")
	ErrArchiveDisabled    = errors.New("archive storage is not configured")
)
