package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/tournament-manager/engine"
	"github.com/Dosada05/tournament-manager/middleware"
	"github.com/Dosada05/tournament-manager/models"
	"github.com/Dosada05/tournament-manager/services"
	"github.com/go-chi/chi/v5"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
}

func NewTournamentHandler(ts services.TournamentService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: ts,
	}
}

// Create godoc
// @Summary Создать турнир
// @Tags tournaments
// @Description Создаёт турнир из 18 команд, жеребьёвка по 6 группам выполняется сразу.
// @Accept json
// @Produce json
// @Param input body services.CreateTournamentInput true "Название, вид спорта и 18 команд"
// @Success 201 {object} map[string]interface{} "Турнир создан"
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Security BearerAuth
// @Router /tournaments [post]
func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Import godoc
// @Summary Импорт турнира из файла
// @Tags tournaments
// @Description Текстовый файл: название, вид спорта, затем 18 строк с командами. Принимает multipart-поле "file" или тело запроса.
// @Accept plain
// @Accept mpfd
// @Produce json
// @Param file formData file false "Файл импорта"
// @Success 201 {object} map[string]interface{} "Турнир создан"
// @Failure 400 {object} map[string]string "Некорректный файл"
// @Security BearerAuth
// @Router /tournaments/import [post]
func (h *TournamentHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBodyBytes))

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(int64(maxBodyBytes)); err != nil {
			badRequestResponse(w, r, fmt.Errorf("invalid multipart form: %w", err))
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			badRequestResponse(w, r, errors.New("multipart field \"file\" is required"))
			return
		}
		defer file.Close()
		src = file
	}

	tournament, err := h.tournamentService.Import(r.Context(), src)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// List godoc
// @Summary Список турниров
// @Tags tournaments
// @Produce json
// @Param sport query string false "general или volleyball"
// @Param status query string false "setup, group_stage, playoffs, finished"
// @Param limit query int false "Размер страницы (по умолчанию 50)"
// @Param offset query int false "Смещение"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /tournaments [get]
func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter services.ListTournamentsFilter
	query := r.URL.Query()

	if sportStr := query.Get("sport"); sportStr != "" {
		sport := models.Sport(sportStr)
		filter.Sport = &sport
	}
	if statusStr := query.Get("status"); statusStr != "" {
		status := models.TournamentStatus(statusStr)
		filter.Status = &status
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			badRequestResponse(w, r, errors.New("invalid limit query parameter"))
			return
		}
		filter.Limit = limit
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			badRequestResponse(w, r, errors.New("invalid offset query parameter"))
			return
		}
		filter.Offset = offset
	}

	tournaments, err := h.tournamentService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Get godoc
// @Summary Турнир с текущим снимком состояния
// @Tags tournaments
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID} [get]
func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	tournament, err := h.tournamentService.Get(r.Context(), chi.URLParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Delete godoc
// @Summary Удалить турнир
// @Tags tournaments
// @Param tournamentID path string true "Tournament ID"
// @Success 204 "Удалён"
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID} [delete]
func (h *TournamentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.tournamentService.Delete(r.Context(), chi.URLParam(r, "tournamentID")); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dispatch godoc
// @Summary Применить действие
// @Tags actions
// @Description Принимает конверт {"type": ..., "payload": ...} любого действия, кроме SETUP_TOURNAMENT.
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param action body engine.Envelope true "Действие"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/actions [post]
func (h *TournamentHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var env engine.Envelope
	if err := readJSON(w, r, &env); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if env.Type == engine.ActionSetupTournament {
		badRequestResponse(w, r, errors.New("SETUP_TOURNAMENT is only accepted by POST /tournaments"))
		return
	}

	action, err := env.Action()
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.dispatch(w, r, action)
}

type scoreRequest struct {
	models.ScoreInput
	MatchType models.MatchType `json:"matchType,omitempty"`
}

// UpdateScore godoc
// @Summary Записать или исправить результат матча
// @Tags actions
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param matchID path int true "Match ID"
// @Param score body scoreRequest true "Счёт, зелёные карточки и сеты"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/matches/{matchID}/score [put]
func (h *TournamentHandler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIntParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input scoreRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	h.dispatch(w, r, engine.UpdateMatchScore{MatchID: matchID, Scores: input.ScoreInput, MatchType: input.MatchType})
}

// GeneratePlayoffs godoc
// @Summary Сформировать плей-офф
// @Tags actions
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string "Групповой этап не завершён или плей-офф уже создан"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/playoffs [post]
func (h *TournamentHandler) GeneratePlayoffs(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, engine.GeneratePlayoffs{})
}

// OverrideWinner godoc
// @Summary Назначить победителя матча плей-офф вручную
// @Tags actions
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param matchID path int true "Match ID"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/playoffs/matches/{matchID}/override [post]
func (h *TournamentHandler) OverrideWinner(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIntParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		WinnerID int `json:"winnerId"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	h.dispatch(w, r, engine.OverridePlayoffWinner{MatchID: matchID, WinnerID: input.WinnerID})
}

// RenameTeam godoc
// @Summary Переименовать команду
// @Tags actions
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param teamID path int true "Team ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/teams/{teamID} [patch]
func (h *TournamentHandler) RenameTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIntParam(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	h.dispatch(w, r, engine.EditTeamName{TeamID: teamID, NewName: input.Name})
}

// EditDetails godoc
// @Summary Изменить название и вид спорта
// @Tags actions
// @Accept json
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Param details body engine.EditTournamentDetails true "Название и вид спорта"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /tournaments/{tournamentID} [patch]
func (h *TournamentHandler) EditDetails(w http.ResponseWriter, r *http.Request) {
	var input engine.EditTournamentDetails
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	h.dispatch(w, r, input)
}

func (h *TournamentHandler) dispatch(w http.ResponseWriter, r *http.Request, action engine.Action) {
	id := chi.URLParam(r, "tournamentID")
	if organizer, err := middleware.GetOrganizerEmailFromContext(r.Context()); err == nil {
		slog.Debug("dispatching action", slog.String("tournament_id", id), slog.String("action", string(action.Type())), slog.String("organizer", organizer))
	}

	tournament, err := h.tournamentService.Dispatch(r.Context(), id, action)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Standings godoc
// @Summary Таблицы групп, рейтинг победителей и вторых мест, fair play
// @Tags tournaments
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} models.StandingsView
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID}/standings [get]
func (h *TournamentHandler) Standings(w http.ResponseWriter, r *http.Request) {
	view, err := h.tournamentService.Standings(r.Context(), chi.URLParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// History godoc
// @Summary Журнал применённых действий
// @Tags tournaments
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID}/history [get]
func (h *TournamentHandler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.tournamentService.History(r.Context(), chi.URLParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"actions": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ExportCSV godoc
// @Summary Выгрузка результатов в CSV
// @Tags tournaments
// @Produce text/csv
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {file} file
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID}/export.csv [get]
func (h *TournamentHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	// Буферизуем, чтобы ошибка не пришла после заголовков 200
	var buf bytes.Buffer
	filename, err := h.tournamentService.ExportCSV(r.Context(), chi.URLParam(r, "tournamentID"), &buf)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to write csv export", slog.String("filename", filename), slog.Any("error", err))
	}
}

// Archive godoc
// @Summary Сохранить CSV и JSON снимок в R2
// @Tags tournaments
// @Produce json
// @Param tournamentID path string true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Failure 503 {object} map[string]string "Хранилище не настроено"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/archive [post]
func (h *TournamentHandler) Archive(w http.ResponseWriter, r *http.Request) {
	tournament, err := h.tournamentService.Archive(r.Context(), chi.URLParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
