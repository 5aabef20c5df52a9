package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Dosada05/tournament-registration/services"
)

type ParticipantHandler struct {
	participantService services.ParticipantService
}

func NewParticipantHandler(ps services.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{
		participantService: ps,
	}
}

// Register godoc
// @Summary Зарегистрировать участника (solitaire, team или join)
// @Tags participants
// @Description Принимает JSON или multipart/form-data. В multipart можно приложить teamLogo и parentalConsent (jpg/jpeg, до 2MB).
// @Description Для join по invitationCode вступление проверяется по лимиту команды под блокировкой строки команды.
// @Accept json,mpfd
// @Produce json
// @Param body body services.RegisterParticipantInput true "Данные заявки"
// @Success 201 {object} models.Participant
// @Failure 400 {object} map[string]string "Неверный тип, неизвестный код, команда заполнена"
// @Failure 409 {object} map[string]string "Код приглашения занят"
// @Failure 422 {object} map[string]string "Ошибка валидации"
// @Failure 429 {object} map[string]string "Слишком много запросов"
// @Router /participants [post]
func (h *ParticipantHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterParticipantInput

	if isMultipart(r) {
		closers, err := readRegistrationForm(w, r, &input)
		defer closeAll(closers)
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
	} else if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participant, err := h.participantService.Register(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, participant, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func readRegistrationForm(w http.ResponseWriter, r *http.Request, input *services.RegisterParticipantInput) ([]io.Closer, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBytes)
	if err := r.ParseMultipartForm(maxMultipartBytes); err != nil {
		return nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}

	if raw := strings.TrimSpace(r.FormValue("tournamentId")); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid tournamentId %q", raw)
		}
		input.TournamentID = &id
	}
	if raw := strings.TrimSpace(r.FormValue("isPublic")); raw != "" {
		isPublic, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid isPublic %q", raw)
		}
		input.IsPublic = isPublic
	}
	input.Username = r.FormValue("username")
	input.Rank = r.FormValue("rank")
	input.Platform = r.FormValue("platform")
	input.RegistrationType = r.FormValue("registration_type")
	input.TeamName = r.FormValue("teamName")
	input.TeamTag = r.FormValue("teamTag")
	input.TeamDescription = r.FormValue("teamDescription")
	input.ContactInfo = r.FormValue("contactInfo")
	input.DiscordID = r.FormValue("discordId")
	input.InvitationCode = r.FormValue("invitationCode")

	var closers []io.Closer
	for _, field := range []string{"teamLogo", "parentalConsent"} {
		fh, err := singleFile(r, field)
		if err != nil {
			return closers, err
		}
		if fh == nil {
			continue
		}
		asset, closer, err := assetFromHeader(fh)
		if err != nil {
			return closers, err
		}
		closers = append(closers, closer)
		if field == "teamLogo" {
			input.TeamLogo = asset
		} else {
			input.ParentalConsent = asset
		}
	}
	return closers, nil
}

// singleFile returns the one file under field, enforcing the registration
// upload rules: at most one file, jpg/jpeg, at most 2MB.
func singleFile(r *http.Request, field string) (*multipart.FileHeader, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	files := r.MultipartForm.File[field]
	switch {
	case len(files) == 0:
		return nil, nil
	case len(files) > 1:
		return nil, fmt.Errorf("only one %s file is allowed", field)
	}
	fh := files[0]
	switch strings.ToLower(filepath.Ext(fh.Filename)) {
	case ".jpg", ".jpeg":
	default:
		return nil, fmt.Errorf("%w: %s must be a JPG file", services.ErrUnsupportedAssetType, field)
	}
	if fh.Size > maxRegistrationFileBytes {
		return nil, fmt.Errorf("%s must not be larger than %d bytes", field, maxRegistrationFileBytes)
	}
	return fh, nil
}

// ListParticipants godoc
// @Summary Список заявок
// @Tags participants
// @Produce json
// @Param search query string false "Поиск по имени участника"
// @Param page query int false "Страница (с 1)"
// @Param limit query int false "Размер страницы (по умолчанию 10)"
// @Success 200 {object} services.ParticipantPage
// @Security BearerAuth
// @Router /participants [get]
func (h *ParticipantHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.participantService.List(r.Context(), services.ListParticipantsParams{
		Search: r.URL.Query().Get("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetParticipant godoc
// @Summary Заявка по ID
// @Tags participants
// @Produce json
// @Param participantID path int true "ID заявки"
// @Success 200 {object} models.Participant
// @Failure 404 {object} map[string]string "Не найдена"
// @Security BearerAuth
// @Router /participants/{participantID} [get]
func (h *ParticipantHandler) GetParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participant, err := h.participantService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, participant, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteParticipant godoc
// @Summary Удалить заявку
// @Tags participants
// @Description Для участника команды освобождает место в команде.
// @Param participantID path int true "ID заявки"
// @Success 204 "Удалено"
// @Failure 404 {object} map[string]string "Не найдена"
// @Security BearerAuth
// @Router /participants/{participantID} [delete]
func (h *ParticipantHandler) DeleteParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "participantID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.participantService.Delete(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
