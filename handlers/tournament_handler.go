package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Dosada05/tournament-registration/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
}

func NewTournamentHandler(ts services.TournamentService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: ts,
	}
}

// CreateTournament godoc
// @Summary Создать турнир вместе с сетками
// @Tags tournaments
// @Description Сохраняет турнир, затем каждую сетку отдельно. Ошибка одной сетки не отменяет турнир и попадает в report.
// @Accept json
// @Produce json
// @Param body body services.CreateTournamentInput true "basics, info, settings, resources, brackets"
// @Success 201 {object} services.AssemblyResult
// @Failure 400 {object} map[string]string "Некорректный JSON"
// @Failure 422 {object} map[string]string "Ошибка валидации"
// @Failure 401 {object} map[string]string "Неавторизован"
// @Failure 403 {object} map[string]string "Нет прав"
// @Security BearerAuth
// @Router /api/tournaments [post]
func (h *TournamentHandler) CreateTournament(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.tournamentService.CreateTournament(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListTournaments godoc
// @Summary Список турниров
// @Tags tournaments
// @Produce json
// @Param limit query int false "Размер страницы (по умолчанию 20, максимум 100)"
// @Param offset query int false "Смещение"
// @Success 200 {array} models.Tournament
// @Router /api/tournaments [get]
func (h *TournamentHandler) ListTournaments(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournaments, err := h.tournamentService.ListTournaments(r.Context(), limit, offset)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, tournaments, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetLatestTournament godoc
// @Summary Последний созданный турнир
// @Tags tournaments
// @Produce json
// @Success 200 {object} models.Tournament
// @Failure 404 {object} map[string]string "Турниров нет"
// @Router /api/tournaments/latest [get]
func (h *TournamentHandler) GetLatestTournament(w http.ResponseWriter, r *http.Request) {
	tournament, err := h.tournamentService.GetLatestTournament(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, tournament, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetTournament godoc
// @Summary Турнир по ID
// @Tags tournaments
// @Produce json
// @Param tournamentID path int true "ID турнира"
// @Success 200 {object} models.Tournament
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Router /api/tournaments/{tournamentID} [get]
func (h *TournamentHandler) GetTournament(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetTournament(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, tournament, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateTournament godoc
// @Summary Частично обновить турнир
// @Tags tournaments
// @Accept json
// @Produce json
// @Param tournamentID path int true "ID турнира"
// @Param body body services.UpdateTournamentInput true "Изменяемые поля"
// @Success 200 {object} models.Tournament
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Failure 422 {object} map[string]string "Ошибка валидации"
// @Security BearerAuth
// @Router /api/tournaments/{tournamentID} [put]
func (h *TournamentHandler) UpdateTournament(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.UpdateTournament(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, tournament, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteTournament godoc
// @Summary Удалить турнир
// @Tags tournaments
// @Description Сетки удаляются каскадно, заявки участников остаются.
// @Param tournamentID path int true "ID турнира"
// @Success 204 "Удалено"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Security BearerAuth
// @Router /api/tournaments/{tournamentID} [delete]
func (h *TournamentHandler) DeleteTournament(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournamentService.DeleteTournament(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadBanner godoc
// @Summary Загрузить баннер турнира
// @Tags tournaments
// @Accept multipart/form-data
// @Produce json
// @Param tournamentID path int true "ID турнира"
// @Param image formData file true "Изображение"
// @Success 200 {object} models.Tournament
// @Security BearerAuth
// @Router /api/tournaments/{tournamentID}/image [post]
func (h *TournamentHandler) UploadBanner(w http.ResponseWriter, r *http.Request) {
	id, assets, ok := h.parseUpload(w, r, "image")
	if !ok {
		return
	}
	defer closeAll(assets.closers)

	if len(assets.files) != 1 {
		badRequestResponse(w, r, errors.New("exactly one image file is required in field \"image\""))
		return
	}

	tournament, err := h.tournamentService.UploadBanner(r.Context(), id, assets.files[0])
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, tournament, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadSliderImages godoc
// @Summary Загрузить изображения слайдера
// @Tags tournaments
// @Accept multipart/form-data
// @Produce json
// @Param tournamentID path int true "ID турнира"
// @Param images formData file true "До 5 изображений"
// @Success 200 {object} models.Tournament
// @Security BearerAuth
// @Router /api/tournaments/{tournamentID}/slider [post]
func (h *TournamentHandler) UploadSliderImages(w http.ResponseWriter, r *http.Request) {
	id, assets, ok := h.parseUpload(w, r, "images")
	if !ok {
		return
	}
	defer closeAll(assets.closers)

	tournament, err := h.tournamentService.UploadSliderImages(r.Context(), id, assets.files)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, tournament, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadRulesPDF godoc
// @Summary Загрузить регламент (PDF)
// @Tags tournaments
// @Accept multipart/form-data
// @Produce json
// @Param tournamentID path int true "ID турнира"
// @Param pdf formData file true "PDF-файл"
// @Success 200 {object} models.Tournament
// @Security BearerAuth
// @Router /api/tournaments/{tournamentID}/pdf [post]
func (h *TournamentHandler) UploadRulesPDF(w http.ResponseWriter, r *http.Request) {
	id, assets, ok := h.parseUpload(w, r, "pdf")
	if !ok {
		return
	}
	defer closeAll(assets.closers)

	if len(assets.files) != 1 {
		badRequestResponse(w, r, errors.New("exactly one PDF file is required in field \"pdf\""))
		return
	}

	tournament, err := h.tournamentService.UploadRulesPDF(r.Context(), id, assets.files[0])
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, tournament, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type uploadedAssets struct {
	files   []*services.Asset
	closers []io.Closer
}

func (h *TournamentHandler) parseUpload(w http.ResponseWriter, r *http.Request, field string) (int, uploadedAssets, bool) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return 0, uploadedAssets{}, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBytes)
	if err := r.ParseMultipartForm(maxMultipartBytes); err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to parse multipart form: %w", err))
		return 0, uploadedAssets{}, false
	}

	files, closers, err := formAssets(r, field)
	if err != nil {
		badRequestResponse(w, r, err)
		return 0, uploadedAssets{}, false
	}
	return id, uploadedAssets{files: files, closers: closers}, true
}
