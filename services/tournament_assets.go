package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/tournament-registration/live"
	"github.com/Dosada05/tournament-registration/metrics"
	"github.com/Dosada05/tournament-registration/models"
	"github.com/Dosada05/tournament-registration/storage"
	"golang.org/x/sync/errgroup"
)

const pdfContentType = "application/pdf"

func (s *tournamentService) requireUploader() error {
	if s.uploader == nil {
		return fmt.Errorf("%w: no file storage configured", ErrAssetOperationFailed)
	}
	return nil
}

// UploadBanner загружает баннер турнира и сохраняет путь к нему.
func (s *tournamentService) UploadBanner(ctx context.Context, id int, banner *Asset) (*models.Tournament, error) {
	if err := s.requireUploader(); err != nil {
		return nil, err
	}
	if banner == nil || !banner.isImage() {
		return nil, fmt.Errorf("%w: banner must be an image", ErrUnsupportedAssetType)
	}
	t, err := s.GetTournament(ctx, id)
	if err != nil {
		return nil, err
	}

	key := storage.ImageKey(fmt.Sprintf("tournament_%d_banner%s", id, banner.Ext()))
	if _, err := s.uploader.Upload(ctx, key, banner.ContentType, banner.Reader); err != nil {
		metrics.AssetFailures.WithLabelValues("banner").Inc()
		return nil, fmt.Errorf("%w: %w", ErrAssetOperationFailed, err)
	}
	if err := s.tournamentRepo.UpdateBannerImage(ctx, id, &key); err != nil {
		return nil, fmt.Errorf("failed to record banner for tournament %d: %w", id, err)
	}

	if t.BannerImage != nil && *t.BannerImage != key {
		s.deleteAssets(ctx, id, []string{*t.BannerImage})
	}
	t.BannerImage = &key
	s.announceUpdate(t)
	return t, nil
}

// UploadSliderImages заменяет слайдер переданными изображениями. Загрузка
// идёт параллельно, порядок сохраняется.
func (s *tournamentService) UploadSliderImages(ctx context.Context, id int, images []*Asset) (*models.Tournament, error) {
	if err := s.requireUploader(); err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, validationError(errors.New("at least one slider image is required"))
	}
	if len(images) > MaxSliderImages {
		return nil, fmt.Errorf("%w: at most %d slider images are allowed", ErrTooManyAssets, MaxSliderImages)
	}
	for _, img := range images {
		if img == nil || !img.isImage() {
			return nil, fmt.Errorf("%w: slider files must be images", ErrUnsupportedAssetType)
		}
	}

	t, err := s.GetTournament(ctx, id)
	if err != nil {
		return nil, err
	}

	stamp := s.now().UnixMilli()
	keys := make([]string, len(images))
	for i, img := range images {
		keys[i] = storage.ImageKey(fmt.Sprintf("tournament_%d_slider_%d_%d%s", id, stamp, i, img.Ext()))
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, img := range images {
		i, img := i, img
		g.Go(func() error {
			if _, err := s.uploader.Upload(gctx, keys[i], img.ContentType, img.Reader); err != nil {
				return fmt.Errorf("slider image %d: %w", i, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		metrics.AssetFailures.WithLabelValues("slider").Inc()
		s.deleteAssets(ctx, id, keys)
		return nil, fmt.Errorf("%w: %w", ErrAssetOperationFailed, err)
	}

	if err := s.tournamentRepo.UpdateSliderImages(ctx, id, keys); err != nil {
		return nil, fmt.Errorf("failed to record slider images for tournament %d: %w", id, err)
	}

	s.deleteAssets(ctx, id, t.SliderImages)
	t.SliderImages = keys
	s.announceUpdate(t)
	return t, nil
}

// UploadRulesPDF загружает PDF с правилами турнира.
func (s *tournamentService) UploadRulesPDF(ctx context.Context, id int, pdf *Asset) (*models.Tournament, error) {
	if err := s.requireUploader(); err != nil {
		return nil, err
	}
	if pdf == nil || !strings.EqualFold(strings.TrimSpace(pdf.ContentType), pdfContentType) {
		return nil, fmt.Errorf("%w: rules must be a PDF", ErrUnsupportedAssetType)
	}
	t, err := s.GetTournament(ctx, id)
	if err != nil {
		return nil, err
	}

	key := storage.DocumentKey(fmt.Sprintf("rules_%d.pdf", id))
	if _, err := s.uploader.Upload(ctx, key, pdfContentType, pdf.Reader); err != nil {
		metrics.AssetFailures.WithLabelValues("rules_pdf").Inc()
		return nil, fmt.Errorf("%w: %w", ErrAssetOperationFailed, err)
	}
	if err := s.tournamentRepo.UpdateRulesPDF(ctx, id, &key); err != nil {
		return nil, fmt.Errorf("failed to record rules for tournament %d: %w", id, err)
	}

	t.RulesPDF = &key
	s.announceUpdate(t)
	return t, nil
}

func (s *tournamentService) announceUpdate(t *models.Tournament) {
	s.logger.Info("tournament assets updated", slog.Int("tournament_id", t.ID))
	s.broadcaster.BroadcastToRoom(live.TournamentRoom(t.ID), live.Message{Type: live.EventTournamentUpdated, Payload: t})
}
