package services

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/Dosada05/tournament-registration/live"
)

// Asset - загруженный файл, переданный транспортным слоем.
type Asset struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// Ext возвращает расширение файла в нижнем регистре.
func (a *Asset) Ext() string {
	return strings.ToLower(filepath.Ext(a.Filename))
}

func (a *Asset) isImage() bool {
	return strings.HasPrefix(strings.ToLower(a.ContentType), "image/")
}

// EventBroadcaster публикует события ленты, его реализует *live.Hub.
type EventBroadcaster interface {
	BroadcastToRoom(roomID string, msg live.Message)
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastToRoom(string, live.Message) {}

// Clock возвращает текущее время для дат по умолчанию.
type Clock func() time.Time

// optionalString обрезает пробелы и возвращает nil для пустой строки.
func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func validationError(err error) error {
	return fmt.Errorf("%w: %w", ErrValidationFailed, err)
}
