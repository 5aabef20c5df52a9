package services

import "errors"

var (
	ErrValidationFailed        = errors.New("validation failed")
	ErrInvalidRegistrationType = errors.New("invalid registration type")
	ErrUnsupportedAssetType    = errors.New("unsupported file type")
	ErrTooManyAssets           = errors.New("too many files")

	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrParticipantNotFound = errors.New("participant registration not found")
	ErrUserNotFound        = errors.New("user not found")

	ErrInvitationCodeNotFound       = errors.New("no team exists for this invitation code")
	ErrAssociatedTournamentNotFound = errors.New("the team's tournament could not be found")
	ErrTeamCapacityExceeded         = errors.New("team is full")

	// Конфликты.
	ErrInvitationCodeConflict = errors.New("invitation code is already in use")
	ErrUserEmailConflict      = errors.New("email address is already in use")
	ErrUserUsernameConflict   = errors.New("username is already in use")

	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAssetOperationFailed возвращают только операции загрузки файлов;
	// при регистрации ошибка пишется в лог и не прерывает запрос.
	ErrAssetOperationFailed = errors.New("asset operation failed")
)
