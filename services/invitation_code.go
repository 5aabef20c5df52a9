package services

import (
	"crypto/rand"
	"strings"
)

// invitationAlphabet: 32 символа без 0/O и 1/I.
const invitationAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	invitationCodeChars  = 8
	invitationCodeSplit  = 4
	InvitationCodeLength = invitationCodeChars + 1
)

// CodeGenerator выдаёт коды приглашения. Уникальность здесь не гарантируется,
// дубликат отклонит база при создании команды.
type CodeGenerator func() string

// GenerateInvitationCode возвращает код вида "K7QM-3XHP".
func GenerateInvitationCode() string {
	buf := make([]byte, invitationCodeChars)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}

	var sb strings.Builder
	sb.Grow(InvitationCodeLength)
	for i, b := range buf {
		if i == invitationCodeSplit {
			sb.WriteByte('-')
		}
		// len(invitationAlphabet) делит 256, поэтому маска не смещает распределение.
		sb.WriteByte(invitationAlphabet[b&31])
	}
	return sb.String()
}
