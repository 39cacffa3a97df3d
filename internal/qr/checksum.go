package qr

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Checksum вычисляет контрольную сумму платежной строки: SHA-256 по
// байтам UTF-8, hex, последние 4 символа. Дефисы вычищаются перед
// взятием хвоста: корректный hex-дайджест их не содержит, но формат
// требует именно "очищенную" строку.
func Checksum(details string) string {
	sum := sha256.Sum256([]byte(details))

	clean := strings.ReplaceAll(hex.EncodeToString(sum[:]), "-", "")

	return clean[len(clean)-4:]
}
