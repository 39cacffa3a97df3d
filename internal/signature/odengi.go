package signature

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Разделитель полей канонической строки callback-а O!Dengi
const odengiCallbackDelimiter = ":::"

// SignODengi вычисляет HMAC-MD5 подпись по байтам компактного JSON
// запроса (без поля hash) с общим секретом в роли ключа. Hex в нижнем регистре.
func SignODengi(payload []byte, secret string) string {
	mac := hmac.New(md5.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignODengiCallback вычисляет подпись канонической строки callback-а:
// значения конкретных полей ответа, соединенные фиксированным
// разделителем. Состав и порядок полей являются частью проводного контракта.
func SignODengiCallback(fields []string, secret string) string {
	return SignODengi([]byte(strings.Join(fields, odengiCallbackDelimiter)), secret)
}

// VerifyODengiCallback сверяет подпись callback-а за константное время
func VerifyODengiCallback(fields []string, secret, provided string) bool {
	if provided == "" {
		return false
	}
	expected := SignODengiCallback(fields, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
