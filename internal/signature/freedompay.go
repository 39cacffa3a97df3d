package signature

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"
)

// FreedomPaySignatureParam имя параметра подписи; сам параметр
// никогда не участвует в вычислении подписи.
const FreedomPaySignatureParam = "pg_sig"

// SignFreedomPay вычисляет подпись набора параметров: имена
// сортируются по возрастанию, значения (не имена) соединяются через
// ";", затем дописывается ";" и секрет, от строки берется MD5 hex.
func SignFreedomPay(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == FreedomPaySignatureParam {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, params[k])
	}

	data := strings.Join(values, ";") + ";" + secret
	sum := md5.Sum([]byte(data))
	return hex.EncodeToString(sum[:])
}

// VerifyFreedomPay сверяет подпись входящего набора параметров за
// константное время. Параметр подписи исключается из пересчета.
func VerifyFreedomPay(params map[string]string, secret string) bool {
	provided := params[FreedomPaySignatureParam]
	if provided == "" {
		return false
	}
	expected := SignFreedomPay(params, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
