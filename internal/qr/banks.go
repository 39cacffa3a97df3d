package qr

// Bank шаблон банка для QR-платежей
type Bank struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	ServiceCode string `json:"service_code"`
	MCC         string `json:"mcc"`
}

// DefaultBanks возвращает шаблоны банков по умолчанию.
// MCC 5812 соответствует ресторанам.
func DefaultBanks() map[string]Bank {
	return map[string]Bank{
		"mbank": {
			Key:         "mbank",
			Name:        "МБанк",
			Domain:      "c2b.mbank.kg",
			ServiceCode: "1016",
			MCC:         "5812",
		},
		"optima": {
			Key:         "optima",
			Name:        "Оптима Банк",
			Domain:      "qr.optimabank.kg",
			ServiceCode: "1017",
			MCC:         "5812",
		},
		"kicb": {
			Key:         "kicb",
			Name:        "КИЦБ",
			Domain:      "qr.kicb.kg",
			ServiceCode: "1018",
			MCC:         "5812",
		},
		"demir": {
			Key:         "demir",
			Name:        "Демир Банк",
			Domain:      "qr.demirbank.kg",
			ServiceCode: "1019",
			MCC:         "5812",
		},
	}
}
