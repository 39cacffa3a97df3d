package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BankConfig шаблон банка для QR-платежей
type BankConfig struct {
	Name        string `mapstructure:"name"`
	Domain      string `mapstructure:"domain"`
	ServiceCode string `mapstructure:"serviceCode"`
	MCC         string `mapstructure:"mcc"`
}

// Config представляет структуру конфигурации для приложения.
type Config struct {
	App struct {
		Port string `mapstructure:"port"`
		Env  string `mapstructure:"env"`
	} `mapstructure:"app"`
	Server struct {
		ReadTimeout  int `mapstructure:"readTimeout"`
		WriteTimeout int `mapstructure:"writeTimeout"`
	} `mapstructure:"server"`
	Database struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
	} `mapstructure:"kafka"`
	Payments struct {
		// Потолок суммы в минорных единицах (тыйынах)
		MaxAmountMinor int64 `mapstructure:"maxAmountMinor"`
	} `mapstructure:"payments"`
	QR struct {
		BaseURL      string                `mapstructure:"baseUrl"`
		MerchantName string                `mapstructure:"merchantName"`
		Version      string                `mapstructure:"version"`
		PaymentType  string                `mapstructure:"paymentType"`
		Banks        map[string]BankConfig `mapstructure:"banks"`
	} `mapstructure:"qr"`
	ODengi struct {
		Endpoint  string `mapstructure:"endpoint"`
		SID       string `mapstructure:"sid"`
		Secret    string `mapstructure:"secret"`
		Version   int    `mapstructure:"version"`
		Lang      string `mapstructure:"lang"`
		Test      bool   `mapstructure:"test"`
		ResultURL string `mapstructure:"resultUrl"`
	} `mapstructure:"odengi"`
	FreedomPay struct {
		InitPaymentURL string `mapstructure:"initPaymentUrl"`
		HealthcheckURL string `mapstructure:"healthcheckUrl"`
		MerchantID     string `mapstructure:"merchantId"`
		Secret         string `mapstructure:"secret"`
		Lifetime       int    `mapstructure:"lifetime"`
		SuccessURL     string `mapstructure:"successUrl"`
		FailureURL     string `mapstructure:"failureUrl"`
		ResultURL      string `mapstructure:"resultUrl"`
		CheckURL       string `mapstructure:"checkUrl"`
	} `mapstructure:"freedompay"`
}

// LoadConfig загружает конфигурацию из файла или переменных окружения.
// Учетные данные провайдеров никогда не зашиваются в код, только конфиг.
func LoadConfig(path string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		// .env опционален: в контейнере переменные приходят из окружения
		_ = godotenv.Load(path)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.AutomaticEnv() // Чтение переменных окружения

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
