package config

import (
	"errors"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // в контейнере может не быть zoneinfo

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	HTTP struct {
		Addr        string
		CORSOrigins []string `mapstructure:"cors_origins"`
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Auth struct {
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"auth"`

	Asaas struct {
		APIKey  string        `mapstructure:"api_key"`
		BaseURL string        `mapstructure:"base_url"`
		Timeout time.Duration `mapstructure:"timeout"`
		RPS     float64       `mapstructure:"rps"`
	} `mapstructure:"asaas"`

	Telegram struct {
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
	} `mapstructure:"telegram"`

	Storage struct {
		Endpoint  string
		Region    string
		Bucket    string
		AccessKey string `mapstructure:"access_key"`
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"storage"`
}

// Load читает yaml-конфиг и накрывает его переменными окружения APP_*
// (APP_POSTGRES_DSN, APP_ASAAS_API_KEY и т.д.). Если рядом лежит .env — он подгружается первым.
func Load(path string) (Config, error) {
	_ = gotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return c, err
			}
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.timezone", "America/Sao_Paulo")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("asaas.api_key", "")
	v.SetDefault("asaas.base_url", "https://api.asaas.com")
	v.SetDefault("asaas.timeout", 15*time.Second)
	v.SetDefault("asaas.rps", 5)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_chat_id", 0)
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
}

// Validate проверяет только то, без чего сервис не стартует.
// Ключ Asaas обязателен лишь для отмены подписки и проверяется там.
func (c Config) Validate() error {
	var missing []string
	if c.Postgres.DSN == "" {
		missing = append(missing, "postgres.dsn")
	}
	if c.HTTP.Addr == "" {
		missing = append(missing, "http.addr")
	}
	if len(missing) > 0 {
		return errors.New("config: missing required keys: " + strings.Join(missing, ", "))
	}
	return nil
}

// Location возвращает часовой пояс барбершопа; при ошибке — локальный пояс процесса.
func (c Config) Location() *time.Location {
	if c.App.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// StorageEnabled — включена ли выгрузка отчётов в S3.
func (c Config) StorageEnabled() bool {
	return c.Storage.Bucket != "" && c.Storage.AccessKey != "" && c.Storage.SecretKey != ""
}
