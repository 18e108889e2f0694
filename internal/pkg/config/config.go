package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	SenecCfg    SenecConfig    `envPrefix:"SENEC_"`
	InverterCfg InverterConfig `envPrefix:"INVERTER_"`
	WebCfg      WebConfig      `envPrefix:"WEB_"`
	MqttCfg     MqttConfig     `envPrefix:"MQTT_"`
	LogLevel    string         `env:"LOG_LEVEL" envDefault:"INFO"`
	ListenAddr  string         `env:"LISTEN_ADDR" envDefault:"0.0.0.0:8000"`
}

// SenecConfig configures the local lala.cgi client.
type SenecConfig struct {
	Host              string        `env:"HOST"`
	Ssl               bool          `env:"SSL" envDefault:"true"`
	PollInterval      time.Duration `env:"POLL_INTERVAL" envDefault:"30s"`
	IgnoreSystemState bool          `env:"IGNORE_SYSTEM_STATE"`
	QueryStatistic    bool          `env:"QUERY_STATISTIC" envDefault:"true"`
	QueryBMS          bool          `env:"QUERY_BMS"`
	QueryBMSCells     bool          `env:"QUERY_BMS_CELLS"`
	QueryWallbox      bool          `env:"QUERY_WALLBOX"`
	QuerySockets      bool          `env:"QUERY_SOCKETS"`
	QueryFans         bool          `env:"QUERY_FANS"`
	QueryPowerMeter   bool          `env:"QUERY_POWER_METER" envDefault:"true"`
	QueryTemperatures bool          `env:"QUERY_TEMPERATURES" envDefault:"true"`
	QueryPVStrings    bool          `env:"QUERY_PV_STRINGS" envDefault:"true"`
}

// InverterConfig configures the embedded inverter XML client.
type InverterConfig struct {
	Host         string        `env:"HOST"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"30s"`
}

// WebConfig configures the cloud portal and app sessions.
type WebConfig struct {
	Username     string        `env:"USERNAME"`
	Password     string        `env:"PASSWORD"`
	BaseURL      string        `env:"BASE_URL" envDefault:"https://mein-senec.de"`
	AppBaseURL   string        `env:"APP_BASE_URL" envDefault:"https://app-gateway.prod.senec.dev"`
	PlantNumber  *int          `env:"PLANT_NUMBER"`
	QueryWallbox bool          `env:"QUERY_WALLBOX"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"5m"`
}

type MqttConfig struct {
	Host      string `env:"HOST"`
	Username  string `env:"USER"`
	Password  string `env:"PASS"`
	BaseTopic string `env:"BASE_TOPIC" envDefault:"senec"`
}

// Load reads an optional dotenv file and parses the environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, err
		}
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *SenecConfig) Enabled() bool    { return c != nil && c.Host != "" }
func (c *InverterConfig) Enabled() bool { return c != nil && c.Host != "" }
func (c *WebConfig) Enabled() bool      { return c != nil && c.Username != "" && c.Password != "" }
func (c *MqttConfig) Enabled() bool     { return c != nil && c.Host != "" }
