package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server         ServerConfig
	SQLite         SQLiteConfig
	Redis          RedisConfig
	DrugData       DrugDataConfig
	Identification IdentificationConfig
	Ingestion      IngestionConfig
	Verification   VerificationConfig
	Logging        LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

type DrugDataConfig struct {
	Enabled    bool
	FDABaseURL string
	RxNormURL  string
	TimeoutSec int
	MaxResults int
}

type IdentificationConfig struct {
	ConfidenceThreshold float64
}

type IngestionConfig struct {
	ConfidenceThreshold float64
}

type VerificationConfig struct {
	WindowMinutes int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/medadhere")

	viper.SetEnvPrefix("MEDADHERE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("sqlite.path", "./data/medadhere.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttlSec", 3600)

	viper.SetDefault("drugdata.enabled", true)
	viper.SetDefault("drugdata.fdaBaseURL", "https://api.fda.gov/drug")
	viper.SetDefault("drugdata.rxnormURL", "https://rxnav.nlm.nih.gov/REST")
	viper.SetDefault("drugdata.timeoutSec", 10)
	viper.SetDefault("drugdata.maxResults", 10)

	viper.SetDefault("identification.confidenceThreshold", 0.7)

	viper.SetDefault("ingestion.confidenceThreshold", 0.75)

	viper.SetDefault("verification.windowMinutes", 30)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
