package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Warehouse WarehouseConfig `yaml:"warehouse" mapstructure:"warehouse"`
	Data      DataConfig      `yaml:"data" mapstructure:"data"`
	OpenMeteo OpenMeteoConfig `yaml:"open_meteo" mapstructure:"open_meteo"`
	Ingestion IngestionConfig `yaml:"ingestion" mapstructure:"ingestion"`
	Window    WindowConfig    `yaml:"time_window" mapstructure:"time_window"`
	ML        MLConfig        `yaml:"ml" mapstructure:"ml"`
	Transform TransformConfig `yaml:"transform" mapstructure:"transform"`
	Health    HealthConfig    `yaml:"health" mapstructure:"health"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// WarehouseConfig locates the embedded analytical warehouse file.
type WarehouseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// DataConfig lays out the raw landing zone on disk.
type DataConfig struct {
	RawWeatherDir   string `yaml:"raw_weather_dir" mapstructure:"raw_weather_dir"`
	RawGeocodingDir string `yaml:"raw_geocoding_dir" mapstructure:"raw_geocoding_dir"`
	CitiesPath      string `yaml:"cities_path" mapstructure:"cities_path"`
}

// OpenMeteoConfig holds the upstream weather API endpoints and variable list.
type OpenMeteoConfig struct {
	GeocodingBaseURL  string   `yaml:"geocoding_base_url" mapstructure:"geocoding_base_url"`
	HistoricalBaseURL string   `yaml:"historical_base_url" mapstructure:"historical_base_url"`
	DailyVariables    []string `yaml:"daily_variables" mapstructure:"daily_variables"`
	TimeoutSecs       int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// IngestionConfig controls windowed ingestion retry and pacing.
type IngestionConfig struct {
	MaxRetries       int     `yaml:"max_retries" mapstructure:"max_retries"`
	BackoffBaseSecs  float64 `yaml:"backoff_base_secs" mapstructure:"backoff_base_secs"`
	RequestDelaySecs float64 `yaml:"request_delay_secs" mapstructure:"request_delay_secs"`
}

// WindowConfig is the default historical window for backfill mode.
type WindowConfig struct {
	StartDate string `yaml:"start_date" mapstructure:"start_date"`
	EndDate   string `yaml:"end_date" mapstructure:"end_date"`
}

// MLConfig controls baseline training and inference.
type MLConfig struct {
	FeatureTable  string  `yaml:"feature_table" mapstructure:"feature_table"`
	ModelPath     string  `yaml:"model_path" mapstructure:"model_path"`
	MetricsPath   string  `yaml:"metrics_path" mapstructure:"metrics_path"`
	TrainFraction float64 `yaml:"train_fraction" mapstructure:"train_fraction"`
	Epochs        int     `yaml:"epochs" mapstructure:"epochs"`
	LearningRate  float64 `yaml:"learning_rate" mapstructure:"learning_rate"`
	OutputTable   string  `yaml:"output_table" mapstructure:"output_table"`
	OutputCSV     string  `yaml:"output_csv" mapstructure:"output_csv"`
}

// TransformConfig names the external transformation command run between
// ingestion and training.
type TransformConfig struct {
	Command []string `yaml:"command" mapstructure:"command"`
	Dir     string   `yaml:"dir" mapstructure:"dir"`
}

// HealthConfig holds thresholds for the ML health check.
type HealthConfig struct {
	MinAccuracy      float64 `yaml:"min_accuracy" mapstructure:"min_accuracy"`
	MinROCAUC        float64 `yaml:"min_roc_auc" mapstructure:"min_roc_auc"`
	MinPositiveRatio float64 `yaml:"min_positive_ratio" mapstructure:"min_positive_ratio"`
}

// ServerConfig configures the ops HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CLIMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("warehouse.path", "data/warehouse/climate.db")
	v.SetDefault("data.raw_weather_dir", "data/raw/daily_weather")
	v.SetDefault("data.raw_geocoding_dir", "data/raw/geocoding")
	v.SetDefault("data.cities_path", "config/cities.yaml")
	v.SetDefault("open_meteo.geocoding_base_url", "https://geocoding-api.open-meteo.com/v1/search")
	v.SetDefault("open_meteo.historical_base_url", "https://archive-api.open-meteo.com/v1/archive")
	v.SetDefault("open_meteo.daily_variables", []string{
		"temperature_2m_max",
		"temperature_2m_min",
		"temperature_2m_mean",
		"precipitation_sum",
	})
	v.SetDefault("open_meteo.timeout_secs", 30)
	v.SetDefault("ingestion.max_retries", 3)
	v.SetDefault("ingestion.backoff_base_secs", 0.5)
	v.SetDefault("ingestion.request_delay_secs", 0.5)
	v.SetDefault("ml.feature_table", "gold_ml_features")
	v.SetDefault("ml.model_path", "models/baseline_logreg.json")
	v.SetDefault("ml.metrics_path", "models/baseline_logreg_metrics.json")
	v.SetDefault("ml.train_fraction", 0.75)
	v.SetDefault("ml.epochs", 400)
	v.SetDefault("ml.learning_rate", 0.1)
	v.SetDefault("ml.output_table", "gold_ml_predictions")
	v.SetDefault("ml.output_csv", "data/mart/predictions/baseline_predictions.csv")
	v.SetDefault("transform.command", []string{"dbt", "build", "--project-dir", ".", "--profiles-dir", "."})
	v.SetDefault("transform.dir", "dbt")
	v.SetDefault("health.min_accuracy", 0.80)
	v.SetDefault("health.min_roc_auc", 0.60)
	v.SetDefault("health.min_positive_ratio", 0.01)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
