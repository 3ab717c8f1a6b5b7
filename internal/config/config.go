package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port      int              `json:"port"`
	JWTSecret string           `json:"jwt_secret"`
	LogConfig logger.LogConfig `json:"log_config"`
	Database  DatabaseConfig   `json:"database"`
	FileStore FileStoreConfig  `json:"file_store"`
	OCR       OCRConfig        `json:"ocr"`
	Annotate  AnnotateConfig   `json:"annotate"`
	Pinyin    PinyinConfig     `json:"pinyin"`
	Splitter  SplitterConfig   `json:"splitter"`
	Pipeline  PipelineConfig   `json:"pipeline"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type FileStoreConfig struct {
	Type      string   `json:"type"`
	Dir       string   `json:"dir"`
	PublicURL string   `json:"public_url"`
	S3        S3Config `json:"s3"`
}

type S3Config struct {
	Endpoint  string `json:"endpoint"`
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Prefix    string `json:"prefix"`
	PublicURL string `json:"public_url"`
	UseSSL    bool   `json:"use_ssl"`
}

type OCRConfig struct {
	Provider string                 `json:"provider"`
	Args     map[string]interface{} `json:"args"`
}

type AnnotateConfig struct {
	Endpoint             string `json:"endpoint"`
	APIKey               string `json:"api_key"`
	HeaderTimeoutSeconds int    `json:"header_timeout_seconds"`
}

type PinyinConfig struct {
	DictPath string `json:"dict_path"`
}

type SplitterConfig struct {
	CommaMinLeft   int `json:"comma_min_left"`
	MinFragmentLen int `json:"min_fragment_len"`
	TitleScanLines int `json:"title_scan_lines"`
}

type PipelineConfig struct {
	SinkQueueDepth    int `json:"sink_queue_depth"`
	StaleAfterMinutes int `json:"stale_after_minutes"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.OCR.Provider == "" {
		return nil, fmt.Errorf("ocr.provider is required")
	}
	if cfg.Annotate.Endpoint == "" {
		return nil, fmt.Errorf("annotate.endpoint is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Pipeline.StaleAfterMinutes <= 0 {
		cfg.Pipeline.StaleAfterMinutes = 30
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	switch cfg.FileStore.Type {
	case "local":
		if cfg.FileStore.Dir == "" {
			return nil, fmt.Errorf("file_store.dir is required for local store")
		}
	case "s3":
		if cfg.FileStore.S3.Endpoint == "" || cfg.FileStore.S3.Bucket == "" || cfg.FileStore.S3.SecretID == "" || cfg.FileStore.S3.SecretKey == "" {
			return nil, fmt.Errorf("file_store.s3 endpoint/bucket/secret_id/secret_key are required for s3 store")
		}
		if cfg.FileStore.S3.Region == "" {
			cfg.FileStore.S3.Region = "cn"
		}
	default:
		return nil, fmt.Errorf("file_store.type must be local or s3")
	}
	return &cfg, nil
}
