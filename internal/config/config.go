package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string

	// postgres / sqlite
	StorageDriver string
	PostgresDSN   string
	SQLitePath    string
	RedisAddr     string

	CronSpec     string
	StartupDelay time.Duration

	SourcesFile    string
	CategoriesFile string

	TargetLanguage     string
	TranslateChunkSize int
	TranslateDelay     time.Duration
	HTTPTimeout        time.Duration

	// 为空时不启用事件推送
	KafkaBrokers []string
	KafkaTopic   string

	// 为空时不归档原始页面
	ArchiveBucket string
	ArchiveRegion string
	ArchivePrefix string
}

func Load() *Config {
	// .env 可选，不存在时忽略
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:            getEnv("APP_PORT", "5001"),
		StorageDriver:      strings.ToLower(getEnv("STORAGE_DRIVER", "postgres")),
		PostgresDSN:        getEnv("POSTGRES_DSN", "host=localhost user=tejomag password=tejomag dbname=tejomag port=5432 sslmode=disable TimeZone=UTC"),
		SQLitePath:         getEnv("SQLITE_PATH", "data/news.db"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		CronSpec:           getEnv("CRON_SPEC", "0 * * * *"),
		StartupDelay:       getDuration("STARTUP_DELAY", 15*time.Second),
		SourcesFile:        getEnv("SOURCES_FILE", ""),
		CategoriesFile:     getEnv("CATEGORIES_FILE", ""),
		TargetLanguage:     getEnv("TARGET_LANGUAGE", "pt"),
		TranslateChunkSize: getInt("TRANSLATE_CHUNK_SIZE", 5000),
		TranslateDelay:     getDuration("TRANSLATE_DELAY", 300*time.Millisecond),
		HTTPTimeout:        getDuration("HTTP_TIMEOUT", 15*time.Second),
		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "articles.persisted"),
		ArchiveBucket:      getEnv("ARCHIVE_BUCKET", ""),
		ArchiveRegion:      getEnv("ARCHIVE_REGION", ""),
		ArchivePrefix:      getEnv("ARCHIVE_PREFIX", "pages"),
	}

	log.Printf("config loaded: port=%s storage=%s cron=%s target=%s", cfg.AppPort, cfg.StorageDriver, cfg.CronSpec, cfg.TargetLanguage)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		log.Printf("warn: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

// getDuration 支持 "300ms" / "15s" 这类写法，纯数字按秒处理
func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	log.Printf("warn: invalid %s=%q, using %s", key, v, def)
	return def
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
