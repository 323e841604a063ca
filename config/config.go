package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// MaxAssistants is the number of assistant session slots the bot supports.
// Unset slots simply reduce streaming capacity.
const MaxAssistants = 5

// Config stores the application configuration.
type Config struct {
	BotToken   string
	BotDebug   bool
	LogGroupID int64

	// Assistant session strings, slot 0..4. Empty means unconfigured.
	SessionStrings [MaxAssistants]string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	FFmpegPath   string
	DownloadsDir string // on-demand downloads land here
	PlaybackDir  string // per-speed transcode cache: PlaybackDir/<speed>/<file>
	CleanupTTL   int    // minutes a stray download may sit before autoclean removes it

	YouTubeAPIKey string

	AutoEnd bool

	StreamImgURL     string
	TelegramAudioURL string
	TelegramVideoURL string
	SoundcloudImgURL string
	SupportGroup     string

	ServerPort        string
	JWTSecret         string
	AdminPasswordHash string // bcrypt hash; empty disables the admin API

	// Optional download archive. Disabled when the endpoint is empty.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioRegion    string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvInt64 gets an environment variable as int64 or returns a default value.
func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// Attempt to load .env file. godotenv.Load() will not override existing env vars.
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	cfg := &Config{
		BotToken:   os.Getenv("BOT_TOKEN"),
		BotDebug:   getEnvBool("BOT_DEBUG", false),
		LogGroupID: getEnvInt64("LOG_GROUP_ID", 0),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "aviax"),

		FFmpegPath:   getEnv("FFMPEG_PATH", "ffmpeg"),
		DownloadsDir: getEnv("DOWNLOADS_DIR", "downloads"),
		PlaybackDir:  getEnv("PLAYBACK_DIR", "playback"),
		CleanupTTL:   getEnvInt("CLEANUP_TTL_MINUTES", 120),

		YouTubeAPIKey: os.Getenv("YOUTUBE_API_KEY"),

		AutoEnd: getEnvBool("AUTO_END", true),

		StreamImgURL:     getEnv("STREAM_IMG_URL", "https://telegra.ph/file/bd2ee30fa8a02d1a16807.jpg"),
		TelegramAudioURL: getEnv("TELEGRAM_AUDIO_URL", "https://telegra.ph/file/6f7d35131f69951c74ee5.jpg"),
		TelegramVideoURL: getEnv("TELEGRAM_VIDEO_URL", "https://telegra.ph/file/6f7d35131f69951c74ee5.jpg"),
		SoundcloudImgURL: getEnv("SOUNDCLOUD_IMG_URL", "https://telegra.ph/file/bb0ff85f2dd44070ea519.jpg"),
		SupportGroup:     getEnv("SUPPORT_GROUP", "https://t.me/AviaxSupport"),

		ServerPort:        getEnv("SERVER_PORT", "8080"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "aviax-audio"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
	}

	for i := 0; i < MaxAssistants; i++ {
		cfg.SessionStrings[i] = os.Getenv("STRING" + strconv.Itoa(i+1))
	}

	cfg.DownloadsDir = filepath.Clean(cfg.DownloadsDir)
	cfg.PlaybackDir = filepath.Clean(cfg.PlaybackDir)

	return cfg
}
