package config

import (
	"os"
	"strconv"

	"github.com/kozaktomas/moodreel/internal/constants"
)

type Config struct {
	Detector DetectorConfig
	Match    MatchConfig
	Audio    AudioConfig
	Video    VideoConfig
	Database DatabaseConfig
	OpenAI   OpenAIConfig
	Gemini   GeminiConfig
	Web      WebConfig
}

type DetectorConfig struct {
	URL           string // face detection sidecar base URL (defaults to http://localhost:8000)
	CacheCapacity int    // max detection records kept in the LRU cache
}

type MatchConfig struct {
	Threshold float64 // min cosine similarity for an identity match
	Workers   int     // parallel detection workers during analysis
}

type AudioConfig struct {
	SampleRate  int     // PCM sample rate in Hz
	FadeSeconds float64 // explicit fade window override (0 = derive from duration)
}

type VideoConfig struct {
	DurationSeconds float64 // default video length
	FFmpegBin       string  // ffmpeg binary name or path
	OutputDir       string  // directory for rendered videos
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL (optional, empty disables persistence)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

type WebConfig struct {
	Host          string
	Port          int
	SessionSecret string
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Detector: DetectorConfig{
			URL:           envString("DETECTOR_URL", "http://localhost:8000"),
			CacheCapacity: envInt("DETECT_CACHE_CAPACITY", constants.DefaultCacheCapacity),
		},
		Match: MatchConfig{
			Threshold: envFloat("MATCH_THRESHOLD", constants.DefaultMatchThreshold),
			Workers:   envInt("ANALYZE_WORKERS", constants.WorkerPoolSize),
		},
		Audio: AudioConfig{
			SampleRate:  envInt("AUDIO_SAMPLE_RATE", constants.DefaultSampleRate),
			FadeSeconds: envFloat("AUDIO_FADE_SECONDS", 0),
		},
		Video: VideoConfig{
			DurationSeconds: envFloat("VIDEO_DURATION_SECONDS", constants.DefaultVideoDuration),
			FFmpegBin:       envString("FFMPEG_BIN", "ffmpeg"),
			OutputDir:       envString("VIDEO_OUTPUT_DIR", "output"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Web: WebConfig{
			Host:          envString("WEB_HOST", "0.0.0.0"),
			Port:          envInt("WEB_PORT", 8080),
			SessionSecret: os.Getenv("WEB_SESSION_SECRET"),
		},
	}
}
