package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath string

	CameraIndex   int
	CameraBackend string // "opencv" or "v4l2"
	FrameWidth    int
	FrameHeight   int
	StopTimeout   time.Duration // How long Stop waits for the capture goroutine

	ModelsDir           string
	DetectionModel      string  // "hog" or "cnn"
	Tolerance           float64 // Maximum embedding distance accepted as a match
	ProcessEveryNFrames int     // Run recognition on every Nth frame (1 = every frame)

	CooldownSeconds int // Minimum gap between write attempts for the same student
	RecentCapacity  int // Size of the cooldown recency buffer

	ListenAddr      string
	AllowRemote     bool          // Serve non-loopback clients
	DisplayInterval time.Duration // How often viewers get the latest frame

	LogDirectory       string
	ImageDirectory     string // Evidence frames of marked students
	StudentImageDir    string // Registration photos
	ImageBufferLimit   int
	ImageFlushInterval int // Seconds

	DefaulterThreshold float64
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DBPath:              getEnv("DB_PATH", filepath.Join(".", "data", "attendance.db")),
		CameraIndex:         getEnvAsInt("CAMERA_INDEX", 0),
		CameraBackend:       getEnv("CAMERA_BACKEND", "opencv"),
		FrameWidth:          getEnvAsInt("FRAME_WIDTH", 640),
		FrameHeight:         getEnvAsInt("FRAME_HEIGHT", 480),
		StopTimeout:         time.Duration(getEnvAsInt("STOP_TIMEOUT_MS", 1000)) * time.Millisecond,
		ModelsDir:           getEnv("MODELS_DIR", filepath.Join(".", "models")),
		DetectionModel:      getEnv("DETECTION_MODEL", "hog"),
		Tolerance:           getEnvAsFloat("TOLERANCE", 0.6),
		ProcessEveryNFrames: getEnvAsInt("PROCESS_EVERY_N_FRAMES", 2),
		CooldownSeconds:     getEnvAsInt("COOLDOWN_SECONDS", 5),
		RecentCapacity:      getEnvAsInt("RECENT_CAPACITY", 10),
		ListenAddr:          getEnv("LISTEN_ADDR", "127.0.0.1:8080"),
		AllowRemote:         getEnvAsBool("ALLOW_REMOTE", false),
		DisplayInterval:     time.Duration(getEnvAsInt("DISPLAY_INTERVAL_MS", 100)) * time.Millisecond,
		LogDirectory:        getEnv("LOG_DIR", filepath.Join(".", "logs")),
		ImageDirectory:      getEnv("IMAGE_DIR", filepath.Join(".", "data", "evidence")),
		StudentImageDir:     getEnv("STUDENT_IMAGE_DIR", filepath.Join(".", "data", "student_images")),
		ImageBufferLimit:    getEnvAsInt("IMAGE_BUFFER_LIMIT", 10),
		ImageFlushInterval:  getEnvAsInt("IMAGE_FLUSH_INTERVAL", 30),
		DefaulterThreshold:  getEnvAsFloat("DEFAULTER_THRESHOLD", 75.0),
	}
}

// Cooldown returns CooldownSeconds as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
