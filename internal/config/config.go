package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"object-paint-agent/internal/core"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Paths       PathsConfig       `mapstructure:"paths"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Upload      UploadConfig      `mapstructure:"upload"`
	Image       ImageConfig       `mapstructure:"image"`
	GrabCut     GrabCutConfig     `mapstructure:"grabcut"`
	Refine      RefineConfig      `mapstructure:"refine"`
	Recolor     RecolorConfig     `mapstructure:"recolor"`
	Accelerator AcceleratorConfig `mapstructure:"accelerator"`
	Detect      DetectConfig      `mapstructure:"detect"`
	Export      ExportConfig      `mapstructure:"export"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port" validate:"required"`
	Mode         string        `mapstructure:"mode" validate:"oneof=debug release test"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// PathsConfig locates optional model weights and run outputs.
type PathsConfig struct {
	ModelsDir string `mapstructure:"models_dir"`
	DataDir   string `mapstructure:"data_dir"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type CacheConfig struct {
	Backend string        `mapstructure:"backend" validate:"oneof=none memory redis"`
	MaxCost int64         `mapstructure:"max_cost" validate:"gte=0"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size" validate:"gt=0"`
	AllowedTypes []string `mapstructure:"allowed_types" validate:"min=1"`
}

type ImageConfig struct {
	// MaxSize bounds the longer side of loaded images; 0 disables fitting.
	MaxSize int `mapstructure:"max_size" validate:"gte=0"`
}

type GrabCutConfig struct {
	Iterations    int `mapstructure:"iterations" validate:"gte=1,lte=20"`
	SeedRadius    int `mapstructure:"seed_radius" validate:"gte=1,lte=50"`
	MaxConcurrent int `mapstructure:"max_concurrent" validate:"gte=1"`
	QueueTimeout  int `mapstructure:"queue_timeout" validate:"gte=1"`
}

type RefineConfig struct {
	MorphKernel int     `mapstructure:"morph_kernel" validate:"gte=1,lte=9"`
	FeatherPx   float64 `mapstructure:"feather_px" validate:"gte=0,lte=50"`
	Threshold   float64 `mapstructure:"threshold" validate:"gte=0,lte=1"`
}

type RecolorConfig struct {
	Color                string  `mapstructure:"color"`
	Strength             float64 `mapstructure:"strength" validate:"gte=0,lte=1"`
	HueTolerance         float64 `mapstructure:"hue_tolerance" validate:"gte=0,lte=180"`
	IncludeShadow        bool    `mapstructure:"include_shadow"`
	ShadowDilation       int     `mapstructure:"shadow_dilation" validate:"gte=0,lte=200"`
	ShadowValueThreshold float64 `mapstructure:"shadow_value_threshold" validate:"gte=0,lte=1"`
}

type AcceleratorConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type DetectConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	ScoreThreshold float64 `mapstructure:"score_threshold" validate:"gte=0,lte=1"`
}

type ExportConfig struct {
	Backend string   `mapstructure:"backend" validate:"oneof=dir s3"`
	S3      S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

var validate = validator.New()

// Load reads a YAML file on top of the defaults. A missing file is not an
// error; environment variables override both.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	bindEnv(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Server.Port = normalizePort(cfg.Server.Port)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Export.Backend == "s3" && c.Export.S3.Bucket == "" {
		return errors.New("invalid config: export.s3.bucket is required for the s3 backend")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":7860")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("paths.models_dir", "./models")
	v.SetDefault("paths.data_dir", "./data")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_cost", 256<<20)
	v.SetDefault("cache.ttl", time.Hour)

	v.SetDefault("upload.max_size", 10*1024*1024)
	v.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/png", "image/jpg", "image/bmp", "image/tiff", "image/gif"})

	v.SetDefault("image.max_size", 1024)

	v.SetDefault("grabcut.iterations", 5)
	v.SetDefault("grabcut.seed_radius", 5)
	v.SetDefault("grabcut.max_concurrent", 3)
	v.SetDefault("grabcut.queue_timeout", 30)

	v.SetDefault("refine.morph_kernel", 3)
	v.SetDefault("refine.feather_px", 2.0)
	v.SetDefault("refine.threshold", 0.5)

	v.SetDefault("recolor.color", "#E53935")
	v.SetDefault("recolor.strength", core.DefaultStrength)
	v.SetDefault("recolor.hue_tolerance", core.DefaultHueTolerance)
	v.SetDefault("recolor.include_shadow", false)
	v.SetDefault("recolor.shadow_dilation", core.DefaultShadowDilation)
	v.SetDefault("recolor.shadow_value_threshold", core.DefaultShadowValueThreshold)

	v.SetDefault("accelerator.enabled", true)

	v.SetDefault("detect.enabled", false)
	v.SetDefault("detect.score_threshold", 0.35)

	v.SetDefault("export.backend", "dir")
	v.SetDefault("export.s3.region", "us-east-1")
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("OBJECT_PAINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("paths.models_dir", "OBJECT_PAINT_PATHS_MODELS_DIR", "MODEL_CACHE_DIR")
	_ = v.BindEnv("paths.data_dir", "OBJECT_PAINT_PATHS_DATA_DIR", "DATA_DIR")
	_ = v.BindEnv("server.port", "OBJECT_PAINT_SERVER_PORT", "PORT")
	_ = v.BindEnv("redis.addr", "OBJECT_PAINT_REDIS_ADDR", "REDIS_ADDR")
}

// normalizePort accepts "8080" as well as ":8080" or "host:8080".
func normalizePort(port string) string {
	port = strings.TrimSpace(port)
	if port != "" && !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}
