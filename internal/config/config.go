package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// MaxPanels is the number of distinct panel colours available.
const MaxPanels = 10

var ErrInvalid = errors.New("invalid configuration")

// Global configuration structure.
type Global struct {
	// Topic model
	Topics   int     `mapstructure:"topics" yaml:"topics" json:"topics"`
	Passes   int     `mapstructure:"passes" yaml:"passes" json:"passes"`
	TopWords int     `mapstructure:"top_words" yaml:"top_words" json:"top_words"`
	Seed     int64   `mapstructure:"seed" yaml:"seed" json:"seed"`
	Workers  int     `mapstructure:"workers" yaml:"workers" json:"workers"`
	Alpha    float64 `mapstructure:"alpha" yaml:"alpha" json:"alpha"`
	Eta      float64 `mapstructure:"eta" yaml:"eta" json:"eta"`

	// Text cleaning
	MinLanguageConfidence float64  `mapstructure:"min_language_confidence" yaml:"min_language_confidence" json:"min_language_confidence"`
	StopwordsFile         string   `mapstructure:"stopwords_file" yaml:"stopwords_file" json:"stopwords_file"`
	ExtraStopwords        []string `mapstructure:"extra_stopwords" yaml:"extra_stopwords" json:"extra_stopwords"`

	// Dictionary filtering, off by default
	NoBelow int     `mapstructure:"no_below" yaml:"no_below" json:"no_below"`
	NoAbove float64 `mapstructure:"no_above" yaml:"no_above" json:"no_above"`
	KeepN   int     `mapstructure:"keep_n" yaml:"keep_n" json:"keep_n"`

	// Input
	TextColumn string `mapstructure:"text_column" yaml:"text_column" json:"text_column"`
	MaxRows    int    `mapstructure:"max_rows" yaml:"max_rows" json:"max_rows"`

	// Output
	Panels      int    `mapstructure:"panels" yaml:"panels" json:"panels"`
	CloudWidth  int    `mapstructure:"cloud_width" yaml:"cloud_width" json:"cloud_width"`
	CloudHeight int    `mapstructure:"cloud_height" yaml:"cloud_height" json:"cloud_height"`
	OutputDir   string `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
}

// Keys lists every settable key in display order.
var Keys = []string{
	"topics", "passes", "top_words", "seed", "workers", "alpha", "eta",
	"min_language_confidence", "stopwords_file", "extra_stopwords",
	"no_below", "no_above", "keep_n",
	"text_column", "max_rows",
	"panels", "cloud_width", "cloud_height", "output_dir", "log_level",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("topics", 10)
	v.SetDefault("passes", 50)
	v.SetDefault("top_words", 25)
	v.SetDefault("seed", 0)
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("alpha", 0.1)
	v.SetDefault("eta", 0.01)
	v.SetDefault("min_language_confidence", 0.5)
	v.SetDefault("stopwords_file", "")
	v.SetDefault("extra_stopwords", []string{})
	v.SetDefault("no_below", 0)
	v.SetDefault("no_above", 1.0)
	v.SetDefault("keep_n", 0)
	v.SetDefault("text_column", "text")
	v.SetDefault("max_rows", 0)
	v.SetDefault("panels", 4)
	v.SetDefault("cloud_width", 600)
	v.SetDefault("cloud_height", 450)
	v.SetDefault("output_dir", ".")
	v.SetDefault("log_level", "info")
}

// Default returns the built-in configuration without reading files or env.
func Default() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

// Dir is ~/.topicloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".topicloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.topicloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (TOPICLOOM_*, .env included) > config file > defaults.
// Command-line flags are applied on top by the caller.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TOPICLOOM")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	return &c, nil
}

// Validate reports settings no run could succeed with.
func (c *Global) Validate() error {
	var problems []string
	if c.Topics < 1 {
		problems = append(problems, fmt.Sprintf("topics must be >= 1 (got %d)", c.Topics))
	}
	if c.Passes < 1 {
		problems = append(problems, fmt.Sprintf("passes must be >= 1 (got %d)", c.Passes))
	}
	if c.TopWords < 1 {
		problems = append(problems, fmt.Sprintf("top_words must be >= 1 (got %d)", c.TopWords))
	}
	if c.Panels < 1 || c.Panels > MaxPanels {
		problems = append(problems, fmt.Sprintf("panels must be between 1 and %d (got %d)", MaxPanels, c.Panels))
	}
	if c.Panels > c.Topics {
		problems = append(problems, fmt.Sprintf("panels (%d) cannot exceed topics (%d)", c.Panels, c.Topics))
	}
	if c.MinLanguageConfidence < 0 || c.MinLanguageConfidence > 1 {
		problems = append(problems, fmt.Sprintf("min_language_confidence must be within [0,1] (got %g)", c.MinLanguageConfidence))
	}
	if c.NoAbove <= 0 || c.NoAbove > 1 {
		problems = append(problems, fmt.Sprintf("no_above must be within (0,1] (got %g)", c.NoAbove))
	}
	if c.NoBelow < 0 || c.KeepN < 0 || c.MaxRows < 0 {
		problems = append(problems, "no_below, keep_n and max_rows cannot be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Set assigns one key from its string form.
func (c *Global) Set(key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	atof := func() (float64, error) {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 {
			return 0, fmt.Errorf("invalid float for %s: %v", key, val)
		}
		return f, nil
	}

	var err error
	switch key {
	case "topics":
		c.Topics, err = atoi()
	case "passes":
		c.Passes, err = atoi()
	case "top_words":
		c.TopWords, err = atoi()
	case "seed":
		var s int64
		s, err = strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int for seed: %v", val)
		}
		c.Seed = s
	case "workers":
		c.Workers, err = atoi()
	case "alpha":
		c.Alpha, err = atof()
	case "eta":
		c.Eta, err = atof()
	case "min_language_confidence":
		c.MinLanguageConfidence, err = atof()
	case "stopwords_file":
		c.StopwordsFile = val
	case "extra_stopwords":
		c.ExtraStopwords = nil
		for _, w := range strings.Split(val, ",") {
			if w = strings.TrimSpace(w); w != "" {
				c.ExtraStopwords = append(c.ExtraStopwords, w)
			}
		}
	case "no_below":
		c.NoBelow, err = atoi()
	case "no_above":
		c.NoAbove, err = atof()
	case "keep_n":
		c.KeepN, err = atoi()
	case "text_column":
		c.TextColumn = val
	case "max_rows":
		c.MaxRows, err = atoi()
	case "panels":
		c.Panels, err = atoi()
	case "cloud_width":
		c.CloudWidth, err = atoi()
	case "cloud_height":
		c.CloudHeight, err = atoi()
	case "output_dir":
		c.OutputDir = val
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err != nil {
		return err
	}
	return c.Validate()
}

// Get renders one key for display.
func (c *Global) Get(key string) (string, bool) {
	switch key {
	case "topics":
		return strconv.Itoa(c.Topics), true
	case "passes":
		return strconv.Itoa(c.Passes), true
	case "top_words":
		return strconv.Itoa(c.TopWords), true
	case "seed":
		return strconv.FormatInt(c.Seed, 10), true
	case "workers":
		return strconv.Itoa(c.Workers), true
	case "alpha":
		return strconv.FormatFloat(c.Alpha, 'g', -1, 64), true
	case "eta":
		return strconv.FormatFloat(c.Eta, 'g', -1, 64), true
	case "min_language_confidence":
		return strconv.FormatFloat(c.MinLanguageConfidence, 'g', -1, 64), true
	case "stopwords_file":
		return c.StopwordsFile, true
	case "extra_stopwords":
		return strings.Join(c.ExtraStopwords, ","), true
	case "no_below":
		return strconv.Itoa(c.NoBelow), true
	case "no_above":
		return strconv.FormatFloat(c.NoAbove, 'g', -1, 64), true
	case "keep_n":
		return strconv.Itoa(c.KeepN), true
	case "text_column":
		return c.TextColumn, true
	case "max_rows":
		return strconv.Itoa(c.MaxRows), true
	case "panels":
		return strconv.Itoa(c.Panels), true
	case "cloud_width":
		return strconv.Itoa(c.CloudWidth), true
	case "cloud_height":
		return strconv.Itoa(c.CloudHeight), true
	case "output_dir":
		return c.OutputDir, true
	case "log_level":
		return c.LogLevel, true
	}
	return "", false
}
