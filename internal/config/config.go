// Package config loads schnabel's runtime configuration with viper:
// rule pack/confusables paths, prompt and history bounds, scanner
// timeouts, and policy thresholds, from ~/.schnabel/config.yaml layered
// under SCHNABEL_* environment overrides. Grounded on
// andymwolf-agentium's internal/config (mapstructure-tagged nested
// struct, Load() via viper.Unmarshal + applyDefaults) and its
// internal/cli/root.go viper init (SetConfigName/AddConfigPath/
// SetEnvPrefix/AutomaticEnv/ReadInConfig), repointed at audit-pipeline
// settings instead of cloud-session settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/gzhole/schnabel/internal/model"
	"github.com/gzhole/schnabel/internal/policy"
)

// DefaultConfigDirName is the directory under the user's home holding
// config.yaml, packs/, and the operational audit log.
const DefaultConfigDirName = ".schnabel"

// EnvPrefix is the prefix viper uses for environment variable overrides,
// e.g. SCHNABEL_MAXPROMPTLENGTH.
const EnvPrefix = "SCHNABEL"

// PolicyConfig mirrors policy.Config with mapstructure tags so it can be
// decoded directly from config.yaml's policy: section.
type PolicyConfig struct {
	BlockAt             string  `mapstructure:"blockAt"`
	ChallengeAt         string  `mapstructure:"challengeAt"`
	ChallengeScoreSumAt float64 `mapstructure:"challengeScoreSumAt"`
	WarnScoreSumAt      float64 `mapstructure:"warnScoreSumAt"`
	MaxReasons          int     `mapstructure:"maxReasons"`
	HistoryWindow       int     `mapstructure:"historyWindow"`
}

// Config is schnabel's full runtime configuration.
type Config struct {
	RulePackPath     string       `mapstructure:"rulePackPath"`
	PacksDir         string       `mapstructure:"packsDir"`
	ConfusablesPath  string       `mapstructure:"confusablesPath"`
	MaxPromptLength  int          `mapstructure:"maxPromptLength"`
	HistoryMaxTurns  int          `mapstructure:"historyMaxTurns"`
	ScannerTimeoutMs int          `mapstructure:"scannerTimeoutMs"`
	FailFastAt       string       `mapstructure:"failFastAt"`
	Policy           PolicyConfig `mapstructure:"policy"`

	// ConfigDir is not part of config.yaml; it is the resolved
	// directory used for defaulting RulePackPath/PacksDir/the audit log.
	ConfigDir string `mapstructure:"-"`
}

// Init wires viper to read cfgFile if given, else ~/.schnabel/config.yaml,
// layered under SCHNABEL_* environment overrides. It mirrors the
// teacher-adjacent reference's initConfig: SetConfigFile or
// AddConfigPath+SetConfigName, then SetEnvPrefix+AutomaticEnv. A missing
// config file is not an error — defaults apply.
func Init(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return fmt.Errorf("resolving config directory: %w", err)
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
		viper.AddConfigPath(dir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	return nil
}

// Load unmarshals viper's current state into a Config and applies
// defaults for anything left unset.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	cfg.ConfigDir = dir

	applyDefaults(cfg)
	return cfg, nil
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultConfigDirName), nil
}

func applyDefaults(cfg *Config) {
	if cfg.RulePackPath == "" {
		cfg.RulePackPath = filepath.Join(cfg.ConfigDir, "rulepack.json")
	}
	if cfg.PacksDir == "" {
		cfg.PacksDir = filepath.Join(cfg.ConfigDir, "packs")
	}
	if cfg.ConfusablesPath == "" {
		cfg.ConfusablesPath = filepath.Join(cfg.ConfigDir, "confusables.txt")
	}
	if cfg.MaxPromptLength <= 0 {
		cfg.MaxPromptLength = 1 << 20
	}
	if cfg.HistoryMaxTurns <= 0 {
		cfg.HistoryMaxTurns = 200
	}
	if cfg.ScannerTimeoutMs <= 0 {
		cfg.ScannerTimeoutMs = 30000
	}
	if cfg.FailFastAt == "" {
		cfg.FailFastAt = "high"
	}

	def := policy.DefaultConfig()
	if cfg.Policy.BlockAt == "" {
		cfg.Policy.BlockAt = string(def.BlockAt)
	}
	if cfg.Policy.ChallengeAt == "" {
		cfg.Policy.ChallengeAt = string(def.ChallengeAt)
	}
	if cfg.Policy.ChallengeScoreSumAt == 0 {
		cfg.Policy.ChallengeScoreSumAt = def.ChallengeScoreSumAt
	}
	if cfg.Policy.WarnScoreSumAt == 0 {
		cfg.Policy.WarnScoreSumAt = def.WarnScoreSumAt
	}
	if cfg.Policy.MaxReasons <= 0 {
		cfg.Policy.MaxReasons = def.MaxReasons
	}
	if cfg.Policy.HistoryWindow <= 0 {
		cfg.Policy.HistoryWindow = def.HistoryWindow
	}
}

// PolicyEngineConfig converts the YAML-friendly PolicyConfig into
// policy.Config, the shape the evaluator actually consumes.
func (c *Config) PolicyEngineConfig() policy.Config {
	return policy.Config{
		PolicyID:            "default",
		BlockAt:             model.RiskLevel(c.Policy.BlockAt),
		ChallengeAt:         model.RiskLevel(c.Policy.ChallengeAt),
		ChallengeScoreSumAt: c.Policy.ChallengeScoreSumAt,
		WarnScoreSumAt:      c.Policy.WarnScoreSumAt,
		MaxReasons:          c.Policy.MaxReasons,
		HistoryWindow:       c.Policy.HistoryWindow,
	}
}
