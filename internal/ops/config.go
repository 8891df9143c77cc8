package ops

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/yanun0323/errors"

	"main/internal/deriv"
	"main/internal/signal"
	"main/internal/trade"
)

var ErrBadBarrier = errors.New("ops: barrier must be \"auto\" or a digit 0-9")

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Endpoint    string           `json:"endpoint"`
	Instrument  string           `json:"instrument"`
	Mode        string           `json:"mode"`
	Barrier     string           `json:"barrier"`
	Stake       float64          `json:"stake"`
	TakeProfit  float64          `json:"takeProfit"`
	StopLoss    float64          `json:"stopLoss"`
	CooldownMs  int              `json:"cooldownMs"`
	HistorySize int              `json:"historySize"`
	MetricsAddr string           `json:"metricsAddr"`
	Pyroscope   PyroscopeConfig  `json:"pyroscope"`
	Signal      *ThresholdConfig `json:"signal"`
}

// PyroscopeConfig enables the optional continuous profiler.
type PyroscopeConfig struct {
	ServerAddress   string `json:"serverAddress"`
	ApplicationName string `json:"applicationName"`
}

// ThresholdConfig overrides individual signal thresholds; nil fields keep
// the defaults.
type ThresholdConfig struct {
	LowProbThreshold   *float64 `json:"lowProbThreshold"`
	SideSumThreshold   *float64 `json:"sideSumThreshold"`
	DominanceThreshold *float64 `json:"dominanceThreshold"`
	ConfirmCount       *int     `json:"confirmCount"`
	StreakLength       *int     `json:"streakLength"`
	MinHistory         *int     `json:"minHistory"`
}

// secrets never live in the JSON file; they come from the environment,
// optionally seeded by a .env file.
type secrets struct {
	Token       string `envconfig:"DERIV_TOKEN"`
	PostgresDSN string `envconfig:"JOURNAL_POSTGRES_DSN"`
}

// Loaded is the resolved configuration ready for wiring.
type Loaded struct {
	Endpoint    string
	Token       string
	PostgresDSN string
	MetricsAddr string
	Pyroscope   PyroscopeConfig
	Trade       trade.Config
}

// Load reads the JSON config file (an empty path means all defaults) and
// overlays environment secrets.
func Load(path string) (Loaded, error) {
	// .env is optional; missing files are expected in production.
	_ = godotenv.Load()

	var env secrets
	if err := envconfig.Process("", &env); err != nil {
		return Loaded{}, errors.Wrap(err, "read environment")
	}

	cfg := FileConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Loaded{}, errors.Wrap(err, "read config file")
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Loaded{}, errors.Wrap(err, "parse config file")
		}
	}
	return resolve(cfg, env)
}

func resolve(cfg FileConfig, env secrets) (Loaded, error) {
	mode := deriv.ModeAuto
	if cfg.Mode != "" {
		parsed, err := deriv.ParseTradeMode(cfg.Mode)
		if err != nil {
			return Loaded{}, err
		}
		mode = parsed
	}

	barrier, err := resolveBarrier(cfg.Barrier)
	if err != nil {
		return Loaded{}, err
	}

	signalCfg := signal.DefaultConfig()
	applyThresholds(&signalCfg, cfg.Signal)

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = deriv.DefaultEndpoint
	}
	metricsAddr := cfg.MetricsAddr
	if metricsAddr == "" {
		metricsAddr = ":9090"
	}
	pyroscope := cfg.Pyroscope
	if pyroscope.ApplicationName == "" {
		pyroscope.ApplicationName = "deriv.trader"
	}

	return Loaded{
		Endpoint:    endpoint,
		Token:       env.Token,
		PostgresDSN: env.PostgresDSN,
		MetricsAddr: metricsAddr,
		Pyroscope:   pyroscope,
		Trade: trade.Config{
			Instrument: cfg.Instrument,
			Mode:       mode,
			Barrier:    barrier,
			Stake:      cfg.Stake,
			TakeProfit: cfg.TakeProfit,
			StopLoss:   cfg.StopLoss,
			Cooldown:   time.Duration(cfg.CooldownMs) * time.Millisecond,
			HistoryCap: cfg.HistorySize,
			Signal:     signalCfg,
		},
	}, nil
}

func resolveBarrier(raw string) (int, error) {
	if raw == "" || raw == "auto" {
		return signal.AutoBarrier, nil
	}
	digit, err := strconv.Atoi(raw)
	if err != nil || digit < 0 || digit > 9 {
		return 0, errors.Wrap(ErrBadBarrier, raw)
	}
	return digit, nil
}

func applyThresholds(dst *signal.Config, src *ThresholdConfig) {
	if src == nil {
		return
	}
	if src.LowProbThreshold != nil {
		dst.LowProbThreshold = *src.LowProbThreshold
	}
	if src.SideSumThreshold != nil {
		dst.SideSumThreshold = *src.SideSumThreshold
	}
	if src.DominanceThreshold != nil {
		dst.DominanceThreshold = *src.DominanceThreshold
	}
	if src.ConfirmCount != nil {
		dst.ConfirmCount = *src.ConfirmCount
	}
	if src.StreakLength != nil {
		dst.StreakLength = *src.StreakLength
	}
	if src.MinHistory != nil {
		dst.MinHistory = *src.MinHistory
	}
}
