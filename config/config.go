package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fixkme/tickwheel/errs"
	"github.com/fixkme/tickwheel/mlog"
	"github.com/fixkme/tickwheel/registry"
	"github.com/fixkme/tickwheel/scheduler"
)

var Config *AppConfig

type AppConfig struct {
	IsDebug         bool `json:"is_debug" mapstructure:"is_debug"`
	LogConfig       `json:",inline" mapstructure:",inline"`
	WheelConfig     `json:",inline" mapstructure:",inline"`
	ServerConfig    `json:",inline" mapstructure:",inline"`
	OwnerLockConfig `json:",inline" mapstructure:",inline"`
}

type LogConfig struct {
	LogPath   string `json:"log_path" mapstructure:"log_path"` // 为空只输出到标准输出
	LogName   string `json:"log_name" mapstructure:"log_name"`
	LogLevel  string `json:"log_level" mapstructure:"log_level"`
	LogStdOut bool   `json:"log_std_out" mapstructure:"log_std_out"`
}

type WheelConfig struct {
	TickMs          int    `json:"tick_ms" mapstructure:"tick_ms"`                   // real域tick时长 毫秒
	Tiers           []int  `json:"tiers" mapstructure:"tiers"`                       // 每层格子数, 由细到粗
	RealUnitMs      int    `json:"real_unit_ms" mapstructure:"real_unit_ms"`         // real域延迟单位 毫秒
	ExternalScale   int    `json:"external_scale" mapstructure:"external_scale"`     // external域每单位的tick数
	DuplicatePolicy string `json:"duplicate_policy" mapstructure:"duplicate_policy"` // reject / replace
}

type ServerConfig struct {
	ListenAddr       string `json:"listen_addr" mapstructure:"listen_addr"`
	Multicore        bool   `json:"multicore" mapstructure:"multicore"`
	StatsIntervalSec int    `json:"stats_interval_sec" mapstructure:"stats_interval_sec"` // 0不打印统计
}

// OwnerLockConfig 同一个lock_key只允许一个进程持有
type OwnerLockConfig struct {
	RedisAddr     string `json:"redis_addr" mapstructure:"redis_addr"` // 为空不加锁
	RedisPassword string `json:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `json:"redis_db" mapstructure:"redis_db"`
	LockKey       string `json:"lock_key" mapstructure:"lock_key"`
	LockTTLMs     int    `json:"lock_ttl_ms" mapstructure:"lock_ttl_ms"`
}

func Default() *AppConfig {
	return &AppConfig{
		LogConfig: LogConfig{
			LogName:   "tickwheel",
			LogLevel:  "info",
			LogStdOut: true,
		},
		WheelConfig: WheelConfig{
			TickMs:          100,
			Tiers:           []int{10, 60, 60},
			RealUnitMs:      100,
			ExternalScale:   1,
			DuplicatePolicy: "reject",
		},
		ServerConfig: ServerConfig{
			ListenAddr:       "tcp://127.0.0.1:7400",
			StatsIntervalSec: 60,
		},
		OwnerLockConfig: OwnerLockConfig{
			LockKey:   "tickwheel:owner",
			LockTTLMs: 10000,
		},
	}
}

func LoadConfig(configFile string, loadConfigFromEnv func(*AppConfig) error) error {
	Config = Default()
	if len(configFile) != 0 {
		if err := loadConfigFromFile(configFile); err != nil {
			return err
		}
	}
	if loadConfigFromEnv != nil {
		if err := loadConfigFromEnv(Config); err != nil {
			return err
		}
	}
	return Config.Validate()
}

func loadConfigFromFile(configFile string) error {
	return readFile(configFile, Config)
}

// readFile 支持json和yaml, 文件中没有的字段保持conf原值
func readFile(configFile string, conf *AppConfig) error {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}
	if data, err = toJSON(configFile, data); err != nil {
		return err
	}
	if err = json.Unmarshal(data, conf); err != nil {
		return errs.Config.Printf("%s: %v", configFile, err)
	}
	return nil
}

const envPrefix = "TICKWHEEL_"

// EnvLoader 用 TICKWHEEL_<JSON字段名大写> 覆盖配置, 如 TICKWHEEL_TICK_MS=50
func EnvLoader(conf *AppConfig) error {
	var err error
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		v, ok := os.LookupEnv(envPrefix + name)
		if !ok || err != nil {
			return
		}
		n, e := strconv.Atoi(strings.TrimSpace(v))
		if e != nil {
			err = errs.Config.Printf("%s%s=%q", envPrefix, name, v)
			return
		}
		*dst = n
	}
	flag := func(name string, dst *bool) {
		v, ok := os.LookupEnv(envPrefix + name)
		if !ok || err != nil {
			return
		}
		b, e := strconv.ParseBool(strings.TrimSpace(v))
		if e != nil {
			err = errs.Config.Printf("%s%s=%q", envPrefix, name, v)
			return
		}
		*dst = b
	}

	flag("IS_DEBUG", &conf.IsDebug)
	str("LOG_PATH", &conf.LogPath)
	str("LOG_NAME", &conf.LogName)
	str("LOG_LEVEL", &conf.LogLevel)
	flag("LOG_STD_OUT", &conf.LogStdOut)
	num("TICK_MS", &conf.TickMs)
	num("REAL_UNIT_MS", &conf.RealUnitMs)
	num("EXTERNAL_SCALE", &conf.ExternalScale)
	str("DUPLICATE_POLICY", &conf.DuplicatePolicy)
	str("LISTEN_ADDR", &conf.ListenAddr)
	flag("MULTICORE", &conf.Multicore)
	num("STATS_INTERVAL_SEC", &conf.StatsIntervalSec)
	str("REDIS_ADDR", &conf.RedisAddr)
	str("REDIS_PASSWORD", &conf.RedisPassword)
	num("REDIS_DB", &conf.RedisDB)
	str("LOCK_KEY", &conf.LockKey)
	num("LOCK_TTL_MS", &conf.LockTTLMs)

	// 逗号分隔, 如 TICKWHEEL_TIERS=10,60,60,24
	if v, ok := os.LookupEnv(envPrefix + "TIERS"); ok && err == nil {
		var tiers []int
		for _, s := range strings.Split(v, ",") {
			n, e := strconv.Atoi(strings.TrimSpace(s))
			if e != nil {
				return errs.Config.Printf("%sTIERS=%q", envPrefix, v)
			}
			tiers = append(tiers, n)
		}
		conf.Tiers = tiers
	}
	return err
}

func (conf *AppConfig) Validate() error {
	if conf.TickMs <= 0 {
		return errs.Config.Printf("tick_ms must be positive, got %d", conf.TickMs)
	}
	if conf.RealUnitMs <= 0 {
		return errs.Config.Printf("real_unit_ms must be positive, got %d", conf.RealUnitMs)
	}
	if conf.ExternalScale <= 0 {
		return errs.Config.Printf("external_scale must be positive, got %d", conf.ExternalScale)
	}
	for i, n := range conf.Tiers {
		if n < 2 {
			return errs.Config.Printf("tier %d needs at least 2 slots, got %d", i, n)
		}
	}
	if conf.ListenAddr == "" {
		return errs.Config.Print("listen_addr is required")
	}
	if _, err := registry.ParsePolicy(conf.DuplicatePolicy); err != nil {
		return err
	}
	if conf.RedisAddr != "" {
		if conf.LockKey == "" {
			return errs.Config.Print("lock_key is required with redis_addr")
		}
		if conf.LockTTLMs < 1000 {
			return errs.Config.Printf("lock_ttl_ms must be at least 1000, got %d", conf.LockTTLMs)
		}
	}
	return nil
}

// SchedulerOptions 转换为调度器参数, 时钟使用系统时钟
func (conf *AppConfig) SchedulerOptions() (scheduler.Options, error) {
	policy, err := registry.ParsePolicy(conf.DuplicatePolicy)
	if err != nil {
		return scheduler.Options{}, err
	}
	return scheduler.Options{
		Tiers:         conf.Tiers,
		Tick:          time.Duration(conf.TickMs) * time.Millisecond,
		RealUnit:      time.Duration(conf.RealUnitMs) * time.Millisecond,
		ExternalScale: uint64(conf.ExternalScale),
		Policy:        policy,
	}, nil
}

func (conf *AppConfig) Level() mlog.Level {
	return mlog.ParseLevel(conf.LogLevel)
}

func (conf *AppConfig) LockTTL() time.Duration {
	return time.Duration(conf.LockTTLMs) * time.Millisecond
}

func (conf *AppConfig) StatsInterval() time.Duration {
	return time.Duration(conf.StatsIntervalSec) * time.Second
}

func (conf *AppConfig) JsonFormat() string {
	if conf == nil {
		return "{}"
	}
	data, err := json.MarshalIndent(conf, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}
