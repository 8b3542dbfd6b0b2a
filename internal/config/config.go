package config

import (
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	viper "github.com/spf13/viper"
)

/*
把 init config 跟 read config 分開
init : 需要設置 viper watch 與 onConfigChange
read : 一般讀取，需要使用讀寫鎖
*/
var config_singleton *ConfigSingleTon
var muonce sync.Once

type ConfigSingleTon struct {
	Config *Config
	mu     sync.RWMutex
}

type Config struct {
	ServiceName string `mapstructure:"SERVICE_NAME"`
	MetricsPort string `mapstructure:"METRICS_PORT"`

	DbName string `mapstructure:"POSTGRES_DB"`
	DbHost string `mapstructure:"POSTGRES_HOST"`
	DbPort string `mapstructure:"POSTGRES_PORT"`
	DbUser string `mapstructure:"POSTGRES_USER"`
	DbPas  string `mapstructure:"POSTGRES_PASSWORD"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"` // 逗號分隔

	CartCacheTTLSeconds int    `mapstructure:"CART_CACHE_TTL_SECONDS"`
	LowStockThresholds  string `mapstructure:"LOW_STOCK_THRESHOLDS"` // 逗號分隔，例如 "1,10"

	OutboxDrainIntervalSeconds int `mapstructure:"OUTBOX_DRAIN_INTERVAL_SECONDS"`
	OutboxBatchSize            int `mapstructure:"OUTBOX_BATCH_SIZE"`
}

func (c *Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func (c *Config) CartCacheTTL() time.Duration {
	return time.Duration(c.CartCacheTTLSeconds) * time.Second
}

func (c *Config) OutboxDrainInterval() time.Duration {
	return time.Duration(c.OutboxDrainIntervalSeconds) * time.Second
}

// Thresholds 解析低庫存水位，解析不了的值直接略過
func (c *Config) Thresholds() []int {
	var out []int
	for _, s := range strings.Split(c.LowStockThresholds, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			out = append(out, n)
		}
	}
	return out
}

func GetConfig() *Config {
	initConfig()
	config_singleton.mu.RLock()
	defer config_singleton.mu.RUnlock()
	return config_singleton.Config
}

func initConfig() {
	if config_singleton == nil {
		muonce.Do(func() {
			config_singleton = &ConfigSingleTon{}
			if cf, err := loadConfig(); err == nil {
				config_singleton.Config = cf
			} else {
				log.Fatal("error read config")
			}
			viper.WatchConfig()
			viper.OnConfigChange(func(e fsnotify.Event) {
				if cf, err := loadConfig(); err == nil {
					config_singleton.mu.Lock()
					config_singleton.Config = cf
					config_singleton.mu.Unlock()
				} else {
					log.Panic("failed to reload config file")
				}
			})
		})
	}
}

/*
單純回傳錯誤，由外部決定要不要 Fatal，畢竟有可能有替代方案
*/
func loadConfig() (cf *Config, err error) {
	cf = &Config{}

	viper.SetDefault("SERVICE_NAME", "checkout")
	viper.SetDefault("METRICS_PORT", "9102")
	viper.SetDefault("CART_CACHE_TTL_SECONDS", 300)
	viper.SetDefault("LOW_STOCK_THRESHOLDS", "1,10")
	viper.SetDefault("OUTBOX_DRAIN_INTERVAL_SECONDS", 2)
	viper.SetDefault("OUTBOX_BATCH_SIZE", 100)

	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Unmarshal 只看得到 defaults 或設定檔裡出現過的 key，
	// 沒有 default 的 key 要先 BindEnv，不然 .env 不存在時環境變數會被整個漏掉
	for _, key := range []string{
		"POSTGRES_DB", "POSTGRES_HOST", "POSTGRES_PORT",
		"POSTGRES_USER", "POSTGRES_PASSWORD",
		"REDIS_ADDR", "REDIS_PASSWORD",
		"KAFKA_BROKERS",
	} {
		if err := viper.BindEnv(key); err != nil {
			return nil, err
		}
	}

	// .env 不存在就只吃環境變數
	_ = viper.ReadInConfig()

	err = viper.Unmarshal(cf)
	if err != nil {
		return nil, err
	}
	return cf, nil
}
