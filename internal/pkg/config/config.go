// internal/pkg/config/config.go
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config 汇总服务的全部外部依赖与调度参数。
// 先读 YAML 文件，再用环境变量覆盖，便于容器环境注入。
type Config struct {
	ServiceName string `yaml:"serviceName"`
	HTTPPort    string `yaml:"httpPort"`

	MySQLDSN     string   `yaml:"mysqlDSN"`
	RedisAddrs   []string `yaml:"redisAddrs"`
	KafkaBrokers string   `yaml:"kafkaBrokers"`
	ZKServers    []string `yaml:"zkServers"`

	JaegerEndpoint   string  `yaml:"jaegerEndpoint"`
	TraceSampleRatio float64 `yaml:"traceSampleRatio"`

	StockSyncTopic    string `yaml:"stockSyncTopic"`
	NotificationTopic string `yaml:"notificationTopic"`
	ConsumerGroupID   string `yaml:"consumerGroupID"`

	ReconcileInterval time.Duration `yaml:"reconcileInterval"`
	GapFillInterval   time.Duration `yaml:"gapFillInterval"`
	SweepDelay        time.Duration `yaml:"sweepDelay"`
	PaymentTimeout    time.Duration `yaml:"paymentTimeout"`
}

// Load 读取配置文件（路径为空则跳过），并应用环境变量与默认值。
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "parse config")
		}
	}

	cfg.ServiceName = getEnv("SERVICE_NAME", fallback(cfg.ServiceName, "order-service"))
	cfg.HTTPPort = getEnv("HTTP_PORT", fallback(cfg.HTTPPort, "8080"))
	cfg.MySQLDSN = getEnv("MYSQL_DSN", fallback(cfg.MySQLDSN,
		"root:root@tcp(127.0.0.1:3306)/ecommerce?charset=utf8mb4&parseTime=True&loc=Local"))
	cfg.KafkaBrokers = getEnv("KAFKA_BROKERS", fallback(cfg.KafkaBrokers, "127.0.0.1:9092"))
	cfg.JaegerEndpoint = getEnv("JAEGER_ENDPOINT", fallback(cfg.JaegerEndpoint, "http://127.0.0.1:14268/api/traces"))
	if v := os.Getenv("TRACE_SAMPLE_RATIO"); v != "" {
		if ratio, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.TraceSampleRatio = ratio
		}
	}
	if cfg.TraceSampleRatio <= 0 {
		cfg.TraceSampleRatio = 1
	}
	cfg.StockSyncTopic = fallback(cfg.StockSyncTopic, "stock-sync-topic")
	cfg.NotificationTopic = fallback(cfg.NotificationTopic, "notifications")
	cfg.ConsumerGroupID = fallback(cfg.ConsumerGroupID, cfg.ServiceName+"-group")

	if addr := os.Getenv("REDIS_ADDRS"); addr != "" {
		cfg.RedisAddrs = []string{addr}
	}
	if len(cfg.RedisAddrs) == 0 {
		cfg.RedisAddrs = []string{"127.0.0.1:6379"}
	}
	if zk := os.Getenv("ZOOKEEPER_SERVERS"); zk != "" {
		cfg.ZKServers = []string{zk}
	}

	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = 30 * time.Second
	}
	if cfg.GapFillInterval <= 0 {
		cfg.GapFillInterval = 5 * time.Minute
	}
	if cfg.SweepDelay <= 0 {
		cfg.SweepDelay = time.Minute
	}
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = 30 * time.Minute
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fallback(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
