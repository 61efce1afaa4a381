// internal/pkg/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// NodeInfo 描述一个静态配置的履约节点（仓库）。
// 拓扑是静态的：有哪些节点、地址是什么，由部署配置决定，不在运行时发现。
type NodeInfo struct {
	ID      string `yaml:"id"`
	BaseURL string `yaml:"baseUrl"`
}

// Config 是所有进程共享的配置结构。
// 每个进程只使用和自己相关的部分，进程自己的身份（nodeId/originId）
// 通过构造函数显式传入各组件，不做隐藏的全局注入。
type Config struct {
	Infra struct {
		Kafka struct {
			Brokers []string `yaml:"brokers"`
		} `yaml:"kafka"`
		Mysql struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Redis struct {
			Addr string `yaml:"addr"`
		} `yaml:"redis"`
		Zookeeper struct {
			Servers []string `yaml:"servers"`
		} `yaml:"zookeeper"`
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Nacos struct {
			ServerAddrs string `yaml:"serverAddrs"`
			Namespace   string `yaml:"namespace"`
			Group       string `yaml:"group"`
		} `yaml:"nacos"`
	} `yaml:"infra"`

	Topology struct {
		Nodes []NodeInfo `yaml:"nodes"`
	} `yaml:"topology"`

	Router struct {
		// CacheBackend 可以是 "memory" 或 "redis"。
		CacheBackend string `yaml:"cacheBackend"`
		// SelectionPolicy 是一个可选的 CEL 表达式，用来在排序前过滤候选节点。
		SelectionPolicy string `yaml:"selectionPolicy"`
		// ProbeTimeoutSeconds 是对单个节点同步探测的传输超时。
		ProbeTimeoutSeconds int `yaml:"probeTimeoutSeconds"`
		// Workers 是每类消费者的并发 worker 数量。
		Workers int `yaml:"workers"`
	} `yaml:"router"`

	Node struct {
		ID string `yaml:"id"`
		// LockBackend 可以是 "local" 或 "zookeeper"。
		LockBackend string `yaml:"lockBackend"`
	} `yaml:"node"`

	Origin struct {
		ID string `yaml:"id"`
		// RouterURL 是发起方下单时访问的路由服务地址。
		RouterURL string `yaml:"routerUrl"`
	} `yaml:"origin"`
}

var (
	current Config
	once    sync.Once
)

// Load 从 CONFIG_FILE 指定的 YAML 文件加载配置，并应用环境变量覆盖。
// 找不到文件时退回纯默认值 + 环境变量，方便本地直接启动。
func Load() (*Config, error) {
	var loadErr error
	once.Do(func() {
		applyDefaults(&current)

		path := getEnv("CONFIG_FILE", "config.yaml")
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &current); err != nil {
				loadErr = fmt.Errorf("parse config %s: %w", path, err)
				return
			}
		} else if !os.IsNotExist(err) {
			loadErr = fmt.Errorf("read config %s: %w", path, err)
			return
		}

		applyEnvOverrides(&current)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return &current, nil
}

// Get 返回已加载的配置。必须先调用 Load。
func Get() *Config {
	return &current
}

func applyDefaults(c *Config) {
	c.Infra.Kafka.Brokers = []string{"localhost:9092"}
	c.Infra.Mysql.DSN = "root:root@tcp(localhost:3306)/stockmesh?charset=utf8mb4&parseTime=True&loc=Local"
	c.Infra.Redis.Addr = "localhost:6379"
	c.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	c.Infra.Nacos.ServerAddrs = "localhost:8848"
	c.Infra.Nacos.Group = "DEFAULT_GROUP"
	c.Router.CacheBackend = "memory"
	c.Router.ProbeTimeoutSeconds = 3
	c.Router.Workers = 4
	c.Node.LockBackend = "local"
	c.Origin.RouterURL = "http://localhost:8090"
}

func applyEnvOverrides(c *Config) {
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		c.Infra.Mysql.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Infra.Redis.Addr = v
	}
	if v := os.Getenv("ZK_SERVERS"); v != "" {
		c.Infra.Zookeeper.Servers = strings.Split(v, ",")
	}
	if v := os.Getenv("JAEGER_ENDPOINT"); v != "" {
		c.Infra.Jaeger.Endpoint = v
	}
	if v := os.Getenv("NACOS_SERVER_ADDRS"); v != "" {
		c.Infra.Nacos.ServerAddrs = v
	}
	if v := os.Getenv("NACOS_NAMESPACE"); v != "" {
		c.Infra.Nacos.Namespace = v
	}
	if v := os.Getenv("NACOS_GROUP"); v != "" {
		c.Infra.Nacos.Group = v
	}
	if v := os.Getenv("NODE_ID"); v != "" {
		c.Node.ID = v
	}
	if v := os.Getenv("ORIGIN_ID"); v != "" {
		c.Origin.ID = v
	}
	if v := os.Getenv("ROUTER_URL"); v != "" {
		c.Origin.RouterURL = v
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
