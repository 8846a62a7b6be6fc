package config

import (
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"log"
	"sync"
	"time"
)

type Config struct {
	Env      string `yaml:"env" env-default:"local"`
	Telegram struct {
		ApiKey  string `yaml:"api_key" env-default:""`
		AdminId int64  `yaml:"admin_id" env-default:"0"`
		BotName string `yaml:"bot_name" env-default:"WaConsoleBot"`
		Enabled bool   `yaml:"enabled" env-default:"false"`
	} `yaml:"telegram"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Host     string `yaml:"host" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env-default:"27017"`
		User     string `yaml:"user" env-default:"admin"`
		Password string `yaml:"password" env-default:"pass"`
		Database string `yaml:"database" env-default:""`
		// Change streams require a replica set.
		ReplicaSet string `yaml:"replica_set" env-default:""`
	} `yaml:"mongo"`
	Gateway struct {
		BaseURL string        `yaml:"base_url" env-default:"https://wa-confirmation-automation-production.up.railway.app"`
		ApiKey  string        `yaml:"api_key" env-default:""`
		Timeout time.Duration `yaml:"timeout" env-default:"10s"`
	} `yaml:"gateway"`
	Pagination struct {
		PageSize     int           `yaml:"page_size" env-default:"30"`
		FetchTimeout time.Duration `yaml:"fetch_timeout" env-default:"15s"`
	} `yaml:"pagination"`
	Index struct {
		Window       int `yaml:"window" env-default:"500"`
		OrdersWindow int `yaml:"orders_window" env-default:"50"`
	} `yaml:"index"`
	Notify struct {
		DedupTTL time.Duration `yaml:"dedup_ttl" env-default:"0s"`
		DedupMax int64         `yaml:"dedup_max" env-default:"10000"`
	} `yaml:"notify"`
	Listen struct {
		BindIP   string `yaml:"bind_ip" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env-default:"9100"`
		User     string `yaml:"user" env-default:""`
		Password string `yaml:"password" env-default:""`

		// AllowAnonymous serves the console without credentials when user is empty.
		AllowAnonymous bool `yaml:"allow_anonymous" env-default:"false"`
	} `yaml:"listen"`
}

// CheckAccess rejects a listener that would serve the console without credentials
// unless anonymous access is set explicitly.
func (c *Config) CheckAccess() error {
	if c.Listen.User == "" {
		if c.Listen.AllowAnonymous {
			return nil
		}
		return fmt.Errorf("listen.user is empty; set credentials or listen.allow_anonymous")
	}
	if c.Listen.Password == "" {
		return fmt.Errorf("listen.password is empty for user %q", c.Listen.User)
	}
	return nil
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("%s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
