package config

import (
	"fmt"
	"net"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel string  `yaml:"log-level" env-default:"info"`
	HTTPPort string  `yaml:"http-port" env-default:"9090"`
	Game     Game    `yaml:"game"`
	Archive  Archive `yaml:"archive"`
}

type Game struct {
	Host        string `yaml:"host" env-default:"0.0.0.0"`
	Port        string `yaml:"port" env-default:"5000"`
	Password    string `yaml:"password" env-default:"admin123"`
	EventLogDir string `yaml:"event-log-dir" env-default:"game_logs"`
}

// Archive selects where finished games are persisted: "redis", "sqlite"
// or "none" to disable archiving.
type Archive struct {
	Backend    string `yaml:"backend" env-default:"none"`
	Redis      Redis  `yaml:"redis"`
	SQLitePath string `yaml:"sqlite-path" env-default:"gomoku.db"`
}

type Redis struct {
	Host string `yaml:"host" env-default:"localhost"`
	Port string `yaml:"port" env-default:"6379"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Game) GetGameAddr() string {
	return net.JoinHostPort(that.Host, that.Port)
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
