package app

import (
	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (TOYLAND_ prefix), flags, or YAML config files.
type Config struct {
	OrdersPath string `usage:"path to the orders CSV feed (optionally gzip-compressed, .gz)" flag:"orders"`
	ReportPath string `default:"" usage:"optional JSONL per-order outcome report path" flag:"report"`
}

// LoadConfig loads configuration from environment variables, flags, and
// YAML config files.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "TOYLAND",
		Files:     []string{"config.yaml", "/etc/toyland/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	if cfg.OrdersPath == "" {
		return nil, errors.New("orders feed path is required: set TOYLAND_ORDERS_PATH or --orders")
	}

	return &cfg, nil
}
