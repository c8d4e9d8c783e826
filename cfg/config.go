package cfg

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type AccountType string

const (
	IMAP    AccountType = "imap"
	MAILDIR AccountType = "maildir"
	LOCAL   AccountType = "local"
)

type Config struct {
	Accounts map[string]Account `yaml:"accounts"`
}

type Account struct {
	Type                AccountType `yaml:"type"`
	ServerURL           string      `yaml:"serverURL"`
	Username            string      `yaml:"username"`
	Password            string      `yaml:"password"`
	SkipTLSVerification bool        `yaml:"skipTLSVerification"`
	NoTLS               bool        `yaml:"noTLS"`
	File                string      `yaml:"file"`
	Root                string      `yaml:"root"`
	CacheDir            string      `yaml:"cacheDir"`
	// BandwidthLimit in bytes per second (0 = unlimited)
	BandwidthLimit float64 `yaml:"bandwidthLimit"`
}

// LoadFromFile loads the configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	return load(file)
}

func load(reader io.ReadCloser) (*Config, error) {
	defer reader.Close()
	decoder := yaml.NewDecoder(reader)
	config := &Config{}
	err := decoder.Decode(config)
	if err != nil {
		return nil, err
	}
	err = validate(config)
	if err != nil {
		return nil, err
	}
	return config, nil
}

func validate(config *Config) error {
	for name, account := range config.Accounts {
		switch account.Type {
		case IMAP:
			if account.ServerURL == "" {
				return fmt.Errorf("account %q: serverURL is required on an imap account", name)
			}
		case LOCAL:
			if account.File == "" {
				return fmt.Errorf("account %q: file is required on a local account", name)
			}
		case MAILDIR:
			if account.Root == "" {
				return fmt.Errorf("account %q: root is required on a maildir account", name)
			}
		default:
			return fmt.Errorf("account %q: unknown type %q", name, account.Type)
		}
	}
	return nil
}
