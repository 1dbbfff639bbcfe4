package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

// File is the root of a configuration file.
type File struct {
	Sessions []Session `yaml:"sessions"`
	Items    []Item    `yaml:"items"`
}

// Session describes one server connection.
type Session struct {
	Tag      string `yaml:"tag"`
	Endpoint string `yaml:"endpoint"`

	SecurityPolicy string `yaml:"security_policy"`
	SecurityMode   string `yaml:"security_mode"`
	CertFile       string `yaml:"cert_file"`
	KeyFile        string `yaml:"key_file"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`

	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	ReconnectMaxDelay time.Duration `yaml:"reconnect_max_delay"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	// Debug overrides the log level of this session.
	Debug string `yaml:"debug"`

	Subscriptions []Subscription `yaml:"subscriptions"`
}

// Subscription describes a server-side subscription owned by a session.
type Subscription struct {
	Tag                string        `yaml:"tag"`
	PublishingInterval time.Duration `yaml:"publishing_interval"`
	LifetimeCount      uint32        `yaml:"lifetime_count"`
	MaxKeepAliveCount  uint32        `yaml:"max_keepalive_count"`
	Priority           uint8         `yaml:"priority"`
}

// Item binds an address to a local slot. Either Link or Tag and Address must be set.
type Item struct {
	Name    string `yaml:"name"`
	Link    string `yaml:"link"`
	Tag     string `yaml:"tag"`
	Address string `yaml:"address"`

	// Type is a local type name, see uatype.LocalType.
	Type string `yaml:"type"`
	// Array is the element capacity of an array slot, 0 for a scalar.
	Array     int    `yaml:"array"`
	Direction string `yaml:"direction"`

	Sampling *time.Duration `yaml:"sampling"`
	QSize    *uint32        `yaml:"qsize"`
	// Discard is "old" (default) or "new".
	Discard string `yaml:"discard"`
	RdbkOff bool   `yaml:"rdbkoff"`
}

// Load reads and parses the configuration file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return Parse(data)
}

// Parse parses a YAML configuration and checks the fields that don't depend on other entries.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	for i := range f.Sessions {
		if f.Sessions[i].Tag == "" || f.Sessions[i].Endpoint == "" {
			return nil, fmt.Errorf("session #%d: tag and endpoint are required", i)
		}
	}

	return &f, nil
}

// Slot returns the local slot described by the item.
func (it *Item) Slot() (uatype.Slot, error) {
	typ, ok := uatype.ParseLocalType(it.Type)
	if !ok {
		return uatype.Slot{}, fmt.Errorf("unknown local type %q", it.Type)
	}
	if it.Array < 0 {
		return uatype.Slot{}, errors.New("negative array capacity")
	}

	return uatype.Slot{Type: typ, Array: it.Array > 0, Capacity: it.Array}, nil
}

func (it *Item) direction() (uatype.Direction, error) {
	switch strings.ToLower(it.Direction) {
	case "", "in":
		return uatype.In, nil
	case "out":
		return uatype.Out, nil
	}

	return uatype.In, fmt.Errorf("unknown direction %q", it.Direction)
}

func (it *Item) discardOldest() (bool, error) {
	switch strings.ToLower(it.Discard) {
	case "", "old":
		return true, nil
	case "new":
		return false, nil
	}

	return true, fmt.Errorf("unknown discard policy %q", it.Discard)
}

func (it *Item) label() string {
	switch {
	case it.Name != "":
		return it.Name
	case it.Link != "":
		return it.Link
	default:
		return it.Tag + " " + it.Address
	}
}
