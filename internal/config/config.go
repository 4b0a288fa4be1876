package config

import (
	"fmt"
)

type Config struct {
	ServerAddr     string
	AllowedOrigins []string
	DefaultRooms   []string
}

var defaultRooms = []string{"general", "random"}

// NewConfig validates and assembles the runtime configuration. An empty
// room list falls back to the built-in defaults; the first room is the one
// new registrations are placed in.
func NewConfig(serverAddr string, allowedOrigins, rooms []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}

	if len(rooms) == 0 {
		rooms = defaultRooms
	}
	for _, room := range rooms {
		if room == "" {
			return nil, fmt.Errorf("default room name cannot be empty")
		}
	}

	return &Config{
		ServerAddr:     serverAddr,
		AllowedOrigins: allowedOrigins,
		DefaultRooms:   rooms,
	}, nil
}
