// Package config unmarshals and validates doforward's YAML configuration
// file into typed, intermediate structures the server package consumes
// to build services, nodes, and groups.
//
// Grounded on original_source/source/server/Server.cpp's LoadConfig /
// LoadConfigService / LoadConfigNode and the schema documented in
// original_source/include/server/Server.hpp's Config class comment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/momentics/doforward/balancer"
	"github.com/momentics/doforward/internal/errs"
	"github.com/momentics/doforward/node"
)

// Raw is the root of a parsed configuration file.
type Raw struct {
	Server     RawServer      `yaml:"server"`
	Services   []RawService   `yaml:"services"`
	NodeGroups []RawNodeGroup `yaml:"node_groups"`
}

// RawServer holds the top-level /server/ mapping.
type RawServer struct {
	MaxConnections int `yaml:"max_connections"`
	ComPort        int `yaml:"com_port"`
}

// RawService holds one entry of the /services/ sequence.
type RawService struct {
	Name           string    `yaml:"name"`
	Protocol       string    `yaml:"protocol"`
	Host           string    `yaml:"host"`
	Port           int       `yaml:"port"`
	Balancing      string    `yaml:"balancing"`
	Session        string    `yaml:"session"`
	MaxConnections int       `yaml:"max_connections"`
	Groups         []string  `yaml:"groups"`
	Nodes          []RawNode `yaml:"nodes"`
}

// RawNode holds one entry of a service's or node group's /nodes/ sequence.
type RawNode struct {
	Name     string `yaml:"name"`
	Protocol string `yaml:"protocol"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
}

// RawNodeGroup holds one entry of the /node_groups/ sequence.
type RawNodeGroup struct {
	Name  string    `yaml:"name"`
	Nodes []RawNode `yaml:"nodes"`
}

// Load reads and parses the YAML file at path. Missing keys are left at
// their zero value; Server defaults the rest (spec.md section 6).
func Load(path string) (*Raw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.CodeInvalidInput, "config: cannot read "+path)
	}

	var raw Raw
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errs.Newf(errs.CodeParsing, "config: %v", err)
	}
	return &raw, nil
}

// ParseProtocol maps a protocol string (case-insensitive) to the
// (transport, application) pair the reference implementation derives
// it into. Empty or unrecognized strings yield a validation error.
func ParseProtocol(s string) (node.Transport, node.Application, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tcp":
		return node.TCP, node.None, nil
	case "udp":
		return node.UDP, node.None, nil
	case "http":
		return node.TCP, node.HTTP, nil
	case "https":
		return node.TCP, node.HTTPS, nil
	default:
		return 0, 0, errs.Newf(errs.CodeValidation, "config: invalid protocol %q", s)
	}
}

// ParseAlgorithm maps a balancing string to an Algorithm. An empty
// string defaults to round robin, matching the reference implementation.
func ParseAlgorithm(s string) (balancer.Algorithm, error) {
	trimmed := strings.ToLower(strings.Join(strings.Fields(s), ""))
	switch trimmed {
	case "", "roundrobin", "rr":
		return balancer.RoundRobinAlgorithm, nil
	case "connectioncount", "cc", "leastconnections":
		return balancer.LeastConnectionsAlgorithm, nil
	default:
		return 0, errs.Newf(errs.CodeValidation, "config: invalid balancing algorithm %q", s)
	}
}

// ParseSessionDuration parses the /session/ field: "", "disabled" and
// "false" disable affinity (duration 0); a bare number is seconds; a
// number suffixed with s/m/h/d scales accordingly. Grounded on
// Server.cpp's StringToSeconds.
func ParseSessionDuration(s string) (time.Duration, error) {
	trimmed := strings.ToLower(strings.TrimSpace(s))
	if trimmed == "" || trimmed == "disabled" || trimmed == "false" || trimmed == "0" {
		return 0, nil
	}

	firstUnit := strings.IndexFunc(trimmed, func(r rune) bool {
		return r < '0' || r > '9'
	})

	numPart := trimmed
	unit := "s"
	if firstUnit == 0 {
		return 0, errs.Newf(errs.CodeValidation, "config: invalid session duration %q", s)
	}
	if firstUnit > 0 {
		numPart = trimmed[:firstUnit]
		unit = trimmed[firstUnit:]
	}

	n, err := strconv.Atoi(numPart)
	if err != nil {
		return 0, errs.Newf(errs.CodeValidation, "config: invalid session duration %q", s)
	}

	var scale time.Duration
	switch unit {
	case "s":
		scale = time.Second
	case "m":
		scale = time.Minute
	case "h":
		scale = time.Hour
	case "d":
		scale = 24 * time.Hour
	default:
		return 0, errs.Newf(errs.CodeValidation, "config: invalid session duration unit in %q", s)
	}

	return time.Duration(n) * scale, nil
}
