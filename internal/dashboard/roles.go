package dashboard

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Panels are the backend sub-fetches a role can request per poll cycle.
const (
	PanelAlerts               = "alerts"
	PanelSummary              = "summary"
	PanelNOCAlerts            = "noc_alerts"
	PanelNoisyDevices         = "noisy_devices"
	PanelAIMetrics            = "ai_metrics"
	PanelAIInsights           = "ai_insights"
	PanelTrendsKPI            = "trends_kpi"
	PanelAlertsOverTime       = "alerts_over_time"
	PanelSeverityDistribution = "severity_distribution"
	PanelTickets              = "tickets"
	PanelTicketStats          = "ticket_stats"
	PanelDevices              = "devices"
	PanelDeviceStats          = "device_stats"
	PanelUsers                = "users"
)

// Table tabs.
const (
	TabAlerts  = "alerts"
	TabTickets = "tickets"
	TabDevices = "devices"
	TabUsers   = "users"
)

// Periods offered by the time-period selector.
var Periods = []string{"1h", "24h", "7d", "30d"}

//go:embed roles.yaml
var defaultRoles []byte

// Role describes one role dashboard.
type Role struct {
	Name     string        `yaml:"-" json:"name"`
	Title    string        `yaml:"title" json:"title"`
	Interval time.Duration `yaml:"interval" json:"interval"`
	Period   string        `yaml:"period" json:"period"`
	Panels   []string      `yaml:"panels" json:"panels"`
	Tiles    []string      `yaml:"tiles" json:"tiles"`
	Tabs     []string      `yaml:"tabs" json:"tabs"`
}

// HasPanel reports whether the role fetches a panel.
func (r Role) HasPanel(panel string) bool {
	for _, p := range r.Panels {
		if p == panel {
			return true
		}
	}
	return false
}

// Roles maps role names to their dashboards.
type Roles map[string]Role

type rolesFile struct {
	Roles map[string]Role `yaml:"roles"`
}

// LoadRoles parses the embedded role definitions, replacing or adding roles
// from path when it is not empty.
func LoadRoles(path string) (Roles, error) {
	roles, err := parseRoles(defaultRoles)
	if err != nil {
		return nil, fmt.Errorf("parse built-in roles: %w", err)
	}
	if path == "" {
		return roles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roles file: %w", err)
	}
	custom, err := parseRoles(data)
	if err != nil {
		return nil, fmt.Errorf("parse roles file: %w", err)
	}
	for name, r := range custom {
		roles[name] = r
	}
	return roles, nil
}

func parseRoles(data []byte) (Roles, error) {
	var rf rolesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, err
	}
	roles := make(Roles, len(rf.Roles))
	for name, r := range rf.Roles {
		r.Name = name
		if r.Title == "" {
			r.Title = name
		}
		if r.Interval <= 0 {
			r.Interval = 60 * time.Second
		}
		if r.Period == "" {
			r.Period = "24h"
		}
		if len(r.Tabs) == 0 {
			r.Tabs = []string{TabAlerts}
		}
		roles[name] = r
	}
	return roles, nil
}

// Get returns a role by name.
func (r Roles) Get(name string) (Role, error) {
	role, ok := r[name]
	if !ok {
		return Role{}, fmt.Errorf("unknown role %q (available: %v)", name, r.Names())
	}
	return role, nil
}

// Names returns the role names, sorted.
func (r Roles) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidPeriod reports whether p is one of the selectable periods.
func ValidPeriod(p string) bool {
	for _, v := range Periods {
		if v == p {
			return true
		}
	}
	return false
}

// NextPeriod cycles through Periods.
func NextPeriod(p string) string {
	for i, v := range Periods {
		if v == p {
			return Periods[(i+1)%len(Periods)]
		}
	}
	return Periods[0]
}
