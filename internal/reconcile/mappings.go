package reconcile

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Mappings describes how raw source rows map onto booking fields, and the
// id prefix for each group type. Loaded from a TOML file so a new sheet
// layout is a config change, not a code change.
type Mappings struct {
	DefaultGroupType string               `toml:"default_group_type"`
	GroupTypes       map[string]GroupType `toml:"group_types"`
	KeyMapping       KeyMapping           `toml:"key_mapping"`
}

type GroupType struct {
	Description string `toml:"description"`
	Prefix      string `toml:"prefix"`
}

type KeyMapping struct {
	Leader  LeaderMap  `toml:"leader"`
	Booking BookingMap `toml:"booking"`
}

// LeaderMap names the source columns holding the leader's contact details.
type LeaderMap struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
	Phone string `toml:"phone"`
}

// BookingMap names the source columns holding the booking details.
type BookingMap struct {
	GroupName    string `toml:"group_name"`
	GroupSize    string `toml:"group_size"`
	Facilities   string `toml:"facilities"`
	Comment      string `toml:"comment"`
	CostEstimate string `toml:"cost_estimate"`
}

func LoadMappings(path string) (Mappings, error) {
	var m Mappings
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return Mappings{}, fmt.Errorf("load field mappings: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Mappings{}, fmt.Errorf("field mappings %s: %w", path, err)
	}
	return m, nil
}

func (m Mappings) Validate() error {
	if len(m.GroupTypes) == 0 {
		return fmt.Errorf("at least one group type required")
	}
	if m.DefaultGroupType != "" {
		if _, ok := m.GroupTypes[m.DefaultGroupType]; !ok {
			return fmt.Errorf("default_group_type %q is not a defined group type", m.DefaultGroupType)
		}
	}
	for name, gt := range m.GroupTypes {
		if gt.Prefix == "" {
			return fmt.Errorf("group type %q has no prefix", name)
		}
	}
	if m.KeyMapping.Leader.Email == "" && m.KeyMapping.Leader.Phone == "" {
		return fmt.Errorf("leader mapping needs at least an email or phone column")
	}
	if m.KeyMapping.Booking.GroupSize == "" {
		return fmt.Errorf("booking mapping needs a group_size column")
	}
	return nil
}

// Prefix resolves the booking id prefix for a group type, falling back to
// the default group type's prefix for unknown labels.
func (m Mappings) Prefix(groupType string) string {
	if gt, ok := m.GroupTypes[groupType]; ok {
		return gt.Prefix
	}
	if gt, ok := m.GroupTypes[m.DefaultGroupType]; ok {
		return gt.Prefix
	}
	return "BKG"
}
