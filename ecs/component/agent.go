package component

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// AllAreas is the area mask that accepts every navmesh area.
const AllAreas uint32 = 0xFFFFFFFF

// AvoidanceQuality is the level of local avoidance applied while following a
// path. AvoidanceNone disables separation entirely.
type AvoidanceQuality uint8

const (
	AvoidanceNone AvoidanceQuality = iota
	AvoidanceLow
	AvoidanceMedium
	AvoidanceGood
	AvoidanceHigh
)

func (q AvoidanceQuality) String() string {
	switch q {
	case AvoidanceNone:
		return "none"
	case AvoidanceLow:
		return "low"
	case AvoidanceMedium:
		return "medium"
	case AvoidanceGood:
		return "good"
	default:
		return "high"
	}
}

// ParseAvoidanceQuality maps a prefab string to a quality level. Unknown
// values fall back to AvoidanceHigh.
func ParseAvoidanceQuality(s string) AvoidanceQuality {
	switch s {
	case "none":
		return AvoidanceNone
	case "low":
		return AvoidanceLow
	case "medium":
		return AvoidanceMedium
	case "good":
		return AvoidanceGood
	default:
		return AvoidanceHigh
	}
}

func (q AvoidanceQuality) MarshalYAML() (any, error) {
	return q.String(), nil
}

func (q *AvoidanceQuality) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("obstacle_avoidance must be a string")
	}
	*q = ParseAvoidanceQuality(value.Value)
	return nil
}

// BlockSettings configures when a hidden agent turns into a carving obstacle
// and when it turns back. Durations are seconds, speeds are units/second.
type BlockSettings struct {
	TimeToBlock         float64 `yaml:"time_to_block"`
	BlockSpeedThreshold float64 `yaml:"block_speed_threshold"`

	UnblockAfterDuration       bool    `yaml:"unblock_after_duration"`
	TimeToUnblock              float64 `yaml:"time_to_unblock"`
	DistanceReductionThreshold float64 `yaml:"distance_reduction_threshold"`

	UnblockAtSpeed        bool    `yaml:"unblock_at_speed"`
	UnblockSpeedThreshold float64 `yaml:"unblock_speed_threshold"`
}

func DefaultBlockSettings() BlockSettings {
	return BlockSettings{
		TimeToBlock:                1.0,
		BlockSpeedThreshold:        1.0,
		UnblockAfterDuration:       true,
		TimeToUnblock:              1.0,
		DistanceReductionThreshold: 0.5,
		UnblockAtSpeed:             false,
		UnblockSpeedThreshold:      1.0,
	}
}

// Agent is the configuration of a visible navigation agent. The hidden agent
// mirrors it; the visible entity never runs navigation queries itself.
type Agent struct {
	AgentTypeID      int     `yaml:"agent_type_id"`
	Radius           float64 `yaml:"radius"`
	Height           float64 `yaml:"height"`
	BaseOffset       float64 `yaml:"base_offset"`
	AreaMask         uint32  `yaml:"area_mask"`
	Speed            float64 `yaml:"speed"`
	Acceleration     float64 `yaml:"acceleration"`
	AngularSpeed     float64 `yaml:"angular_speed"`
	StoppingDistance float64 `yaml:"stopping_distance"`

	AutoTraverseOffMeshLink bool `yaml:"auto_traverse_off_mesh_link"`
	AutoBraking             bool `yaml:"auto_braking"`
	AutoRepath              bool `yaml:"auto_repath"`
	UpdateRotation          bool `yaml:"update_rotation"`

	ObstacleAvoidance AvoidanceQuality `yaml:"obstacle_avoidance"`
	AvoidancePriority int              `yaml:"avoidance_priority"`

	// Carving settings of the hidden agent's obstacle while blocking.
	CarvingMoveThreshold    float64 `yaml:"carving_move_threshold"`
	CarvingTimeToStationary float64 `yaml:"carving_time_to_stationary"`
	CarveOnlyStationary     bool    `yaml:"carve_only_stationary"`

	Block BlockSettings `yaml:"block"`
}

func DefaultAgent() Agent {
	return Agent{
		Radius:                  0.5,
		Height:                  2.0,
		BaseOffset:              1.0,
		AreaMask:                AllAreas,
		Speed:                   3.5,
		Acceleration:            8.0,
		AngularSpeed:            120.0,
		AutoTraverseOffMeshLink: true,
		AutoBraking:             true,
		AutoRepath:              true,
		UpdateRotation:          true,
		ObstacleAvoidance:       AvoidanceHigh,
		AvoidancePriority:       50,
		CarvingMoveThreshold:    0.1,
		CarvingTimeToStationary: 0.5,
		CarveOnlyStationary:     true,
		Block:                   DefaultBlockSettings(),
	}
}

var AgentComponent = NewComponent[Agent]("agent")
