package customnav

import (
	"github.com/jadvrodrigues/customnavmesh/common"
	"github.com/jadvrodrigues/customnavmesh/ecs/component"
)

// minPolicyStep is the shortest tick the policy evaluates. Shorter ticks
// would make the displacement speed meaningless.
const minPolicyStep = 1e-6

type Mode uint8

const (
	ModeFollowing Mode = iota
	ModeBlocking
)

func (m Mode) String() string {
	if m == ModeBlocking {
		return "blocking"
	}
	return "following"
}

// Transition is the outcome of one policy step.
type Transition uint8

const (
	TransitionNone Transition = iota
	// TransitionBlock switches the agent into a carving obstacle.
	TransitionBlock
	// TransitionUnblockSpeed ends blocking because the agent was pushed.
	TransitionUnblockSpeed
	// TransitionUnblockRefresh ends blocking because a refresh found a
	// path that gets the agent closer to its destination.
	TransitionUnblockRefresh
)

func (t Transition) String() string {
	switch t {
	case TransitionBlock:
		return "block"
	case TransitionUnblockSpeed:
		return "unblock-speed"
	case TransitionUnblockRefresh:
		return "unblock-refresh"
	default:
		return "none"
	}
}

// BlockPolicyState is the moving/stationary decision state of one hidden
// agent.
type BlockPolicyState struct {
	Mode         Mode
	IdleTime     float64
	BlockingTime float64
}

// Reset enters mode m with cleared timers.
func (s *BlockPolicyState) Reset(m Mode) {
	s.Mode = m
	s.IdleTime = 0
	s.BlockingTime = 0
}

// Step advances the policy by dt seconds at the given displacement speed.
// refresh is called when the blocking timer elapses; it reports whether a
// better path was found. A nil refresh never unblocks.
func (s *BlockPolicyState) Step(cfg component.BlockSettings, dt, speed float64, refresh func() bool) Transition {
	if dt <= minPolicyStep {
		return TransitionNone
	}

	switch s.Mode {
	case ModeFollowing:
		if speed >= cfg.BlockSpeedThreshold {
			s.IdleTime = 0
			return TransitionNone
		}
		s.IdleTime += dt
		if s.IdleTime >= cfg.TimeToBlock-common.Epsilon {
			s.Reset(ModeBlocking)
			return TransitionBlock
		}

	case ModeBlocking:
		if cfg.UnblockAtSpeed && speed > cfg.UnblockSpeedThreshold {
			s.Reset(ModeFollowing)
			return TransitionUnblockSpeed
		}
		if !cfg.UnblockAfterDuration {
			return TransitionNone
		}
		s.BlockingTime += dt
		if s.BlockingTime >= cfg.TimeToUnblock-common.Epsilon {
			s.BlockingTime = 0
			if refresh != nil && refresh() {
				s.Reset(ModeFollowing)
				return TransitionUnblockRefresh
			}
		}
	}
	return TransitionNone
}

// ClampBlockSettings clamps every threshold to be non-negative.
func ClampBlockSettings(cfg component.BlockSettings) component.BlockSettings {
	cfg.TimeToBlock = common.NonNegative(cfg.TimeToBlock)
	cfg.BlockSpeedThreshold = common.NonNegative(cfg.BlockSpeedThreshold)
	cfg.TimeToUnblock = common.NonNegative(cfg.TimeToUnblock)
	cfg.DistanceReductionThreshold = common.NonNegative(cfg.DistanceReductionThreshold)
	cfg.UnblockSpeedThreshold = common.NonNegative(cfg.UnblockSpeedThreshold)
	return cfg
}
