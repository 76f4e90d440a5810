package config

import "time"

// CommandConfig controls how chat lines are recognised as commands.
type CommandConfig struct {
	Prefix string `yaml:"prefix"` // Chat prefix, e.g. "!rodent "
}

// DefenseConfig tunes self-defense.
type DefenseConfig struct {
	Radius          float64       `yaml:"radius"`            // Blocks around the agent scanned for hostiles
	Tick            time.Duration `yaml:"tick"`              // Scan period
	FleeDistance    float64       `yaml:"flee_distance"`     // How far to run when unarmed
	StrikeRange     float64       `yaml:"strike_range"`      // Follow distance while attacking
	Hostiles        []string      `yaml:"hostiles"`          // Mob names treated as threats
	LostTargetGrace int           `yaml:"lost_target_grace"` // Empty scans tolerated before standing down
}

// GuardConfig tunes protecting a player.
type GuardConfig struct {
	Radius float64       `yaml:"radius"`
	Tick   time.Duration `yaml:"tick"`
}

// SustainConfig tunes auto-eating.
type SustainConfig struct {
	Threshold    int           `yaml:"threshold"`     // Eat below this food level
	Tick         time.Duration `yaml:"tick"`
	FallbackFood string        `yaml:"fallback_food"` // Acquired when nothing edible is carried
}

// TasksConfig tunes the queued task bodies.
type TasksConfig struct {
	FollowRange    float64       `yaml:"follow_range"`
	AcquireSettle  time.Duration `yaml:"acquire_settle"`   // Wait after an acquisition request
	GatherRadius   float64       `yaml:"gather_radius"`
	GatherBatch    int           `yaml:"gather_batch"`     // Blocks located per search
	FlattenMaxSide int           `yaml:"flatten_max_side"`
	FlattenMaxRise int           `yaml:"flatten_max_rise"` // Absolute height offset limit
}

// FlavorConfig configures the external line generator used for greetings.
type FlavorConfig struct {
	Command  string        `yaml:"command,omitempty"` // Empty disables the generator
	Args     []string      `yaml:"args,omitempty"`
	Timeout  time.Duration `yaml:"timeout"`
	Retries  uint64        `yaml:"retries"`
	Greeting string        `yaml:"greeting"` // Used when the generator is off or failing
	Respawn  string        `yaml:"respawn"`
}

// HistoryConfig configures the task outcome journal.
type HistoryConfig struct {
	Path  string `yaml:"path,omitempty"` // Empty keeps the journal in memory
	Limit int    `yaml:"limit"`          // Rows shown by the history command
}

// NATSConfig configures the NATS chat transport.
type NATSConfig struct {
	URL      string `yaml:"url,omitempty"` // Empty uses the console transport
	Inbound  string `yaml:"inbound"`       // Subject carrying chat lines to the agent
	Outbound string `yaml:"outbound"`      // Subject the agent says things on
	Name     string `yaml:"name"`          // Connection name
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
	File   string `yaml:"file,omitempty"`
}

// SimConfig configures the offline simulated world.
type SimConfig struct {
	Radius          int           `yaml:"radius"`
	Speed           float64       `yaml:"speed"`
	HostileInterval time.Duration `yaml:"hostile_interval"` // 0 disables ambient hostiles
	HostileChance   float64       `yaml:"hostile_chance"`
	AcquireAllowed  bool          `yaml:"acquire_allowed"`
	GameMode        string        `yaml:"game_mode"`
}

// Config is the top-level configuration.
type Config struct {
	Name    string        `yaml:"name"` // In-game username
	Command CommandConfig `yaml:"command"`
	Defense DefenseConfig `yaml:"defense"`
	Guard   GuardConfig   `yaml:"guard"`
	Sustain SustainConfig `yaml:"sustain"`
	Tasks   TasksConfig   `yaml:"tasks"`
	Flavor  FlavorConfig  `yaml:"flavor"`
	History HistoryConfig `yaml:"history"`
	NATS    NATSConfig    `yaml:"nats"`
	Log     LogConfig     `yaml:"log"`
	Sim     SimConfig     `yaml:"sim"`
}
