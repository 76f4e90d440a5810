package config

import "time"

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Name: "rodent",
		Command: CommandConfig{
			Prefix: "!rodent ",
		},
		Defense: DefenseConfig{
			Radius:       10,
			Tick:         1500 * time.Millisecond,
			FleeDistance: 15,
			StrikeRange:  1.5,
			Hostiles: []string{
				"zombie", "skeleton", "spider", "creeper", "witch",
				"drowned", "husk", "stray", "pillager", "zombie_villager",
			},
		},
		Guard: GuardConfig{
			Radius: 15,
			Tick:   time.Second,
		},
		Sustain: SustainConfig{
			Threshold:    15,
			Tick:         5 * time.Second,
			FallbackFood: "bread",
		},
		Tasks: TasksConfig{
			FollowRange:    1.5,
			AcquireSettle:  1500 * time.Millisecond,
			GatherRadius:   64,
			GatherBatch:    20,
			FlattenMaxSide: 10,
			FlattenMaxRise: 5,
		},
		Flavor: FlavorConfig{
			Timeout:  10 * time.Second,
			Retries:  2,
			Greeting: "Hi! I'm ready. Say \"!rodent help\" to see what I can do.",
			Respawn:  "I'm back!",
		},
		History: HistoryConfig{
			Limit: 10,
		},
		NATS: NATSConfig{
			Inbound:  "rodent.chat.in",
			Outbound: "rodent.chat.out",
			Name:     "rodentbot",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Sim: SimConfig{
			Radius:          16,
			Speed:           8,
			HostileInterval: 4 * time.Second,
			HostileChance:   0.2,
			AcquireAllowed:  true,
			GameMode:        "survival",
		},
	}
}
