package config

import (
	"fmt"
	"time"
)

type Configs struct {
	Env string

	Database     DatabaseConfigs
	ApiServer    ServerConfigs
	Redis        RedisConfigs
	Kafka        KafkaConfigs
	Draw         DrawConfigs
	Notification NotificationConfigs
}

type DatabaseConfigs struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

func (d *DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type ServerConfigs struct {
	Host string
	Port string
	Cert string
	Key  string
}

func (s ServerConfigs) Address() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

type RedisConfigs struct {
	Addr string
}

type KafkaConfigs struct {
	Addr string
}

type NotificationConfigs struct {
	WinnersTopic string
}

// DrawConfigs controls the pacing of a live draw session. All waits in the
// orchestrator come from here so tests can shrink them to microseconds.
type DrawConfigs struct {
	// Pause between the session_starting broadcast and the first round.
	AnnouncementDelay time.Duration

	// How long a round waits for an externally supplied client seed before
	// synthesizing one.
	CommitWindow time.Duration

	// Wall-clock animation length per wheel speed.
	SpeedFast   time.Duration
	SpeedMedium time.Duration
	SpeedSlow   time.Duration

	// Pause between two consecutive rounds.
	InterRoundPause time.Duration

	// How long a round waits to acquire its persistence lock, and how long
	// an acquired lock lives before it is stealable.
	LockWait time.Duration
	LockTTL  time.Duration

	// How often the scheduler scans for raffles whose end time has passed.
	ScanEvery time.Duration
}

func (c DrawConfigs) AnimationDuration(speed string) time.Duration {
	switch speed {
	case "medium":
		return c.SpeedMedium
	case "slow":
		return c.SpeedSlow
	default:
		return c.SpeedFast
	}
}

func DefaultDrawConfigs() DrawConfigs {
	return DrawConfigs{
		AnnouncementDelay: 3 * time.Second,
		CommitWindow:      2 * time.Second,
		SpeedFast:         5 * time.Second,
		SpeedMedium:       7 * time.Second,
		SpeedSlow:         10 * time.Second,
		InterRoundPause:   3 * time.Second,
		LockWait:          2 * time.Second,
		LockTTL:           10 * time.Second,
		ScanEvery:         time.Minute,
	}
}
