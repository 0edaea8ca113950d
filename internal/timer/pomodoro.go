package timer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Mode string

const (
	ModeFocus      Mode = "focus"
	ModeShortBreak Mode = "short_break"
	ModeLongBreak  Mode = "long_break"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
)

type Settings struct {
	Focus              time.Duration `json:"focus"`
	ShortBreak         time.Duration `json:"shortBreak"`
	LongBreak          time.Duration `json:"longBreak"`
	LongBreakInterval  int           `json:"longBreakInterval"`
	AutoStartBreaks    bool          `json:"autoStartBreaks"`
	AutoStartPomodoros bool          `json:"autoStartPomodoros"`
}

func DefaultSettings() Settings {
	return Settings{
		Focus:              25 * time.Minute,
		ShortBreak:         5 * time.Minute,
		LongBreak:          15 * time.Minute,
		LongBreakInterval:  4,
		AutoStartBreaks:    true,
		AutoStartPomodoros: true,
	}
}

func (s Settings) duration(m Mode) time.Duration {
	switch m {
	case ModeShortBreak:
		return s.ShortBreak
	case ModeLongBreak:
		return s.LongBreak
	default:
		return s.Focus
	}
}

// Event reports a phase that ran to completion.
type Event struct {
	Completed Mode      `json:"completed"`
	Next      Mode      `json:"next"`
	At        time.Time `json:"at"`
}

// Pomodoro is a focus/break cycle. A long break replaces the short one after
// every LongBreakInterval completed focus rounds.
type Pomodoro struct {
	Settings       Settings      `json:"settings"`
	Mode           Mode          `json:"mode"`
	Status         Status        `json:"status"`
	Left           time.Duration `json:"left"`             // remaining time while not running
	EndsAt         *time.Time    `json:"endsAt,omitempty"` // set while running
	CompletedFocus int           `json:"completedFocus"`
}

func NewPomodoro(s Settings) *Pomodoro {
	if s.LongBreakInterval <= 0 {
		s.LongBreakInterval = DefaultSettings().LongBreakInterval
	}
	return &Pomodoro{Settings: s, Mode: ModeFocus, Status: StatusIdle, Left: s.Focus}
}

func (p *Pomodoro) Start(now time.Time) {
	if p.Status == StatusRunning {
		return
	}
	end := now.Add(p.Left)
	p.EndsAt = &end
	p.Status = StatusRunning
}

func (p *Pomodoro) Pause(now time.Time) {
	if p.Status != StatusRunning {
		return
	}
	p.Left = p.Remaining(now)
	p.EndsAt = nil
	p.Status = StatusPaused
}

// Reset stops the clock and restores the full duration of the current mode.
func (p *Pomodoro) Reset() {
	p.Status = StatusIdle
	p.EndsAt = nil
	p.Left = p.Settings.duration(p.Mode)
}

func (p *Pomodoro) SetMode(m Mode) {
	p.Mode = m
	p.Reset()
}

// Skip abandons the current phase without counting it and moves to the next one.
func (p *Pomodoro) Skip(now time.Time) {
	running := p.Status == StatusRunning
	if p.Mode == ModeFocus {
		p.Mode = ModeShortBreak
	} else {
		p.Mode = ModeFocus
	}
	p.Reset()
	if running {
		p.Start(now)
	}
}

func (p *Pomodoro) Remaining(now time.Time) time.Duration {
	if p.Status != StatusRunning || p.EndsAt == nil {
		return p.Left
	}
	if left := p.EndsAt.Sub(now); left > 0 {
		return left
	}
	return 0
}

// Completed is the number of focus rounds finished so far.
func (p *Pomodoro) Completed() int {
	return p.CompletedFocus
}

// Tick advances the cycle to now and returns the phases that finished.
// Auto-started phases chain from the previous end time, so a late tick
// catches up across several phases.
func (p *Pomodoro) Tick(now time.Time) []Event {
	var events []Event
	for p.Status == StatusRunning && p.EndsAt != nil && !now.Before(*p.EndsAt) {
		endedAt := *p.EndsAt
		finished := p.Mode
		if finished == ModeFocus {
			p.CompletedFocus++
		}
		next := p.nextMode()
		events = append(events, Event{Completed: finished, Next: next, At: endedAt})

		p.Mode = next
		p.Left = p.Settings.duration(next)
		if p.autoStart(next) && p.Left > 0 {
			end := endedAt.Add(p.Left)
			p.EndsAt = &end
		} else {
			p.EndsAt = nil
			p.Status = StatusIdle
		}
	}
	return events
}

func (p *Pomodoro) nextMode() Mode {
	if p.Mode != ModeFocus {
		return ModeFocus
	}
	if p.CompletedFocus > 0 && p.CompletedFocus%p.Settings.LongBreakInterval == 0 {
		return ModeLongBreak
	}
	return ModeShortBreak
}

func (p *Pomodoro) autoStart(m Mode) bool {
	if m == ModeFocus {
		return p.Settings.AutoStartPomodoros
	}
	return p.Settings.AutoStartBreaks
}

// Save writes the pomodoro state to path as JSON.
func (p *Pomodoro) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal pomodoro state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadPomodoro reads state saved by Save. A missing file yields a fresh
// pomodoro with default settings.
func LoadPomodoro(path string) (*Pomodoro, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewPomodoro(DefaultSettings()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pomodoro state: %w", err)
	}
	var p Pomodoro
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse pomodoro state: %w", err)
	}
	if p.Settings.LongBreakInterval <= 0 {
		p.Settings.LongBreakInterval = DefaultSettings().LongBreakInterval
	}
	return &p, nil
}
