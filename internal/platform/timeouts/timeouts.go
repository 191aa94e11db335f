// Package timeouts defines shared timeout constants used across the tracker.
// Centralizing these values keeps the command timeout and poll interval
// discoverable side by side.
package timeouts

import "time"

// Command caps the wait for one reply datagram from the emulator.
const Command = 5 * time.Second

// PollInterval is the default delay between scheduler ticks.
const PollInterval = time.Second

// Join limits how long Stop waits for the scheduler goroutine to exit.
const Join = 2 * time.Second

// Reconnect caps the total time spent retrying a lost emulator connection
// before the next tick gets another chance.
const Reconnect = 30 * time.Second

// Shutdown limits how long servers and exporters wait during shutdown.
const Shutdown = 5 * time.Second
