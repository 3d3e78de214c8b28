package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/daikw/voicealchemy/internal/studio"
)

// console prints toasts and the busy indicator to the terminal
type console struct {
	mu  sync.Mutex
	out io.Writer
	// busy is the indicator line currently shown, if any
	busy string
}

var levelStyles = map[studio.Level]struct {
	icon  string
	color *color.Color
}{
	studio.LevelInfo:    {"ℹ", color.New(color.FgCyan)},
	studio.LevelSuccess: {"✔", color.New(color.FgGreen)},
	studio.LevelWarning: {"⚠", color.New(color.FgYellow)},
	studio.LevelError:   {"✖", color.New(color.FgRed, color.Bold)},
}

func newConsole(out io.Writer) *console {
	return &console{out: out}
}

// Notify shows a toast, keeping the indicator line below it
func (c *console) Notify(level studio.Level, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLocked()
	style, ok := levelStyles[level]
	if !ok {
		style = levelStyles[studio.LevelInfo]
	}
	style.color.Fprintf(c.out, "%s %s\n", style.icon, msg)
	if c.busy != "" && !color.NoColor {
		c.drawLocked()
	}
}

// Indicator shows msg until the returned func is called
func (c *console) Indicator(msg string) func() {
	c.mu.Lock()
	c.busy = msg
	c.drawLocked()
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.clearLocked()
			c.busy = ""
		})
	}
}

func (c *console) drawLocked() {
	if color.NoColor {
		fmt.Fprintf(c.out, "… %s\n", c.busy)
		return
	}
	color.New(color.Faint).Fprintf(c.out, "… %s", c.busy)
}

// clearLocked erases the indicator line. Without a terminal the line was
// already terminated and stays.
func (c *console) clearLocked() {
	if c.busy != "" && !color.NoColor {
		fmt.Fprint(c.out, "\r\x1b[K")
	}
}
