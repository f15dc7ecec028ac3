// Package input handles SDL2 input events.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// EventType classifies a processed input event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseDown
	EventMouseUp
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Width  int
	Height int
	MouseX int
	MouseY int
	Button uint8
}

// Input collects the events of one frame and tracks which keys and buttons are held.
type Input struct {
	events  []Event
	held    map[sdl.Scancode]bool
	buttons map[uint8]bool

	mouseX, mouseY int
	dx, dy         float32
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		events:  make([]Event, 0, 16),
		held:    make(map[sdl.Scancode]bool),
		buttons: make(map[uint8]bool),
	}
}

// Update polls SDL events. Returns true if the application should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0]
	i.dx, i.dy = 0, 0

	quit := false
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if i.handle(event) {
			quit = true
		}
	}
	return quit
}

func (i *Input) handle(event sdl.Event) bool {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		i.events = append(i.events, Event{Type: EventQuit})
		return true

	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
			i.events = append(i.events, Event{
				Type:   EventWindowResize,
				Width:  int(e.Data1),
				Height: int(e.Data2),
			})
		}

	case *sdl.KeyboardEvent:
		code := e.Keysym.Scancode
		switch e.Type {
		case sdl.KEYDOWN:
			i.held[code] = true
			// Auto-repeat only keeps the key held.
			if e.Repeat == 0 {
				i.events = append(i.events, Event{Type: EventKeyDown, Key: code})
			}
		case sdl.KEYUP:
			delete(i.held, code)
			i.events = append(i.events, Event{Type: EventKeyUp, Key: code})
		}

	case *sdl.MouseMotionEvent:
		i.mouseX, i.mouseY = int(e.X), int(e.Y)
		i.dx += float32(e.XRel)
		i.dy += float32(e.YRel)

	case *sdl.MouseButtonEvent:
		ev := Event{MouseX: int(e.X), MouseY: int(e.Y), Button: e.Button}
		switch e.Type {
		case sdl.MOUSEBUTTONDOWN:
			i.buttons[e.Button] = true
			ev.Type = EventMouseDown
		case sdl.MOUSEBUTTONUP:
			delete(i.buttons, e.Button)
			ev.Type = EventMouseUp
		}
		i.events = append(i.events, ev)
	}
	return false
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// IsKeyPressed reports whether the key went down this frame.
func (i *Input) IsKeyPressed(code sdl.Scancode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == code {
			return true
		}
	}
	return false
}

// IsKeyHeld reports whether the key is currently down.
func (i *Input) IsKeyHeld(code sdl.Scancode) bool {
	return i.held[code]
}

// IsButtonHeld reports whether a mouse button (sdl.BUTTON_LEFT, ...) is currently down.
func (i *Input) IsButtonHeld(button uint8) bool {
	return i.buttons[button]
}

// Axis returns -1, 0 or 1 from a pair of opposing keys.
func (i *Input) Axis(negative, positive sdl.Scancode) float32 {
	var v float32
	if i.held[negative] {
		v--
	}
	if i.held[positive] {
		v++
	}
	return v
}

// MouseDelta returns the relative mouse motion accumulated this frame.
func (i *Input) MouseDelta() (float32, float32) {
	return i.dx, i.dy
}

// MousePosition returns the last known cursor position in window pixels.
func (i *Input) MousePosition() (int, int) {
	return i.mouseX, i.mouseY
}
