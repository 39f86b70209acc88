// remindbox-sim runs the full appliance core against a terminal mock of
// the hardware: the panel is a character grid, the four buttons are
// keys, and the light sensor is driven by keystrokes.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"remindbox/internal/alarm"
	"remindbox/internal/clock"
	"remindbox/internal/gesture"
	"remindbox/internal/screen"
	"remindbox/internal/storage"
	"remindbox/internal/store"
	"remindbox/internal/ui"
)

const (
	cols = screen.Width / screen.FontW
	rows = screen.Height / screen.FontH

	litValue  = 3000
	darkValue = 100
	swipeHold = 120 * time.Millisecond
)

// simDisplay renders the panel into a rune grid shared with the tea view.
type simDisplay struct {
	mu   sync.Mutex
	grid [rows][cols]rune
}

func newSimDisplay() *simDisplay {
	d := &simDisplay{}
	d.FillScreen(screen.ColorBlack)
	return d
}

func (d *simDisplay) DrawText(x, y int, s string, fg, bg screen.Color) {
	d.mu.Lock()
	defer d.mu.Unlock()
	row, col := y/screen.FontH, x/screen.FontW
	if row < 0 || row >= rows {
		return
	}
	for i, r := range s {
		if col+i >= cols {
			break
		}
		d.grid[row][col+i] = r
	}
}

func (d *simDisplay) FillRect(x, y, w, h int, c screen.Color) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for row := y / screen.FontH; row <= (y+h-1)/screen.FontH && row < rows; row++ {
		if row < 0 {
			continue
		}
		for col := x / screen.FontW; col <= (x+w-1)/screen.FontW && col < cols; col++ {
			if col >= 0 {
				d.grid[row][col] = ' '
			}
		}
	}
}

func (d *simDisplay) FillScreen(_ screen.Color) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for r := range d.grid {
		for c := range d.grid[r] {
			d.grid[r][c] = ' '
		}
	}
}

func (d *simDisplay) render() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b strings.Builder
	border := "+" + strings.Repeat("-", cols) + "+\n"
	b.WriteString(border)
	for r := range d.grid {
		b.WriteByte('|')
		b.WriteString(string(d.grid[r][:]))
		b.WriteString("|\n")
	}
	b.WriteString(border)
	return b.String()
}

// simButtons queues key presses for the controller's scan loop.
type simButtons struct {
	mu    sync.Mutex
	edges ui.Edges
}

func (b *simButtons) press(set func(*ui.Edges)) {
	b.mu.Lock()
	set(&b.edges)
	b.mu.Unlock()
}

func (b *simButtons) Scan() ui.Edges {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.edges
	b.edges = ui.Edges{}
	return e
}

// simSensor is the photoresistor stand-in. A swipe darkens the reading
// for a short hold; a raw value override sticks until the next swipe.
type simSensor struct {
	mu        sync.Mutex
	base      int
	darkUntil time.Time
}

func (s *simSensor) Sample() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Now().Before(s.darkUntil) {
		return darkValue, nil
	}
	if s.base > 0 {
		return s.base, nil
	}
	return litValue, nil
}

func (s *simSensor) swipe() {
	s.mu.Lock()
	s.darkUntil = time.Now().Add(swipeHold)
	s.mu.Unlock()
}

func (s *simSensor) setBase(v int) {
	s.mu.Lock()
	s.base = v
	s.mu.Unlock()
}

// simIndicator mirrors the LED and buzzer into the status line.
type simIndicator struct {
	mu          sync.Mutex
	led, buzzer bool
}

func (i *simIndicator) SetLED(on bool) {
	i.mu.Lock()
	i.led = on
	i.mu.Unlock()
}

func (i *simIndicator) SetBuzzer(on bool) {
	i.mu.Lock()
	i.buzzer = on
	i.mu.Unlock()
}

func (i *simIndicator) PulseBuzzer() {
	i.SetBuzzer(true)
	go func() {
		time.Sleep(300 * time.Millisecond)
		i.SetBuzzer(false)
	}()
}

func (i *simIndicator) status() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	led, buz := "led:off", "buzzer:off"
	if i.led {
		led = "led:ON"
	}
	if i.buzzer {
		buz = "buzzer:ON"
	}
	return led + "  " + buz
}

type tickMsg time.Time

type model struct {
	display  *simDisplay
	buttons  *simButtons
	sensor   *simSensor
	ind      *simIndicator
	input    textinput.Model
	entering bool
	cancel   context.CancelFunc
}

func (m model) Init() tea.Cmd { return tick() }

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tick()
	case tea.KeyMsg:
		if m.entering {
			switch msg.String() {
			case "enter":
				if v, err := strconv.Atoi(m.input.Value()); err == nil {
					m.sensor.setBase(v)
				}
				m.entering = false
				m.input.Blur()
				return m, nil
			case "esc":
				m.entering = false
				m.input.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		case "enter":
			m.buttons.press(func(e *ui.Edges) { e.OK = true })
		case "b":
			m.buttons.press(func(e *ui.Edges) { e.Back = true })
		case "n":
			m.buttons.press(func(e *ui.Edges) { e.Next = true })
		case "c", "esc":
			m.buttons.press(func(e *ui.Edges) { e.Cancel = true })
		case "s":
			m.sensor.swipe()
		case "v":
			m.entering = true
			m.input.SetValue("")
			return m, m.input.Focus()
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(m.display.render())
	b.WriteString(m.ind.status())
	b.WriteString("\n[enter]=OK  [b]=Back  [n]=Next  [c]=Cancel  [s]=swipe  [v]=sensor value  [q]=quit\n")
	if m.entering {
		b.WriteString("raw sensor value: " + m.input.View() + "\n")
	}
	return b.String()
}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	dbPath := filepath.Join(os.TempDir(), "remindbox-sim.db")
	db, err := storage.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	st := store.New(db, nil, log)
	if err := st.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load reminders: %v\n", err)
		os.Exit(1)
	}

	clk, err := clock.NewSystem("Local", nil, 0, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up clock: %v\n", err)
		os.Exit(1)
	}

	display := newSimDisplay()
	buttons := &simButtons{}
	sensor := &simSensor{}
	ind := &simIndicator{}

	rec, err := gesture.New(gesture.Config{}, sensor, ind, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up gesture recognizer: %v\n", err)
		os.Exit(1)
	}

	scr := screen.New(display)
	state := &screen.State{}
	sess := alarm.NewSession()

	sched := alarm.NewScheduler(st, sess, clk, scr, state, nil, log)
	res := alarm.NewResolver(sess, st, rec, scr, state, ind, clk, log)
	ctrl := ui.New(buttons, st, sess, rec, scr, state, ind, clk, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rec.Run(ctx, clk)
	go res.Run(ctx)
	go ctrl.Run(ctx)
	go sched.Run(ctx)

	ti := textinput.New()
	ti.Placeholder = "0-4095"
	ti.CharLimit = 4
	ti.Width = 6

	p := tea.NewProgram(model{
		display: display,
		buttons: buttons,
		sensor:  sensor,
		ind:     ind,
		input:   ti,
		cancel:  cancel,
	})
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error running program: %v\n", err)
		os.Exit(1)
	}
}
