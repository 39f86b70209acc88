// Package hw holds the Raspberry Pi peripheral drivers: the ST7735 TFT
// panel, the front-panel buttons, the MCP3008-attached photoresistor,
// and the LED/buzzer outputs. Everything above this package talks to
// interfaces, so the simulator can stand in for all of it.
package hw

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"

	"remindbox/internal/screen"
)

// ST7735 command set, the subset the driver uses.
const (
	cmdSWRESET = 0x01
	cmdSLPOUT  = 0x11
	cmdNORON   = 0x13
	cmdINVOFF  = 0x20
	cmdDISPON  = 0x29
	cmdCASET   = 0x2A
	cmdRASET   = 0x2B
	cmdRAMWR   = 0x2C
	cmdMADCTL  = 0x36
	cmdCOLMOD  = 0x3A
)

// Display drives a 128x160 ST7735 panel over SPI, rendering through an
// in-memory framebuffer with the 7x13 bitmap font.
type Display struct {
	conn spi.Conn
	port spi.PortCloser
	dc   gpio.PinOut
	rst  gpio.PinOut

	fb   *image.RGBA
	face font.Face
}

// OpenDisplay initializes the panel on the given SPI port and control
// pins. backlightPin may be empty.
func OpenDisplay(spiPort, dcPin, rstPin, backlightPin string) (*Display, error) {
	port, err := spireg.Open(spiPort)
	if err != nil {
		return nil, fmt.Errorf("open display spi: %w", err)
	}
	conn, err := port.Connect(16*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("connect display spi: %w", err)
	}
	dc := gpioreg.ByName(dcPin)
	rst := gpioreg.ByName(rstPin)
	if dc == nil || rst == nil {
		port.Close()
		return nil, fmt.Errorf("display control pins %q/%q not found", dcPin, rstPin)
	}
	d := &Display{
		conn: conn,
		port: port,
		dc:   dc,
		rst:  rst,
		fb:   image.NewRGBA(image.Rect(0, 0, screen.Width, screen.Height)),
		face: basicfont.Face7x13,
	}
	if backlightPin != "" {
		if bl := gpioreg.ByName(backlightPin); bl != nil {
			bl.Out(gpio.High)
		}
	}
	if err := d.init(); err != nil {
		port.Close()
		return nil, err
	}
	d.FillScreen(screen.ColorBlack)
	return d, nil
}

func (d *Display) init() error {
	d.rst.Out(gpio.Low)
	time.Sleep(50 * time.Millisecond)
	d.rst.Out(gpio.High)
	time.Sleep(150 * time.Millisecond)

	steps := []struct {
		cmd   byte
		data  []byte
		delay time.Duration
	}{
		{cmdSWRESET, nil, 150 * time.Millisecond},
		{cmdSLPOUT, nil, 150 * time.Millisecond},
		{cmdCOLMOD, []byte{0x05}, 10 * time.Millisecond}, // 16-bit color
		{cmdMADCTL, []byte{0x00}, 0},
		{cmdINVOFF, nil, 0},
		{cmdNORON, nil, 10 * time.Millisecond},
		{cmdDISPON, nil, 100 * time.Millisecond},
	}
	for _, s := range steps {
		if err := d.command(s.cmd, s.data...); err != nil {
			return err
		}
		if s.delay > 0 {
			time.Sleep(s.delay)
		}
	}
	return nil
}

func (d *Display) command(cmd byte, data ...byte) error {
	d.dc.Out(gpio.Low)
	if err := d.conn.Tx([]byte{cmd}, nil); err != nil {
		return fmt.Errorf("display cmd 0x%02x: %w", cmd, err)
	}
	if len(data) == 0 {
		return nil
	}
	d.dc.Out(gpio.High)
	if err := d.conn.Tx(data, nil); err != nil {
		return fmt.Errorf("display data 0x%02x: %w", cmd, err)
	}
	return nil
}

func (d *Display) Close() error { return d.port.Close() }

func rgb565(c color.RGBA) screen.Color {
	return screen.Color(uint16(c.R&0xF8)<<8 | uint16(c.G&0xFC)<<3 | uint16(c.B)>>3)
}

func toRGBA(c screen.Color) color.RGBA {
	return color.RGBA{
		R: uint8(c>>11) << 3,
		G: uint8(c>>5&0x3F) << 2,
		B: uint8(c&0x1F) << 3,
		A: 0xFF,
	}
}

// DrawText renders s at the glyph baseline-adjusted position (x, y is
// the top of the cell) and flushes the covered rectangle.
func (d *Display) DrawText(x, y int, s string, fg, bg screen.Color) {
	w := len(s) * screen.FontW
	d.fillFB(x, y, w, screen.FontH, toRGBA(bg))
	drawer := font.Drawer{
		Dst:  d.fb,
		Src:  image.NewUniform(toRGBA(fg)),
		Face: d.face,
		Dot:  fixed.P(x, y+basicfont.Face7x13.Ascent),
	}
	drawer.DrawString(s)
	d.flushRect(x, y, w, screen.FontH)
}

// FillRect paints a solid rectangle and flushes it.
func (d *Display) FillRect(x, y, w, h int, c screen.Color) {
	d.fillFB(x, y, w, h, toRGBA(c))
	d.flushRect(x, y, w, h)
}

// FillScreen paints the whole panel.
func (d *Display) FillScreen(c screen.Color) {
	d.FillRect(0, 0, screen.Width, screen.Height, c)
}

func (d *Display) fillFB(x, y, w, h int, c color.RGBA) {
	for yy := y; yy < y+h && yy < screen.Height; yy++ {
		for xx := x; xx < x+w && xx < screen.Width; xx++ {
			if xx >= 0 && yy >= 0 {
				d.fb.SetRGBA(xx, yy, c)
			}
		}
	}
}

// flushRect pushes the framebuffer rectangle to the panel as RGB565.
func (d *Display) flushRect(x, y, w, h int) {
	x0, y0 := clamp(x, 0, screen.Width-1), clamp(y, 0, screen.Height-1)
	x1, y1 := clamp(x+w-1, 0, screen.Width-1), clamp(y+h-1, 0, screen.Height-1)
	if x1 < x0 || y1 < y0 {
		return
	}
	d.command(cmdCASET, 0, byte(x0), 0, byte(x1))
	d.command(cmdRASET, 0, byte(y0), 0, byte(y1))

	buf := make([]byte, 0, (x1-x0+1)*(y1-y0+1)*2)
	for yy := y0; yy <= y1; yy++ {
		for xx := x0; xx <= x1; xx++ {
			px := rgb565(d.fb.RGBAAt(xx, yy))
			buf = append(buf, byte(px>>8), byte(px))
		}
	}
	d.command(cmdRAMWR)
	d.dc.Out(gpio.High)
	// Large writes are chunked to stay under the SPI transfer limit.
	const chunk = 4096
	for off := 0; off < len(buf); off += chunk {
		end := off + chunk
		if end > len(buf) {
			end = len(buf)
		}
		d.conn.Tx(buf[off:end], nil)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
