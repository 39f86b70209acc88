package hw

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

// LDR reads the photoresistor through one channel of an MCP3008 ADC.
type LDR struct {
	conn    spi.Conn
	port    spi.PortCloser
	channel int
}

// OpenLDR claims the ADC's SPI port. channel selects the MCP3008 input,
// 0 through 7.
func OpenLDR(spiPort string, channel int) (*LDR, error) {
	if channel < 0 || channel > 7 {
		return nil, fmt.Errorf("adc channel %d out of range", channel)
	}
	port, err := spireg.Open(spiPort)
	if err != nil {
		return nil, fmt.Errorf("open adc spi: %w", err)
	}
	conn, err := port.Connect(1350*physic.KiloHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("connect adc spi: %w", err)
	}
	return &LDR{conn: conn, port: port, channel: channel}, nil
}

// Sample reads one 10-bit conversion, single-ended.
func (l *LDR) Sample() (int, error) {
	tx := []byte{0x01, byte(0x80 | l.channel<<4), 0x00}
	rx := make([]byte, 3)
	if err := l.conn.Tx(tx, rx); err != nil {
		return 0, fmt.Errorf("adc read: %w", err)
	}
	return int(rx[1]&0x03)<<8 | int(rx[2]), nil
}

func (l *LDR) Close() error { return l.port.Close() }
