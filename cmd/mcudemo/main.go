// mcudemo runs the board demonstration programs against the simulated
// peripherals, optionally bridged to real hardware: a host serial port for
// the USART and an SPI-attached panel for the LCD demos.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mcucode-go/drivers/uart"
	"mcucode-go/hw"
	"mcucode-go/services/config"
)

var rootOpts = struct {
	port       string
	baud       uint32
	configPath string
}{}

var rootCmd = &cobra.Command{
	Use:           "mcudemo",
	Short:         "Peripheral demonstration programs",
	Long:          "Demonstration programs for the simulated board peripherals: queued serial I/O, I2C master transactions, and the LCD rasterizer.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&rootOpts.port, "port", "", "serial port bridged to the USART (empty for stdio)")
	rootCmd.PersistentFlags().Uint32Var(&rootOpts.baud, "baud", 0, "serial baud rate (overrides config)")
	rootCmd.PersistentFlags().StringVar(&rootOpts.configPath, "config", "", "YAML board configuration file")

	rootCmd.AddCommand(serialEchoCmd, i2cDemoCmd, lcdDemoCmd, sketcherCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mcudemo:", err)
		os.Exit(1)
	}
}

// loadConfig merges the config file (or defaults) with flag overrides.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if rootOpts.configPath != "" {
		var err error
		if cfg, err = config.Load(rootOpts.configPath); err != nil {
			return config.Config{}, err
		}
	}
	if rootOpts.port != "" {
		cfg.Serial.Port = rootOpts.port
	}
	if rootOpts.baud != 0 {
		cfg.Serial.Baud = rootOpts.baud
	}
	return cfg, nil
}

// stdioWire renders the USART on the terminal when no serial port is given.
type stdioWire struct{}

func (stdioWire) WriteByte(b byte) error {
	_, err := os.Stdout.Write([]byte{b})
	return err
}

// openUART brings up the serial driver, bridged to the configured port or to
// stdio. The returned cleanup closes the bridge.
func openUART(cfg config.Config) (*uart.Driver, *hw.USART, func(), error) {
	u := hw.NewUSART()
	d := uart.New(u)
	d.Init(cfg.Serial.Baud)

	if rootOpts.port == "" {
		u.SetWire(stdioWire{})
		// Terminal lines arrive LF-terminated; the driver ends lines on CR.
		go func() {
			sc := bufio.NewScanner(os.Stdin)
			for sc.Scan() {
				u.Feed(append([]byte(sc.Text()), '\r'))
			}
		}()
		return d, u, func() {}, nil
	}

	wire, err := hw.OpenSerialWire(u, hw.SerialWireConfig{
		Address: cfg.Serial.Port,
		Baud:    int(cfg.Serial.Baud),
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return d, u, func() { _ = wire.Close() }, nil
}
