package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mcucode-go/drivers/mcp23008"
	"mcucode-go/drivers/twi"
	"mcucode-go/hw"
)

var i2cDemoOpts = struct {
	presses int
}{}

var i2cDemoCmd = &cobra.Command{
	Use:   "i2c-demo",
	Short: "Drive a simulated MCP23008 port expander over the queued I2C master",
	Long: "Runs the port-expander demo against a simulated MCP23008: pin 0 drives " +
		"an LED, pin 1 reads a push button with a pull-up, and each button edge is " +
		"mirrored onto the LED through interrupt-capture reads.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		d, _, cleanup, err := openUART(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		d.Start(ctx)

		bus := hw.NewTWI()
		expanderRegs := hw.NewRegisterFile()
		bus.Attach(mcp23008.Address, expanderRegs)

		master := twi.New(bus)
		master.Init()
		master.Start(ctx)

		expander := mcp23008.New(twi.NewBus(master))
		if err := expander.Configure(mcp23008.Config{
			Inputs:        0xFE,
			Pullups:       0x02,
			InterruptPins: 0x02,
		}); err != nil {
			return err
		}

		for i := 0; i < i2cDemoOpts.presses; i++ {
			// Simulate a button press then release on pin 1.
			for _, captured := range []byte{0x02, 0x00} {
				expanderRegs.Poke(0x08, captured)

				pins, err := expander.InterruptCapture()
				if err != nil {
					return err
				}
				led := byte(0x00)
				if pins&0x02 != 0 {
					led = 0x01
				}
				if err := expander.SetPins(led); err != nil {
					return err
				}
				if err := d.Printf("pins=%x led=%d\r\n", uint16(pins), int16(led)); err != nil {
					return err
				}
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(200 * time.Millisecond):
				}
			}
		}
		return d.Drain(ctx)
	},
}

func init() {
	i2cDemoCmd.Flags().IntVar(&i2cDemoOpts.presses, "presses", 3, "number of simulated button presses")
}
