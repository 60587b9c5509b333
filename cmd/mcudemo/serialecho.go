package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serialEchoCmd = &cobra.Command{
	Use:   "serial-echo",
	Short: "Echo serial input through the queued transmit driver",
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

		if err := d.Printf("echo ready at %d baud\r\n", int16(lineNumber(cfg.Serial.Baud))); err != nil {
			return err
		}

		buf := make([]byte, 80)
		for {
			n, err := d.ReadLine(ctx, buf)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			if err := d.Printf("echo: %s (%d bytes)\r\n", string(buf[:n]), int16(n)); err != nil {
				return err
			}
		}
	},
}

// lineNumber narrows a baud rate for the driver's 16-bit decimal printer.
func lineNumber(baud uint32) int16 {
	if baud > 32767 {
		return 32767
	}
	return int16(baud)
}
