package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mcucode-go/bus"
	"mcucode-go/graphics"
	"mcucode-go/services/config"
	"mcucode-go/services/heartbeat"
	"mcucode-go/services/sketch"
)

var sketcherOpts = struct {
	panel bool
}{}

var sketcherCmd = &cobra.Command{
	Use:   "sketcher",
	Short: "Interactive serial drawing console",
	Long: "Reads drawing commands line by line from the serial link and renders " +
		"them on the panel: move, line, pixel, rect, circle, colour, fill, clear. " +
		"Without --panel the drawing surface is headless and only the cursor " +
		"echo is visible.",
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

		var disp graphics.Display
		if sketcherOpts.panel {
			panel, err := openPanel(cfg.Panel.Rows, cfg.Panel.Columns)
			if err != nil {
				return err
			}
			disp = panel
		} else {
			disp = headlessDisplay{rows: cfg.Panel.Rows, columns: cfg.Panel.Columns}
		}
		graphics.Fill(disp, graphics.ColourBlack)

		b := bus.New(16)
		configSvc := config.NewService(cfg)
		configSvc.Start(ctx, b.NewConnection(configSvc.Name))
		(&heartbeat.Service{}).Start(ctx, b.NewConnection("heartbeat"))

		svc := sketch.New(d, disp, b.NewConnection("sketch"))
		if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	sketcherCmd.Flags().BoolVar(&sketcherOpts.panel, "panel", false, "render on the SPI-attached panel")
	addPanelFlags(sketcherCmd)
}

// headlessDisplay accepts draw calls without hardware, for running the
// console on a bare host.
type headlessDisplay struct {
	rows, columns uint16
}

func (h headlessDisplay) Size() (uint16, uint16)         { return h.rows, h.columns }
func (h headlessDisplay) SetWindow(_, _ graphics.Vector) {}
func (h headlessDisplay) WriteColour(_ uint16, _ uint32) {}
