package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"mcucode-go/drivers/ili9488"
	"mcucode-go/graphics"
)

var lcdOpts = struct {
	spi string
	dc  string
	rst string
}{}

var lcdDemoCmd = &cobra.Command{
	Use:   "lcd-demo",
	Short: "Draw the shapes demo on an SPI-attached ILI9488 panel",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		d, err := openPanel(cfg.Panel.Rows, cfg.Panel.Columns)
		if err != nil {
			return err
		}

		drawShapesDemo(d)
		return d.Err()
	},
}

func init() {
	addPanelFlags(lcdDemoCmd)
}

// addPanelFlags registers the SPI panel flags on a command that can render
// to hardware.
func addPanelFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&lcdOpts.spi, "spi", "", "SPI port name (spireg), empty for the first available")
	cmd.Flags().StringVar(&lcdOpts.dc, "dc", "GPIO25", "data/command GPIO name")
	cmd.Flags().StringVar(&lcdOpts.rst, "rst", "", "reset GPIO name (optional)")
}

// openPanel initialises the periph host and brings up the panel.
func openPanel(rows, columns uint16) (*ili9488.Dev, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	port, err := spireg.Open(lcdOpts.spi)
	if err != nil {
		return nil, fmt.Errorf("spi open: %w", err)
	}
	dc := gpioreg.ByName(lcdOpts.dc)
	if dc == nil {
		return nil, fmt.Errorf("no gpio named %q", lcdOpts.dc)
	}
	var rst gpio.PinIO
	if lcdOpts.rst != "" {
		if rst = gpioreg.ByName(lcdOpts.rst); rst == nil {
			return nil, fmt.Errorf("no gpio named %q", lcdOpts.rst)
		}
	}
	return ili9488.NewSPI(port, dc, &ili9488.Opts{Rows: rows, Columns: columns, RST: rst})
}

// drawShapesDemo exercises each rasterizer primitive.
func drawShapesDemo(d graphics.Display) {
	rows, columns := d.Size()

	graphics.Fill(d, graphics.ColourBlack)

	graphics.DrawRectangle(d,
		graphics.Vector{Row: 20, Column: 20},
		graphics.Vector{Row: rows - 20, Column: columns - 20},
		graphics.ColourDarkGrey)
	graphics.FilledRoundRectangle(d,
		graphics.Vector{Row: 40, Column: 40},
		graphics.Vector{Row: 120, Column: columns - 40},
		12, graphics.ColourNavy)

	center := graphics.Vector{Row: rows / 2, Column: columns / 2}
	graphics.FillCircle(d, center, 40, graphics.ColourOrange)
	graphics.DrawCircle(d, center, 60, graphics.ColourYellow)

	graphics.DrawTriangle(d,
		graphics.Vector{Row: rows - 60, Column: 40},
		graphics.Vector{Row: rows - 60, Column: columns - 40},
		graphics.Vector{Row: rows - 140, Column: columns / 2},
		graphics.ColourCyan)

	graphics.WriteLine(d,
		graphics.Vector{Row: 0, Column: 0},
		graphics.Vector{Row: rows - 1, Column: columns - 1},
		graphics.ColourGreen)
}
