package graphics

// RGB565 colours.
const (
	ColourBlack     uint16 = 0x0000
	ColourNavy      uint16 = 0x000F
	ColourDarkGreen uint16 = 0x03E0
	ColourDarkCyan  uint16 = 0x03EF
	ColourMaroon    uint16 = 0x7800
	ColourPurple    uint16 = 0x780F
	ColourOlive     uint16 = 0x7BE0
	ColourLightGrey uint16 = 0xC618
	ColourDarkGrey  uint16 = 0x7BEF
	ColourBlue      uint16 = 0x001F
	ColourGreen     uint16 = 0x07E0
	ColourCyan      uint16 = 0x07FF
	ColourRed       uint16 = 0xF800
	ColourMagenta   uint16 = 0xF81F
	ColourYellow    uint16 = 0xFFE0
	ColourOrange    uint16 = 0xFD20
	ColourWhite     uint16 = 0xFFFF
	ColourPink      uint16 = 0xFE19
	ColourSkyBlue   uint16 = 0x867D
)
