package banner

import (
	"benchq/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	ascii := `
    __                    __         
   / /_  ___  ____  _____/ /_  ____ _
  / __ \/ _ \/ __ \/ ___/ __ \/ __ '/
 / /_/ /  __/ / / / /__/ / / / /_/ / 
/_.___/\___/_/ /_/\___/_/ /_/\__, /  
                               /_/   `

	return "\n" + style.Render(ascii) + "\n" +
		renderer.NewStyle().Foreground(styles.ColorSubtle).Render("  scenario-driven load generator") + "\n"
}
