// Package ui provides styled console output for the engine.
package ui

import (
	"fmt"

	"github.com/fatih/color"
)

// PrintBanner displays the ASCII art startup banner.
func PrintBanner() {
	cyan := color.New(color.FgCyan, color.Bold)
	hiCyan := color.New(color.FgHiCyan)
	magenta := color.New(color.FgMagenta, color.Bold)
	white := color.New(color.FgWhite)
	dim := color.New(color.FgHiBlack)

	fmt.Println()
	cyan.Println("╔══════════════════════════════════════════════════════════╗")

	cyan.Print("║  ")
	hiCyan.Print(" █████╗ ██╗")
	dim.Print("  ")
	magenta.Print("███████╗███╗   ██╗ ██████╗ ██╗███╗   ██╗███████╗")
	cyan.Println("  ║")

	cyan.Print("║  ")
	hiCyan.Print("██╔══██╗██║")
	dim.Print("  ")
	magenta.Print("██╔════╝████╗  ██║██╔════╝ ██║████╗  ██║██╔════╝")
	cyan.Println("  ║")

	cyan.Print("║  ")
	hiCyan.Print("███████║██║")
	dim.Print("  ")
	magenta.Print("█████╗  ██╔██╗ ██║██║  ███╗██║██╔██╗ ██║█████╗  ")
	cyan.Println("  ║")

	cyan.Print("║  ")
	hiCyan.Print("██╔══██║██║")
	dim.Print("  ")
	magenta.Print("██╔══╝  ██║╚██╗██║██║   ██║██║██║╚██╗██║██╔══╝  ")
	cyan.Println("  ║")

	cyan.Print("║  ")
	hiCyan.Print("██║  ██║██║")
	dim.Print("  ")
	magenta.Print("███████╗██║ ╚████║╚██████╔╝██║██║ ╚████║███████╗")
	cyan.Println("  ║")

	cyan.Print("║  ")
	hiCyan.Print("╚═╝  ╚═╝╚═╝")
	dim.Print("  ")
	magenta.Print("╚══════╝╚═╝  ╚═══╝ ╚═════╝ ╚═╝╚═╝  ╚═══╝╚══════╝")
	cyan.Println("  ║")

	cyan.Println("╠══════════════════════════════════════════════════════════╣")

	cyan.Print("║  ")
	white.Print("PROVIDER FAILOVER ENGINE")
	dim.Print("  │  ")
	magenta.Print("KEY ROTATION")
	dim.Print("  │  ")
	white.Print("v1.0.0")
	dim.Print("      ")
	cyan.Println("║")

	cyan.Println("╚══════════════════════════════════════════════════════════╝")
	fmt.Println()
}

// PrintMiniBanner displays a smaller banner for constrained terminals.
func PrintMiniBanner() {
	cyan := color.New(color.FgCyan, color.Bold)
	magenta := color.New(color.FgMagenta, color.Bold)

	fmt.Println()
	cyan.Println("╔══════════════════════════════════╗")
	cyan.Print("║  ")
	magenta.Print("AI ENGINE")
	cyan.Print(" · PROVIDER FAILOVER  ")
	cyan.Println("║")
	cyan.Println("╚══════════════════════════════════╝")
	fmt.Println()
}
