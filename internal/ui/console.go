// Package ui provides styled console output for the engine: colorized
// request lines, failover and key-state badges, and startup info.
package ui

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/quillforge/aiengine/internal/domain"
	"github.com/quillforge/aiengine/internal/registry"
)

var (
	// Badge colors
	successBadge = color.New(color.BgGreen, color.FgBlack, color.Bold)
	warningBadge = color.New(color.FgYellow, color.Bold)
	errorBadge   = color.New(color.BgRed, color.FgWhite, color.Bold)
	infoBadge    = color.New(color.FgCyan, color.Bold)
	debugBadge   = color.New(color.FgMagenta)

	// Text colors
	successText = color.New(color.FgGreen, color.Bold)
	warningText = color.New(color.FgYellow)
	errorText   = color.New(color.FgRed)
	infoText    = color.New(color.FgCyan)
	mutedText   = color.New(color.FgHiBlack)
	accentText  = color.New(color.FgMagenta, color.Bold)
	neonBlue    = color.New(color.FgHiCyan, color.Bold)

	// Method colors
	methodPOST   = color.New(color.BgHiMagenta, color.FgBlack, color.Bold)
	methodGET    = color.New(color.BgHiCyan, color.FgBlack, color.Bold)
	methodPUT    = color.New(color.BgHiYellow, color.FgBlack, color.Bold)
	methodDELETE = color.New(color.BgHiRed, color.FgBlack, color.Bold)
)

// PrintFailover logs a provider switch with warning styling.
// Format: ⚠️ [FAILOVER] from → to
func PrintFailover(from, to domain.ProviderID) {
	fmt.Print("⚠️  ")
	warningBadge.Print("[FAILOVER]")
	fmt.Print(" ")
	mutedText.Print(string(from))
	warningText.Print(" → ")
	accentText.Println(string(to))
}

// PrintKeyDisabled logs when a key hits the failure threshold.
// Format: 💀 [KEY DISABLED] provider key (reason)
func PrintKeyDisabled(provider domain.ProviderID, maskedKey, reason string) {
	fmt.Print("💀 ")
	errorBadge.Print(" KEY DISABLED ")
	fmt.Print(" ")
	infoText.Print(string(provider))
	fmt.Print(" ")
	errorText.Print(maskedKey)
	mutedText.Printf(" (%s)\n", reason)
}

// PrintEngineInfo logs general engine information.
// Format: [ENGINE] message
func PrintEngineInfo(msg string) {
	infoBadge.Print("[ENGINE]")
	fmt.Print(" ")
	infoText.Println(msg)
}

// PrintCacheHit logs a cache hit with lightning styling.
// Format: ⚡ CACHE HIT | key:xxxx...xxxx | 0ms
func PrintCacheHit(cacheKey string, latency time.Duration) {
	neonBlue.Print("⚡ CACHE HIT ")
	fmt.Print("| key:")
	mutedText.Print(shortKey(cacheKey))
	fmt.Print(" | ")
	successText.Printf("%dms\n", latency.Milliseconds())
}

// PrintRequest logs a request line with color-coded method, status and
// latency, plus the provider that served it.
func PrintRequest(method, path string, status int, latency time.Duration, provider string) {
	mutedText.Printf("%s ", time.Now().Format("15:04:05"))

	printMethodBadge(method)
	fmt.Print(" ")

	fmt.Printf("%-28s ", truncatePath(path, 28))

	printStatusBadge(status)
	fmt.Print(" ")

	printLatency(latency)
	fmt.Print(" ")

	if provider != "" {
		mutedText.Printf("via:%s", provider)
	}

	fmt.Println()
}

// printMethodBadge prints the HTTP method with appropriate color.
func printMethodBadge(method string) {
	switch method {
	case "POST":
		methodPOST.Printf(" %s ", method)
	case "GET":
		methodGET.Printf(" %s ", method)
	case "PUT":
		methodPUT.Printf(" %s ", method)
	case "DELETE":
		methodDELETE.Printf(" %s ", method)
	default:
		debugBadge.Printf(" %s ", method)
	}
}

// printStatusBadge prints the status code with appropriate color.
func printStatusBadge(status int) {
	switch {
	case status >= 200 && status < 300:
		successBadge.Printf(" %d ", status)
	case status >= 300 && status < 400:
		infoBadge.Printf(" %d ", status)
	case status >= 400 && status < 500:
		warningBadge.Printf(" %d ", status)
	default:
		errorBadge.Printf(" %d ", status)
	}
}

// printLatency prints latency with a color gradient.
// Green: < 500ms, Yellow: < 3s, Red: >= 3s
func printLatency(latency time.Duration) {
	ms := latency.Milliseconds()
	latencyStr := fmt.Sprintf("%5dms", ms)

	switch {
	case ms < 500:
		successText.Print(latencyStr)
	case ms < 3000:
		warningText.Print(latencyStr)
	default:
		errorText.Print(latencyStr)
	}
}

// shortKey returns a short masked form of a cache key or secret.
func shortKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// truncatePath truncates a path to maxLen characters.
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	return path[:maxLen-3] + "..."
}

// PrintStartupInfo prints styled server startup information including the
// state of every provider.
func PrintStartupInfo(host string, port int, statuses []registry.ProviderStatus) {
	fmt.Println()
	infoBadge.Print("[ENGINE]")
	fmt.Print(" Server starting on ")
	neonBlue.Printf("http://%s:%d\n", host, port)

	for _, s := range statuses {
		infoBadge.Print("[ENGINE]")
		fmt.Printf(" %-10s ", s.DisplayName)
		if s.Enabled {
			successText.Print("enabled ")
		} else {
			mutedText.Print("disabled")
		}
		fmt.Print(" | keys: ")
		if s.ActiveKeys > 0 {
			successText.Printf("%d/%d", s.ActiveKeys, s.TotalKeys)
		} else {
			errorText.Printf("%d/%d", s.ActiveKeys, s.TotalKeys)
		}
		if s.SelectedModel != "" {
			fmt.Print(" | model: ")
			accentText.Print(s.SelectedModel)
		}
		fmt.Println()
	}

	fmt.Println()
	printEndpoints()
}

// printEndpoints prints the available API endpoints.
func printEndpoints() {
	mutedText.Println("  ┌──────────────────────────────────────────────────────┐")

	mutedText.Print("  │ ")
	methodPOST.Print(" POST ")
	fmt.Print(" /v1/generate         ")
	mutedText.Print("  Generate with failover    ")
	mutedText.Println(" │")

	mutedText.Print("  │ ")
	methodGET.Print(" GET  ")
	fmt.Print(" /v1/providers        ")
	mutedText.Print("  Provider status           ")
	mutedText.Println(" │")

	mutedText.Print("  │ ")
	methodGET.Print(" GET  ")
	fmt.Print(" /health              ")
	mutedText.Print("  Health check              ")
	mutedText.Println(" │")

	mutedText.Println("  └──────────────────────────────────────────────────────┘")
	fmt.Println()
}

// PrintShutdown prints a styled shutdown message.
func PrintShutdown() {
	fmt.Println()
	warningBadge.Print("[SHUTDOWN]")
	warningText.Println(" Graceful shutdown initiated...")
}

// PrintGoodbye prints a styled goodbye message.
func PrintGoodbye() {
	successBadge.Print(" OK ")
	fmt.Print(" ")
	successText.Println("Server stopped. Goodbye! 👋")
}
