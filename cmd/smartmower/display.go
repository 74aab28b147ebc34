package main

import (
	"fmt"
	"strings"

	"github.com/logrusorgru/aurora"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ── Console display helpers ───────────────────────────────────────

var printer = message.NewPrinter(language.English)

func printBanner() {
	fmt.Println()
	fmt.Println(aurora.Cyan("  ┌───────────────────────────────────────────┐").Bold())
	fmt.Println(aurora.Cyan("  │").Bold(), "              SmartMower                 ", aurora.Cyan("│").Bold())
	fmt.Println(aurora.Cyan("  │").Bold(), "    tabular Q-learning on a lawn grid    ", aurora.Cyan("│").Bold())
	fmt.Println(aurora.Cyan("  └───────────────────────────────────────────┘").Bold())
	fmt.Println()
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  %s\n", aurora.Yellow("── "+title+" "+strings.Repeat("─", lineLen)))
}

// printStat prints a dotted label/value line. Numbers get thousands
// separators.
func printStat(label string, value any) {
	var s string
	switch v := value.(type) {
	case float64:
		s = printer.Sprintf("%.3f", v)
	default:
		s = printer.Sprintf("%v", v)
	}
	dotsLen := 42 - len(label) - len(s)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s %s %s\n", label, aurora.BrightBlack(strings.Repeat("·", dotsLen)), aurora.Green(s))
}

func printOK(msg string) {
	fmt.Printf("  %s %s\n", aurora.Green("✓"), msg)
}

func printReady(msg string) {
	fmt.Printf("  %s %s\n", aurora.Green("▶"), msg)
}

// printGarden prints the garden rows with one colour per tile code.
func printGarden(rows []string) {
	for _, row := range rows {
		var b strings.Builder
		for i := 0; i < len(row); i++ {
			c := string(row[i])
			switch row[i] {
			case 'L':
				b.WriteString(aurora.Green(c).String())
			case 'S':
				b.WriteString(aurora.BrightGreen(c).String())
			case 'C':
				b.WriteString(aurora.Yellow(c).String())
			case 'O':
				b.WriteString(aurora.BrightBlack(c).String())
			case 'M':
				b.WriteString(aurora.Red(c).Bold().String())
			default:
				b.WriteString(aurora.Magenta(c).String())
			}
			b.WriteByte(' ')
		}
		fmt.Printf("    %s\n", b.String())
	}
	fmt.Println()
}
