package main

import (
	"bufio"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/stewartpark/eks-network/tui/assets"
)

// Colors matching the TUI palette.
var (
	setupCyan  = lipgloss.Color("#22d3ee")
	setupGreen = lipgloss.Color("#4ade80")
	setupGray  = lipgloss.Color("#6b7280")
	setupDim   = lipgloss.Color("#374151")
	setupRed   = lipgloss.Color("#f87171")
)

// regionOptions are the commercial AWS regions offered by configure.
var regionOptions = []string{
	"us-east-1", "us-east-2", "us-west-1", "us-west-2",
	"ca-central-1",
	"eu-west-1", "eu-west-2", "eu-west-3", "eu-central-1", "eu-north-1", "eu-south-1",
	"ap-northeast-1", "ap-northeast-2", "ap-northeast-3",
	"ap-southeast-1", "ap-southeast-2", "ap-south-1", "ap-east-1",
	"sa-east-1",
	"me-south-1",
	"af-south-1",
}

const selectMaxVisible = 10

// sectionHeader prints a bold cyan label with a dim rule line.
func sectionHeader(label string) {
	styled := lipgloss.NewStyle().Bold(true).Foreground(setupCyan).Render(label)
	ruleLen := 40 - len(label) - 1
	if ruleLen < 4 {
		ruleLen = 4
	}
	rule := lipgloss.NewStyle().Foreground(setupDim).Render(strings.Repeat("\u2500", ruleLen))
	fmt.Printf("\n  \u2500\u2500 %s %s\n", styled, rule)
}

// promptSelect shows an arrow-key navigable list and returns the chosen option.
// Falls back to numbered input if the terminal doesn't support raw mode.
func promptSelect(label string, options []string, defaultIdx int) string {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return promptSelectFallback(label, options, defaultIdx)
	}

	selected := defaultIdx
	viewSize := min(selectMaxVisible, len(options))
	scrollable := len(options) > viewSize
	offset := 0

	// Ensure selected item is initially visible
	if selected >= viewSize {
		offset = selected - viewSize + 1
	}

	adjustScroll := func() {
		if selected < offset {
			offset = selected
		}
		if selected >= offset+viewSize {
			offset = selected - viewSize + 1
		}
	}

	// Fixed number of rendered lines for stable re-rendering
	totalLines := viewSize
	if scrollable {
		totalLines += 2 // top + bottom scroll indicators
	}

	dim := lipgloss.NewStyle().Foreground(setupDim)
	cur := lipgloss.NewStyle().Foreground(setupCyan).Bold(true)
	act := lipgloss.NewStyle().Foreground(setupCyan)
	inact := lipgloss.NewStyle().Foreground(setupGray)

	// Label line (printed once, above the redrawn region)
	fmt.Printf("  %s  %s\r\n", label, dim.Render("↑/↓ select, Enter confirm"))

	render := func(first bool) {
		if !first {
			fmt.Printf("\x1b[%dA", totalLines)
		}

		if scrollable {
			fmt.Print("\x1b[2K")
			if above := offset; above > 0 {
				fmt.Printf("    %s\r\n", dim.Render(fmt.Sprintf("↑ %d more", above)))
			} else {
				fmt.Print("\r\n")
			}
		}

		for i := offset; i < offset+viewSize && i < len(options); i++ {
			fmt.Print("\x1b[2K")
			if i == selected {
				fmt.Printf("    %s %s\r\n", cur.Render("›"), act.Render(options[i]))
			} else {
				fmt.Printf("      %s\r\n", inact.Render(options[i]))
			}
		}

		if scrollable {
			fmt.Print("\x1b[2K")
			if below := len(options) - offset - viewSize; below > 0 {
				fmt.Printf("    %s\r\n", dim.Render(fmt.Sprintf("↓ %d more", below)))
			} else {
				fmt.Print("\r\n")
			}
		}
	}

	render(true)

	// Read input
	buf := make([]byte, 3)
	for {
		n, readErr := os.Stdin.Read(buf[:1])
		if readErr != nil || n == 0 {
			break
		}

		switch buf[0] {
		case '\r', '\n': // Enter
			// Collapse list into single result line
			_ = term.Restore(fd, oldState)
			fmt.Printf("\x1b[%dA", totalLines+1) // move up past list + label
			fmt.Print("\x1b[J")                   // clear to end of screen
			fmt.Printf("  %s: %s\n", label, act.Render(options[selected]))
			return options[selected]

		case 3: // Ctrl+C
			_ = term.Restore(fd, oldState)
			fmt.Print("\r\n")
			os.Exit(1)

		case 'j': // vim down
			if selected < len(options)-1 {
				selected++
			}
			adjustScroll()
			render(false)

		case 'k': // vim up
			if selected > 0 {
				selected--
			}
			adjustScroll()
			render(false)

		case '\x1b': // Escape sequence
			n2, _ := os.Stdin.Read(buf[1:3])
			if n2 == 2 && len(buf) > 2 && buf[1] == '[' {
				switch buf[2] {
				case 'A': // Up
					if selected > 0 {
						selected--
					}
				case 'B': // Down
					if selected < len(options)-1 {
						selected++
					}
				}
				adjustScroll()
				render(false)
			}
		}
	}

	_ = term.Restore(fd, oldState)
	return options[selected]
}

// promptSelectFallback is a numbered-input fallback when raw mode is unavailable.
func promptSelectFallback(label string, options []string, defaultIdx int) string {
	num := lipgloss.NewStyle().Foreground(setupCyan)
	dim := lipgloss.NewStyle().Foreground(setupDim)

	fmt.Printf("  %s:\n", label)
	for i, opt := range options {
		n := num.Render(fmt.Sprintf("%d)", i+1))
		if i == defaultIdx {
			fmt.Printf("    %s %s %s\n", n, opt, dim.Render("(default)"))
		} else {
			fmt.Printf("    %s %s\n", n, opt)
		}
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("  Choice [%s]: ", num.Render(strconv.Itoa(defaultIdx+1)))
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return options[defaultIdx]
	}
	idx, err := strconv.Atoi(input)
	if err != nil || idx < 1 || idx > len(options) {
		return options[defaultIdx]
	}
	return options[idx-1]
}

// findOption returns the index of val in options, or fallback if not found.
func findOption(options []string, val string, fallback int) int {
	for i, opt := range options {
		if opt == val {
			return i
		}
	}
	return fallback
}

// runInteractiveSetup prompts for every config field, starting from cfg.
// firstRun=true shows "First-time setup"; false shows "Reconfigure".
func runInteractiveSetup(cfg *Config, firstRun bool) error {
	logo := lipgloss.NewStyle().Foreground(setupCyan).Render(assets.GetDashFrame(0))
	fmt.Println(logo)
	fmt.Println()

	subtitle := "Reconfigure"
	if firstRun {
		subtitle = "First-time setup"
	}
	fmt.Println(lipgloss.NewStyle().Bold(true).Foreground(setupGreen).Render("     EKS Network"))
	fmt.Println(lipgloss.NewStyle().Foreground(setupGray).Render("     " + subtitle))
	fmt.Println(lipgloss.NewStyle().Foreground(setupDim).Render("     Press Enter to accept defaults, - to clear"))

	in := bufio.NewReader(os.Stdin)

	// ── AWS ──────────────────────────────
	sectionHeader("AWS")

	cfg.Region = promptSelect("Region", regionOptions, findOption(regionOptions, cfg.Region, findOption(regionOptions, defaultRegion, 0)))
	cfg.Profile = clearable(promptString(in, "Profile", cfg.Profile))
	cfg.Stack = promptString(in, "Stack", cfg.Stack)

	// ── Network ──────────────────────────
	sectionHeader("Network")

	cfg.VPCName = promptString(in, "VPC name", cfg.VPCName)
	for {
		cfg.VPCCidr = promptString(in, "VPC CIDR", cfg.VPCCidr)
		if _, err := netip.ParsePrefix(cfg.VPCCidr); err == nil {
			break
		}
		fmt.Println(lipgloss.NewStyle().Foreground(setupRed).Render("  Not a valid CIDR"))
	}
	cfg.ClusterName = promptString(in, "EKS cluster name", cfg.ClusterName)
	for {
		cfg.AZCount = promptInt(in, "Availability zones", cfg.AZCount)
		if cfg.AZCount >= 1 {
			break
		}
		fmt.Println(lipgloss.NewStyle().Foreground(setupRed).Render("  At least one zone is required"))
	}

	tags := promptString(in, "Tags (k=v,k=v)", formatTags(cfg.Tags))
	if clearable(tags) == "" {
		cfg.Tags = nil
	} else {
		parsed, err := parseTags(strings.Split(tags, ","))
		if err != nil {
			return err
		}
		cfg.Tags = parsed
	}

	// ── Client VPN ───────────────────────
	sectionHeader("Client VPN")

	vpnOptions := []string{"No", "Yes"}
	vpnDefault := 0
	if cfg.ClientVPNCertificateArn != "" {
		vpnDefault = 1
	}
	if promptSelect("Client VPN", vpnOptions, vpnDefault) == "Yes" {
		for {
			cfg.ClientVPNCertificateArn = promptString(in, "ACM certificate ARN", cfg.ClientVPNCertificateArn)
			if strings.HasPrefix(cfg.ClientVPNCertificateArn, "arn:") {
				break
			}
			fmt.Println(lipgloss.NewStyle().Foreground(setupRed).Render("  Certificate ARN must start with arn:"))
		}
	} else {
		cfg.ClientVPNCertificateArn = ""
	}

	fmt.Println()
	return nil
}

// clearable maps the "-" answer to an empty value.
func clearable(s string) string {
	if s == "-" {
		return ""
	}
	return s
}
