package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/stewartpark/eks-network/tui/assets"
)

func renderOperation(m OperationModel) string {
	w := m.Width
	if w <= 0 {
		w = 80
	}
	h := m.Height
	if h <= 0 {
		h = 24
	}

	iw := w - 6
	if iw < 40 {
		iw = 40
	}

	var top []string

	// Logo + title
	logo := assets.GetDashFrame(m.Frame)
	logoLines := strings.Split(logo, "\n")
	logoStyle := lipgloss.NewStyle().Foreground(colorCyan)

	ver := lipgloss.NewStyle().Foreground(colorGray).Render(m.Info.Version)
	titleLine := lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Render("EKS Network") + " " + ver

	infoLines := []string{
		titleLine,
		kv("stack ", orDash(m.Info.Stack), colorWhite),
		kv("region", orDash(m.Info.Region), colorWhite),
		kv("vpc   ", orDash(m.Info.VPCName), colorBlue),
	}
	if m.Info.Plan != "" {
		infoLines = append(infoLines, dimText(m.Info.Plan))
	}

	logoWidth := 0
	for _, l := range logoLines {
		if lw := lipgloss.Width(l); lw > logoWidth {
			logoWidth = lw
		}
	}
	gap := 3
	maxLines := len(logoLines)
	if len(infoLines) > maxLines {
		maxLines = len(infoLines)
	}
	for i := 0; i < maxLines; i++ {
		left := ""
		if i < len(logoLines) {
			left = logoStyle.Render(logoLines[i])
		}
		leftWidth := lipgloss.Width(left)
		padding := logoWidth + gap - leftWidth
		if padding < 1 {
			padding = 1
		}
		right := ""
		if i < len(infoLines) {
			right = infoLines[i]
		}
		top = append(top, left+strings.Repeat(" ", padding)+right)
	}

	top = append(top, divider(iw))

	// Status section varies by phase
	top = append(top, renderOpStatus(m, iw)...)
	top = append(top, "")
	top = append(top, divider(iw))

	// chrome: border(2) + padding(2) + footer(2) = 6
	topLines := len(top)
	logHeaderLines := 1
	errLines := 0
	if m.ErrorMessage != "" {
		errLines = 1
	}
	availLogLines := h - 6 - topLines - logHeaderLines - errLines
	if availLogLines < 1 {
		availLogLines = 1
	}

	var logSection []string

	logHeaderText := "Logs"
	if m.LogScrollBack > 0 {
		logHeaderText += dimText(fmt.Sprintf(" (scrolled +%d)", m.LogScrollBack))
	}
	logHeader := lipgloss.NewStyle().Foreground(colorWhite).Bold(true).Render(logHeaderText)
	logSection = append(logSection, logHeader)

	logStyle := lipgloss.NewStyle().Foreground(colorGray)
	// endIdx is the last line to show (exclusive); scrollBack shifts the window up
	endIdx := len(m.LogLines) - m.LogScrollBack
	if endIdx < 0 {
		endIdx = 0
	}
	startIdx := endIdx - availLogLines
	if startIdx < 0 {
		startIdx = 0
	}
	visibleLogs := m.LogLines[startIdx:endIdx]
	for _, line := range visibleLogs {
		logSection = append(logSection, logStyle.Render("  "+truncate(line, iw-2)))
	}
	for i := len(visibleLogs); i < availLogLines; i++ {
		logSection = append(logSection, "")
	}

	var all []string
	all = append(all, top...)
	all = append(all, logSection...)
	if m.ErrorMessage != "" {
		all = append(all, lipgloss.NewStyle().Foreground(colorRed).Render("  Error: "+truncate(m.ErrorMessage, iw-8)))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, all...)

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorGray).
		Padding(1, 2).
		Width(w - 2).
		MaxHeight(h - 2). // hard clamp: leave room for footer
		Render(content)

	return box + "\n" + renderOpFooter(m)
}

func renderSummary(m OperationModel) string {
	if m.Summary == nil {
		return ""
	}
	s := m.Summary
	var parts []string
	if s.Create > 0 {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorGreen).Render(fmt.Sprintf("%d create", s.Create)))
	}
	if s.Update > 0 {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorYellow).Render(fmt.Sprintf("%d update", s.Update)))
	}
	if s.Replace > 0 {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorYellow).Render(fmt.Sprintf("%d replace", s.Replace)))
	}
	if s.Delete > 0 {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorRed).Render(fmt.Sprintf("%d delete", s.Delete)))
	}
	if s.Same > 0 {
		parts = append(parts, dimText(fmt.Sprintf("%d unchanged", s.Same)))
	}
	if len(parts) == 0 {
		return ""
	}
	return "  " + strings.Join(parts, "  ")
}

func renderOutputs(m OperationModel, iw int) []string {
	o := m.Outputs
	if o == nil || o.Empty() {
		return nil
	}
	lines := []string{
		"  " + kv("vpcId         ", o.VpcID, colorBlue),
		"  " + kv("publicSubnets ", truncate(strings.Join(o.PublicSubnetIDs, ", "), iw-18), colorWhite),
		"  " + kv("privateSubnets", truncate(strings.Join(o.PrivateSubnetIDs, ", "), iw-18), colorWhite),
	}
	if o.VpnEndpointID != "" {
		lines = append(lines, "  "+kv("vpnId         ", o.VpnEndpointID, colorWhite))
	}
	return lines
}

func renderOpStatus(m OperationModel, iw int) []string {
	var lines []string

	switch m.Phase {
	case OpPhaseInit, OpPhasePreview, OpPhaseApply, OpPhaseDestroy:
		spinLine := lipgloss.NewStyle().Foreground(colorCyan).Render(m.Spinner.View()) +
			" " + lipgloss.NewStyle().Foreground(colorWhite).Render(m.StepLabel)
		lines = append(lines, spinLine)

	case OpPhaseConfirm:
		if summary := renderSummary(m); summary != "" {
			lines = append(lines, summary)
		}
		promptLabel := "Apply changes?"
		if m.Kind == OpKindDown {
			promptLabel = "Destroy the network?"
		}
		prompt := lipgloss.NewStyle().Bold(true).Foreground(colorYellow).Render(promptLabel) +
			"  " + dimText("(y/n)")
		lines = append(lines, prompt)

	case OpPhaseDone:
		switch {
		case m.Cancelled:
			lines = append(lines, lipgloss.NewStyle().Foreground(colorYellow).Render("  Cancelled."))
		case m.ErrorMessage != "":
			lines = append(lines, lipgloss.NewStyle().Foreground(colorRed).Render("  Failed."))
		default:
			doneLabel := "Network provisioned."
			if m.Kind == OpKindDown {
				doneLabel = "Network destroyed."
			}
			lines = append(lines, lipgloss.NewStyle().Foreground(colorGreen).Render("  "+doneLabel))
			if summary := renderSummary(m); summary != "" {
				lines = append(lines, summary)
			}
			lines = append(lines, renderOutputs(m, iw)...)
		}
	}

	return lines
}

func renderOpFooter(m OperationModel) string {
	keyStyle := lipgloss.NewStyle().Foreground(colorWhite).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(colorGray)
	sep := descStyle.Render("  ")

	shortcuts := keyStyle.Render("q") + descStyle.Render(" quit")
	if m.Phase == OpPhaseConfirm {
		action := " apply"
		if m.Kind == OpKindDown {
			action = " destroy"
		}
		shortcuts += sep +
			keyStyle.Render("y") + descStyle.Render(action) + sep +
			keyStyle.Render("n") + descStyle.Render(" cancel")
	}
	shortcuts += sep + keyStyle.Render("↑↓") + descStyle.Render(" scroll")

	return lipgloss.NewStyle().PaddingLeft(2).Render(shortcuts)
}
