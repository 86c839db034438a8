package main

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	approvedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	rejectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87"))
)

func verdictStyle(label string) lipgloss.Style {
	switch label {
	case "approved", "APPROVED":
		return approvedStyle
	case "rejected", "REJECTED":
		return rejectedStyle
	}
	return dimStyle
}
