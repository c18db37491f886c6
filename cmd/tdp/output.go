package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tosit-io/tdp/internal/depmodel"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	successFg  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failureFg  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	mutedFg    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// renderPlanSummary renders a boxed, one-line-per-operation summary of a
// DeploymentLog, styled the way Streamy colors step results in its terminal
// output.
func renderPlanSummary(log *depmodel.DeploymentLog) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  (%s, %d operations)\n", titleStyle.Render(string(log.DeploymentType)), log.State, len(log.Operations))
	for _, op := range log.Operations {
		fmt.Fprintf(&b, "  %s %s\n", stateGlyph(op.State), op.Operation)
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func stateGlyph(state depmodel.OperationState) string {
	switch state {
	case depmodel.OperationSuccess:
		return successFg.Render("✓")
	case depmodel.OperationFailure:
		return failureFg.Render("✗")
	case depmodel.OperationRunning:
		return titleStyle.Render("▶")
	default:
		return mutedFg.Render("·")
	}
}

// renderComponentVersionsTable renders a simple aligned table of the latest
// component versions, short-hash formatted.
func renderComponentVersionsTable(versions []*depmodel.ComponentVersionLog) string {
	if len(versions) == 0 {
		return mutedFg.Render("no component versions recorded")
	}

	serviceW, componentW := len("SERVICE"), len("COMPONENT")
	for _, v := range versions {
		if len(v.Service) > serviceW {
			serviceW = len(v.Service)
		}
		if len(v.Component) > componentW {
			componentW = len(v.Component)
		}
	}

	header := titleStyle.Render(fmt.Sprintf("%-*s  %-*s  %s", serviceW, "SERVICE", componentW, "COMPONENT", "VERSION"))
	var rows []string
	rows = append(rows, header)
	for _, v := range versions {
		rows = append(rows, fmt.Sprintf("%-*s  %-*s  %s", serviceW, v.Service, componentW, v.Component, v.ShortVersion()))
	}
	return strings.Join(rows, "\n")
}
