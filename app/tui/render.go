package tui

import (
	"fmt"
	"strings"

	"github.com/developmentseed/labs-gpt-stac/agents/react"
	"github.com/developmentseed/labs-gpt-stac/framework"
	"github.com/developmentseed/labs-gpt-stac/tools"
)

// RenderMessage converts a Message into a styled string for the viewport.
func RenderMessage(msg Message, width int) string {
	var b strings.Builder
	b.WriteString(renderMessageHeader(msg))
	b.WriteString("\n")

	switch msg.Role {
	case RoleUser:
		b.WriteString(textStyle.Render(msg.Text))
	case RoleAgent:
		b.WriteString(renderAgentMessage(msg))
	case RoleSystem:
		b.WriteString(dimStyle.Render(msg.Text))
	}

	if msg.Duration > 0 {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(fmt.Sprintf("took %s", formatDuration(msg.Duration))))
	}

	boxWidth := max(0, width-4)
	return messageBoxStyle.Width(boxWidth).Render(b.String())
}

func renderMessageHeader(msg Message) string {
	timestamp := msg.Timestamp.Format("15:04:05")
	roleText := "You"
	switch msg.Role {
	case RoleAgent:
		roleText = "Agent"
	case RoleSystem:
		roleText = "System"
	}
	return headerStyle.Render(fmt.Sprintf("[%s] %s", timestamp, roleText))
}

func renderAgentMessage(msg Message) string {
	if msg.Err != nil {
		return RenderError(msg.Err)
	}
	return RenderOutcome(msg.Outcome)
}

// RenderError formats a failed run with its error kind.
func RenderError(err error) string {
	return errorStyle.Render(fmt.Sprintf("%s: %v", framework.ErrorKind(err), err))
}

// RenderOutcome formats a final answer or a catalog result.
func RenderOutcome(outcome *react.Outcome) string {
	if outcome == nil {
		return dimStyle.Render("(no result)")
	}
	var b strings.Builder
	for _, step := range outcome.Steps {
		if step.Action == nil {
			continue
		}
		b.WriteString(detailStyle.Render(fmt.Sprintf("turn %d: %s %s", step.Turn, step.Action.Name, step.Action.Argument)))
		b.WriteString("\n")
	}
	switch outcome.Kind {
	case react.OutcomeCatalogResult:
		b.WriteString(RenderCatalog(outcome.Catalog))
	default:
		b.WriteString(textStyle.Render(outcome.Answer))
	}
	return b.String()
}

// RenderCatalog lists catalog items with their preview links.
func RenderCatalog(result *tools.CatalogResult) string {
	if result == nil {
		return dimStyle.Render("(empty catalog result)")
	}
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render(fmt.Sprintf("%d items  bbox %s  %s",
		len(result.STAC.Features), result.BBox, result.Datetime.Interval())))
	if len(result.STAC.Features) == 0 {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("no items matched"))
		return b.String()
	}
	for _, item := range result.STAC.Features {
		b.WriteString("\n")
		b.WriteString(itemIDStyle.Render(item.ID))
		if item.Collection != "" {
			b.WriteString(dimStyle.Render(" " + item.Collection))
		}
		if dt := item.Datetime(); dt != "" {
			b.WriteString(dimStyle.Render(" " + dt))
		}
		if preview := item.PreviewURL(); preview != "" {
			b.WriteString("\n  ")
			b.WriteString(linkStyle.Render(preview))
		}
	}
	return b.String()
}
