package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if !m.signedIn {
		return m.signInView()
	}

	var b strings.Builder
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		m.styles.Title.Render("Energy Certificate Marketplace"),
		"  ",
		m.styles.Toggle.Render(m.state.ViewLabel),
	)
	b.WriteString(header + "\n\n")

	balance := m.styles.CardTitle(Green).Render("Your Balance") + "\n" +
		m.styles.Balance.Render(m.state.BalanceDisplay) + "\n" +
		m.gauge.ViewAs(m.state.BalanceGauge/100)
	b.WriteString(m.styles.Card(Green).Render(balance) + "\n")

	if m.buyer() {
		b.WriteString(m.buyerView())
	} else {
		b.WriteString(m.sellerView())
	}

	if m.notice != "" {
		b.WriteString(m.styles.Subtitle.Render(m.notice) + "\n")
	}
	b.WriteString(m.styles.Help.Render(m.help()))
	return b.String()
}

func (m Model) signInView() string {
	body := m.styles.Title.Render("Welcome to the Energy Certificate Marketplace") + "\n\n" +
		"Our platform allows you to buy and sell renewable energy certificates with ease.\n\n" +
		"  • Buy renewable energy certificates from verified sources\n" +
		"  • Sell your own renewable energy certificates\n" +
		"  • Track your balance and transactions\n" +
		"  • Contribute to a greener future\n\n"
	if m.busy {
		body += m.styles.Subtitle.Render("Signing in...")
	} else {
		body += m.styles.Button(Green).Render("Sign In to Get Started") + "  " + m.styles.Help.Render("[enter]")
	}
	if m.alert != "" {
		body += "\n\n" + m.styles.ErrorAlert.Render("Error\n"+m.alert)
	}
	return m.styles.Card(Green).Render(body) + "\n" + m.styles.Help.Render("esc quit")
}

func (m Model) sellerView() string {
	var b strings.Builder
	b.WriteString(m.styles.CardTitle(Purple).Render("Upload Renewable Energy Certificate") + "\n")
	b.WriteString(m.styles.Subtitle.Render("Upload your document for evaluation and payout") + "\n\n")
	b.WriteString(m.fileInput.View() + "\n")
	if p := m.state.PendingFile; p != nil {
		b.WriteString(m.styles.Subtitle.Render(fmt.Sprintf("Selected: %s (%d bytes)", p.Name, p.Size)) + "\n")
	}
	b.WriteString("\n")
	if m.busy || m.state.Uploading {
		b.WriteString(m.styles.Button(Purple).Render("Uploading..."))
	} else {
		b.WriteString(m.styles.Button(Purple).Render("Upload Document"))
	}

	if msg := m.errorMessage(); msg != "" {
		b.WriteString("\n\n" + m.styles.ErrorAlert.Render("Error\n"+msg))
	}
	if e := m.state.Evaluation; e != nil {
		b.WriteString("\n\n" + m.styles.ResultAlert.Render(fmt.Sprintf(
			"Evaluation Result\nDocument Type: %s\nPayout Amount: %s", e.Type, e.PayoutDisplay)))
	}
	return m.styles.Card(Purple).Render(b.String()) + "\n"
}

func (m Model) buyerView() string {
	var b strings.Builder
	b.WriteString(m.styles.CardTitle(Blue).Render("Search Energy Certificates") + "\n")
	b.WriteString(m.styles.Subtitle.Render("Find and purchase renewable energy certificates") + "\n\n")
	b.WriteString(m.searchInput.View() + "  " + m.styles.Button(Blue).Render("Search") + "\n\n")

	for i, l := range m.state.Listings {
		color := Blue
		if l.Kind == "solar" {
			color = Yellow
		}
		line := fmt.Sprintf("%s  %s   %s",
			m.styles.CardTitle(color).Render(l.Title),
			m.styles.Subtitle.Render(fmt.Sprintf("%d kWh", l.QuantityKWh)),
			m.styles.Button(color).Render(fmt.Sprintf("[%d] Purchase %s", i+1, l.Price.String())))
		b.WriteString(line + "\n")
	}

	if m.state.SearchQuery != "" {
		b.WriteString("\n" + m.styles.Subtitle.Render(fmt.Sprintf("%d result(s) for %q", len(m.state.LastResults), m.state.SearchQuery)) + "\n")
		for _, l := range m.state.LastResults {
			b.WriteString(fmt.Sprintf("  %s  %d kWh  %s\n", l.Title, l.QuantityKWh, l.Price.String()))
		}
	}
	if m.alert != "" {
		b.WriteString("\n" + m.styles.ErrorAlert.Render("Error\n"+m.alert))
	}
	return m.styles.Card(Blue).Render(b.String()) + "\n"
}

func (m Model) errorMessage() string {
	if m.alert != "" {
		return m.alert
	}
	return m.state.Error
}

func (m Model) help() string {
	if m.buyer() {
		return "enter search • 1/2 purchase (empty search) • tab seller view • esc quit"
	}
	return "enter upload • tab buyer view • esc quit"
}
