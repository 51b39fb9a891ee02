package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/shubhvasa1011-netizen/nifty-options-scanner/pkg/models"
)

const clockLayout = "03:04:05 PM"

func StartupMessage(start, end string) string {
	return fmt.Sprintf("✅ Nifty Options Scanner is now LIVE!\n\n📊 Monitoring ATM ± 5 strikes\n⏰ Active during market hours (%s - %s)", start, end)
}

func ShutdownMessage() string {
	return "🛑 Nifty Options Scanner has been stopped."
}

func RecoveryMessage(failures int, err error) string {
	msg := fmt.Sprintf("⚠️ Scanner experiencing issues (%d consecutive failures). Attempting to reconnect...", failures)
	if err != nil {
		msg += "\n\nLast error: " + err.Error()
	}
	return msg
}

// EventMessage renders an operator notification for ev. QUALIFIED events
// are observability only and render to an empty string.
func EventMessage(ev models.Event, maxConsecutive int, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	switch ev.Type {
	case models.EventEntry:
		return entryMessage(ev, loc)
	case models.EventExit:
		return exitMessage(ev, maxConsecutive, loc)
	default:
		return ""
	}
}

func entryMessage(ev models.Event, loc *time.Location) string {
	pos := ev.Position
	var b strings.Builder
	b.WriteString("🚀 ENTRY SIGNAL\n\n")
	fmt.Fprintf(&b, "Type: %s\n", pos.Key.Side)
	fmt.Fprintf(&b, "Strike: %d %s\n", pos.Key.Strike, pos.Key.Side)
	fmt.Fprintf(&b, "Entry Price: ₹%.2f\n", pos.EntryPrice)
	fmt.Fprintf(&b, "Target: ₹%.2f\n", pos.Target)
	fmt.Fprintf(&b, "Stop Loss: ₹%.2f\n\n", pos.StopLoss)
	b.WriteString("Qualified: Touched ₹90\n")
	fmt.Fprintf(&b, "Time: %s", pos.EntryTime.In(loc).Format(clockLayout))
	return b.String()
}

func exitMessage(ev models.Event, maxConsecutive int, loc *time.Location) string {
	tr := ev.Trade
	emoji, label := "✅", "TARGET"
	if tr.Outcome == models.OutcomeStopLoss {
		emoji, label = "❌", "STOP LOSS"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s HIT\n\n", emoji, label)
	fmt.Fprintf(&b, "Strike: %d %s\n", tr.Key.Strike, tr.Key.Side)
	fmt.Fprintf(&b, "Entry: ₹%.2f\n", tr.EntryPrice)
	fmt.Fprintf(&b, "Exit: ₹%.2f\n", tr.ExitPrice)
	fmt.Fprintf(&b, "P&L: ₹%.2f per qty\n", tr.PnLPerUnit)
	fmt.Fprintf(&b, "Total P&L: ₹%.2f (%d qty)\n\n", tr.PnLTotal, tr.LotSize)
	fmt.Fprintf(&b, "Consecutive %s trades: %d/%d\n\n", tr.Key.Side, ev.Consecutive, maxConsecutive)
	fmt.Fprintf(&b, "Time: %s", tr.ExitTime.In(loc).Format(clockLayout))
	return b.String()
}
