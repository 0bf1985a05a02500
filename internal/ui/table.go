package ui

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// SessionSummary collects the headline numbers shown when a watch
// session ends.
type SessionSummary struct {
	Status   string
	Role     string
	Peer     string
	Duration string
	Video    string
}

// SessionSummaryView renders the end-of-session stats table.
func SessionSummaryView(summary SessionSummary) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.SetTitle("Session Summary")

	t.AppendRows([]table.Row{
		{"Status", summary.Status},
		{"Role", summary.Role},
		{"Peer", summary.Peer},
		{"Duration", summary.Duration},
	})
	if summary.Video != "" {
		t.AppendRow(table.Row{"Video", summary.Video})
	}

	return t.Render()
}

func RenderSessionSummary(summary SessionSummary) {
	fmt.Println(SessionSummaryView(summary))
}

// RoomInfo holds the details a host shares so a friend can join.
type RoomInfo struct {
	RoomID string
	Server string
}

func NewRoomInfo(roomID, server string) *RoomInfo {
	return &RoomInfo{
		RoomID: roomID,
		Server: server,
	}
}

func (r *RoomInfo) View() string {
	content := fmt.Sprintf("%s Room Created!\n\n%s Room ID:  %s\n%s Join:     watchwire join %s",
		IconSuccess,
		IconCopy, BoldStyle.Foreground(Primary).Render(r.RoomID),
		IconConnect, r.RoomID,
	)
	if r.Server != "" {
		content += "\n" + MutedStyle.Render(fmt.Sprintf("   Server:   %s", r.Server))
	}

	return SuccessBoxStyle.Render(content)
}

func (r *RoomInfo) Render() {
	fmt.Println(r.View())
}

// TokenView frames a connection code for manual copy and paste
// signaling.
func TokenView(label, token string) string {
	content := fmt.Sprintf("%s %s\n\n%s", IconCopy, BoldStyle.Render(label), token)
	return BoxStyle.Render(content)
}
