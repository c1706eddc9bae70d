package navigation

import (
	"strconv"
	"strings"

	"github.com/m3rciful/tempmail-bot/core/telegram/format"
	"github.com/m3rciful/tempmail-bot/internal/mailtm"
	"github.com/m3rciful/tempmail-bot/internal/session"
)

// Button is one inline keyboard button.
type Button struct {
	Text   string
	Action Action
}

// Screen is a Markdown text plus its inline keyboard.
type Screen struct {
	Text string
	Rows [][]Button
}

// Reply is what the transport renders for one action. A nil Screen leaves the
// message as is; a non-empty Popup is shown as an alert.
type Reply struct {
	Screen *Screen
	Popup  string
}

const (
	inboxButtonLimit = 10

	noSubject = "No Subject"
	unknown   = "Unknown"
	noContent = "No content"

	missingNotice = "⚠️ That email is no longer in your list.\n\n"
)

func btn(text string, kind Kind) Button {
	return Button{Text: text, Action: Action{Kind: kind}}
}

func addrBtn(text string, kind Kind, address string) Button {
	return Button{Text: text, Action: Action{Kind: kind, Address: address}}
}

func row(b ...Button) []Button { return b }

func backToMenu() []Button { return row(btn("🔙 Back to Menu", KindBack)) }

func mainMenuRows() [][]Button {
	return [][]Button{
		row(btn("📧 Generate New Email", KindGenerate)),
		row(btn("📬 My Emails", KindMyEmails)),
		row(btn("ℹ️ Help", KindHelp)),
	}
}

// WelcomeScreen is sent in reply to /start.
func WelcomeScreen() *Screen {
	return &Screen{
		Text: "🎉 *Welcome to Temp Email Bot!*\n\n" +
			"Generate temporary emails instantly and keep them for later use.\n\n" +
			"Choose an option below:",
		Rows: mainMenuRows(),
	}
}

// MenuScreen is the main menu reached through the back button.
func MenuScreen() *Screen {
	return &Screen{
		Text: "🎉 *Temp Email Bot*\n\nChoose an option below:",
		Rows: mainMenuRows(),
	}
}

// HelpScreen explains the bot.
func HelpScreen() *Screen {
	return &Screen{
		Text: "ℹ️ *How to Use:*\n\n" +
			"1️⃣ Generate a temporary email\n" +
			"2️⃣ Use it anywhere you need\n" +
			"3️⃣ Check inbox for messages\n" +
			"4️⃣ All emails are saved automatically\n\n" +
			"*Features:*\n" +
			"📧 Generate unlimited emails\n" +
			"💾 Auto-save all your emails\n" +
			"📬 Check inbox anytime\n" +
			"🗑️ Delete when done\n\n" +
			"⏰ Emails are valid for 24 hours.",
		Rows: [][]Button{row(btn("🔙 Back", KindBack))},
	}
}

func generatedScreen(address string, total int) *Screen {
	return &Screen{
		Text: "✅ *Email Generated!*\n\n" +
			"📧 " + format.Code(address) + "\n\n" +
			"💾 Saved to your account\n" +
			"⏰ Valid for 24 hours\n" +
			"📊 Total emails: " + strconv.Itoa(total),
		Rows: [][]Button{
			row(addrBtn("📥 Check Inbox", KindCheck, address)),
			row(addrBtn("📋 Copy Email", KindCopy, address)),
			row(btn("➕ Generate Another", KindGenerate), addrBtn("🗑️ Delete", KindDelete, address)),
			backToMenu(),
		},
	}
}

func generateFailedScreen() *Screen {
	return &Screen{
		Text: "❌ *Failed to generate email*\n\n" +
			"The service might be temporarily busy.\n\n" +
			"Please try again.",
		Rows: [][]Button{
			row(btn("🔄 Try Again", KindGenerate)),
			backToMenu(),
		},
	}
}

func listScreen(sessions []session.EmailSession, notice string) *Screen {
	if len(sessions) == 0 {
		return &Screen{
			Text: notice + "📭 You don't have any saved emails yet.\n\nGenerate one to get started!",
			Rows: [][]Button{row(btn("🔙 Back", KindBack))},
		}
	}
	rows := make([][]Button, 0, len(sessions)+1)
	for i, s := range sessions {
		label := "📧 " + strconv.Itoa(i+1) + ". " + Truncate(s.Address, addressLimit)
		rows = append(rows, row(addrBtn(label, KindView, s.Address)))
	}
	rows = append(rows, row(btn("➕ Generate New Email", KindGenerate), btn("🔙 Back", KindBack)))
	return &Screen{
		Text: notice + "📬 *Your Saved Emails (" + strconv.Itoa(len(sessions)) + ")*\n\n" +
			"Select an email to manage or generate a new one:",
		Rows: rows,
	}
}

// viewScreen renders sessions[index]; index must be in range.
func viewScreen(sessions []session.EmailSession, index int) *Screen {
	address := sessions[index].Address
	prev := addrBtn("⬅️ Prev", KindPrev, address)
	if index <= 0 {
		prev = btn("⬅️ •", KindNoop)
	}
	next := addrBtn("➡️ Next", KindNext, address)
	if index >= len(sessions)-1 {
		next = btn("• ➡️", KindNoop)
	}
	return &Screen{
		Text: "📧 *Email " + strconv.Itoa(index+1) + " of " + strconv.Itoa(len(sessions)) + "*\n\n" +
			format.Code(address),
		Rows: [][]Button{
			row(addrBtn("📥 Check Inbox", KindCheck, address)),
			row(addrBtn("📋 Copy Email", KindCopy, address)),
			row(prev, next),
			row(btn("➕ Generate New", KindGenerate), addrBtn("🗑️ Delete", KindDelete, address)),
			row(btn("🔙 My Emails", KindMyEmails)),
		},
	}
}

func inboxScreen(address string, page mailtm.MessagePage) *Screen {
	if len(page.Messages) == 0 {
		return &Screen{
			Text: "📭 *Inbox Empty*\n\nNo messages for " + format.Code(address),
			Rows: [][]Button{
				row(addrBtn("🔄 Refresh", KindCheck, address)),
				row(addrBtn("🔙 Back", KindView, address)),
			},
		}
	}

	n := min(len(page.Messages), inboxButtonLimit)
	rows := make([][]Button, 0, n+1)
	for _, m := range page.Messages[:n] {
		subject := strings.TrimSpace(m.Subject)
		if subject == "" {
			subject = noSubject
		}
		rows = append(rows, row(Button{
			Text:   "✉️ " + Truncate(subject, subjectLimit),
			Action: Action{Kind: KindRead, Address: address, MessageID: m.ID},
		}))
	}
	rows = append(rows, row(
		addrBtn("🔄 Refresh", KindCheck, address),
		addrBtn("🔙 Back", KindView, address),
	))

	total := max(page.Total, len(page.Messages))
	return &Screen{
		Text: "📬 *Inbox for* " + format.Code(address) + "\n\n" +
			"Messages: " + strconv.Itoa(total) + "\n\n" +
			"Select a message to read:",
		Rows: rows,
	}
}

func messageScreen(address string, msg mailtm.Message) *Screen {
	from := msg.From.Address
	if from == "" {
		from = unknown
	}
	subject := strings.TrimSpace(msg.Subject)
	if subject == "" {
		subject = noSubject
	}
	date := msg.CreatedAt
	if date == "" {
		date = unknown
	}
	body := messageBody(msg)

	return &Screen{
		Text: "📨 *From:* " + format.Escape(from) + "\n" +
			"📋 *Subject:* " + format.Escape(subject) + "\n" +
			"📅 *Date:* " + format.Escape(date) + "\n\n" +
			"💬 *Message:*\n" + format.Escape(Truncate(body, bodyLimit)),
		Rows: [][]Button{row(addrBtn("🔙 Back to Inbox", KindCheck, address))},
	}
}

func messageBody(msg mailtm.Message) string {
	if s := strings.TrimSpace(msg.Text); s != "" {
		return s
	}
	if s := strings.TrimSpace(strings.Join(msg.HTML, "\n")); s != "" {
		return s
	}
	return noContent
}

func readFailedScreen(a Action) *Screen {
	return &Screen{
		Text: "❌ *Could not load message*\n\n" +
			"It may have been deleted, or the mail service is busy.",
		Rows: [][]Button{
			row(Button{Text: "🔄 Try Again", Action: a}),
			row(addrBtn("🔙 Back to Inbox", KindCheck, a.Address)),
		},
	}
}

func unavailableScreen(retry Action, back Action) *Screen {
	return &Screen{
		Text: "⚠️ *Mail service unavailable*\n\n" +
			"The service might be temporarily busy.\n\n" +
			"Please try again.",
		Rows: [][]Button{
			row(Button{Text: "🔄 Try Again", Action: retry}),
			row(Button{Text: "🔙 Back", Action: back}),
		},
	}
}

func deletedScreen(address string) *Screen {
	return &Screen{
		Text: "✅ Email deleted!\n\n" + format.Code(address),
		Rows: [][]Button{row(btn("🔙 My Emails", KindMyEmails))},
	}
}

func failureScreen() *Screen {
	return &Screen{
		Text: "❌ *Something went wrong*\n\nPlease try again later.",
		Rows: [][]Button{backToMenu()},
	}
}
