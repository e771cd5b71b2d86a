package coordinator

import "github.com/gitzhang10/auditchain/chain"

// Login is the first message of every session.
type Login struct {
	Name     string
	Password string
}

// Command is a parsed client command. Kind is one of the Kind constants.
type Command struct {
	Kind string
	Args []string
}

// Response answers a Login or a Command on the session that sent it.
// Totals is only set for a report.
type Response struct {
	OK     bool
	Text   string
	Totals []chain.AccountTotal
}

// Notification is pushed to a session without a preceding request.
type Notification struct {
	From string
	Text string
}

// Broadcast addresses a Notice to every online participant.
const Broadcast = "*"

// Notice asks the session layer to deliver Text to participant To.
type Notice struct {
	To   string
	Text string
}

// Result is the outcome of one command for the participant who issued it.
type Result struct {
	OK      bool
	Text    string
	Totals  []chain.AccountTotal
	Notices []Notice
}

func failed(err error) Result {
	return Result{OK: false, Text: "[!] " + err.Error()}
}
