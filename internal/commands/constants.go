package commands

// Command prefixes typed by users
const (
	ShowBalance      = "show balance"
	Transfer         = "transfer"
	RequestWithdraw  = "request withdraw"
	Deposit          = "deposit"
	ShowTransactions = "show transactions"
	ShowUsers        = "show users"
)

// Command grammars shown in format errors
const (
	ShowBalanceFormat      = ShowBalance + " [for <user>]"
	TransferFormat         = Transfer + " <amount> to <user> [description]"
	RequestWithdrawFormat  = RequestWithdraw + " <amount> from <user> [description]"
	DepositFormat          = Deposit + " <amount> to <user> [description]"
	TransactionsLastFormat = ShowTransactions + " last <n>"
	TransactionsDateFormat = ShowTransactions + " [from <date>] [to <date>]"
)

// Keywords inside commands
const (
	KeywordFor  = "for"
	KeywordTo   = "to"
	KeywordFrom = "from"
	KeywordLast = "last"
)

// GreetingPhrases are answered with a greeting and the help listing
var GreetingPhrases = []string{"hi", "hello", "hey", "sup", "yo"}

// Confirmation replies
var (
	ConfirmWords = []string{"yes", "y"}
	CancelWords  = []string{"no", "n"}
)

// Lock channel protocol phrases
const (
	Ping     = "ping"
	Pong     = "pong"
	Farewell = "bye"
)
