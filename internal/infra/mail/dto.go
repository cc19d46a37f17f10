package mail

// ConfirmationEmail is what the registration flow hands to the sender.
type ConfirmationEmail struct {
	To     string
	Name   string
	Course string
}

type confirmationData struct {
	Name        string
	CourseName  string
	PaymentLink string
	Year        int
}

type Config struct {
	Host          string
	Port          int
	Secure        bool
	TLSSkipVerify bool
	User          string
	Password      string
	FromName      string
	PaymentLink   string
}
