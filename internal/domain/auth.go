package domain

// TokenPair is the result of a successful login or registration.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Session bundles what login returns to the client.
type Session struct {
	Tokens   TokenPair
	Account  *Account
	Profiles []Profile
}
