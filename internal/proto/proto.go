package proto

// Error represents an error response.
type Error struct {
	Message string `json:"message"`
}

// ServerControl represents a control command sent to the server.
type ServerControl struct {
	Command string `json:"command"`
}

// Account is an account and its credit balance.
type Account struct {
	ID        string `json:"id"`
	Credits   int64  `json:"credits"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// CreateAccountRequest opens an account with an initial balance.
type CreateAccountRequest struct {
	Credits int64 `json:"credits"`
}

// AddCreditsRequest tops up an account.
type AddCreditsRequest struct {
	Amount int64 `json:"amount"`
}
