package notes

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// Notifier delivers outbound notifications. Delivery is fire-and-forget:
// the service never waits on it and only logs its failures.
type Notifier interface {
	SendWelcome(email string) error
}
