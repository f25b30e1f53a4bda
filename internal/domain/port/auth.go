package port

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type TokenVerifier interface {
	// Verify returns the user id carried by a valid token.
	Verify(token string) (string, error)
}
