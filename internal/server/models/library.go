package models

// Library is a tenant: a physical collection owned by one user.
// Monetary rates are carried as strings scanned straight from the
// numeric columns; the server never does arithmetic on them.
type Library struct {
	ID          int64
	OwnerID     int64
	Name        string
	Address     string
	DailyRate   string
	OverdueRate string
	Currency    string
}
