package core

// Actor is the user performing an operation, as the excluded RBAC layer
// hands it in. The core trusts these fields; authenticating them is the
// outer layer's concern. Ownership and manager-scope decisions made on top
// of them are enforced here.
type Actor struct {
	ID    string
	Admin bool
}
